// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/staranto/tesscache/internal/meta"
	"github.com/staranto/tesscache/internal/version"
)

func VersionCommandAction(ctx context.Context, cmd *cli.Command) error {
	fmt.Fprintln(stdout(cmd), version.String())
	return nil
}

func VersionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print version info",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: VersionCommandAction,
	}
}
