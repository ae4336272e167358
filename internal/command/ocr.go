// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/tesscache/internal/cachekey"
	"github.com/staranto/tesscache/internal/meta"
)

// OcrCommandAction prints the recognized text of each FILE. The exit status is
// the first non-zero engine code; a missing file counts as 1 and the remaining
// files are still processed.
func OcrCommandAction(ctx context.Context, cmd *cli.Command) error {
	if ShortCircuitTLDR(ctx, cmd, "ocr") {
		return nil
	}

	files := cmd.Args().Slice()
	if len(files) == 0 {
		return errors.New("at least one FILE is required")
	}

	kind, _ := cachekey.ParseKind(cmd.String("kind"))
	cache := NewCache(cmd)
	w := stdout(cmd)

	for i, f := range files {
		res, err := cache.GetText(ctx, f, cmd.String("lang"), kind)
		if err != nil {
			fmt.Fprintf(stderr(cmd), "Error: %v\n", err)
			setStatus(cmd, 1)
			continue
		}
		log.Debugf("%s: hit=%v exit=%d entry=%s", f, res.Hit, res.ExitCode, res.Path)

		if len(files) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "==> %s <==\n", f)
		}
		fmt.Fprint(w, res.Text)
		setStatus(cmd, res.ExitCode)
	}

	return nil
}

// OcrCommandBuilder constructs the "ocr" command.
func OcrCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "ocr",
		Usage:     "print the recognized text of files, using the cache",
		UsageText: "tesscache ocr [--lang LANG] [--kind KIND] FILE...",
		Flags: []cli.Flag{
			NewLangFlag("ocr"),
			NewKindFlag("ocr"),
		},
		Action: OcrCommandAction,
		Meta:   meta,
	}).Build()
}
