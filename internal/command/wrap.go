// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/tesscache/internal/invocation"
	"github.com/staranto/tesscache/internal/meta"
)

// WrapCommandAction serves a tesseract command line. Anything that does not
// describe a file-to-file run goes straight to the engine.
func WrapCommandAction(ctx context.Context, cmd *cli.Command) error {
	args := append([]string{cmd.String("engine")}, cmd.Args().Slice()...)
	log.Debugf("wrap: %v", args)

	inv, err := invocation.Parse(args)
	if errors.Is(err, invocation.ErrNotCacheable) {
		eng := NewEngine(cmd)
		code, err := eng.Run(ctx, args[1:])
		if err != nil {
			log.WithError(err).Errorf("%s failed", eng.Name())
			if code == 0 {
				code = 1
			}
		}
		setStatus(cmd, code)
		return nil
	}
	if err != nil {
		return err
	}

	code, err := NewCache(cmd).Wrap(ctx, inv)
	if err != nil {
		return err
	}
	setStatus(cmd, code)
	return nil
}

// WrapCommandBuilder constructs the "wrap" command. It takes its arguments
// verbatim, so root flags must come before it.
func WrapCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:            "wrap",
		Usage:           "run a tesseract command line through the cache",
		UsageText:       "tesscache [root options] wrap INPUT OUTPUTBASE [-l LANG] [OPTIONS...] [txt|hocr|pdf]",
		SkipFlagParsing: true,
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: WrapCommandAction,
	}
}
