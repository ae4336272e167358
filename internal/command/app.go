// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"os"
	"sort"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/tesscache/internal/config"
	"github.com/staranto/tesscache/internal/meta"
)

// InitApp builds the command tree. args must already be routed; the
// subcommand at idx is the namespace for config lookups. Exit codes that are
// not errors are recorded in status.
func InitApp(ctx context.Context, args []string, idx int, status *meta.Status) (*cli.Command, error) {
	sd, _ := os.Getwd()

	var ns string
	if idx > 0 && idx < len(args) {
		ns = args[idx]
	}

	cfg, err := config.Load(ns)
	if err != nil {
		log.Debugf("no config loaded: %v", err)
		config.Config.Namespace = ns
	}

	meta := meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		StartingDir: sd,
		Status:      status,
	}

	app := &cli.Command{
		Name:  "tesscache",
		Usage: "content-addressed cache for tesseract OCR results",
		UsageText: "tesscache [root options] command [options]\n" +
			"tesscache [root options] INPUT OUTPUTBASE [-l LANG] [OPTIONS...] [txt|hocr|pdf]",
		Flags: append(NewRootFlags(cfg.Source),
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "tesscache version info",
				HideDefault: true,
			},
		),
		Metadata: map[string]any{
			"meta": meta,
		},
	}

	app.Commands = append(app.Commands,
		OcrCommandBuilder(meta),
		KeyCommandBuilder(meta),
		ResolveCommandBuilder(meta),
		LsCommandBuilder(meta),
		StatsCommandBuilder(meta),
		MirrorCommandBuilder(meta),
		WrapCommandBuilder(meta),
		VersionCommandBuilder(meta),
		CompletionCommandBuilder(meta),
	)

	// Make sure flags are sorted for the --help text.
	sortFlags(app)

	return app, nil
}

func sortFlags(cmd *cli.Command) {
	sort.Slice(cmd.Flags, func(i, j int) bool {
		return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
	})
	for _, c := range cmd.Commands {
		sortFlags(c)
	}
}
