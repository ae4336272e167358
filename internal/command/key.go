// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/staranto/tesscache/internal/meta"
	"github.com/staranto/tesscache/internal/resolver"
)

func singleFile(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", errors.New("exactly one FILE is required")
	}
	return cmd.Args().First(), nil
}

// KeyCommandAction prints the canonical cache filename for FILE.
func KeyCommandAction(ctx context.Context, cmd *cli.Command) error {
	if ShortCircuitTLDR(ctx, cmd, "key") {
		return nil
	}

	f, err := singleFile(cmd)
	if err != nil {
		return err
	}

	key, err := deriveKey(cmd, f)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout(cmd), key.Filename())
	return nil
}

// ResolveCommandAction prints the entry a lookup for FILE would be served
// from. Like grep, it exits 1 when nothing covers the request.
func ResolveCommandAction(ctx context.Context, cmd *cli.Command) error {
	if ShortCircuitTLDR(ctx, cmd, "resolve") {
		return nil
	}

	f, err := singleFile(cmd)
	if err != nil {
		return err
	}

	key, err := deriveKey(cmd, f)
	if err != nil {
		return err
	}

	dir := CacheDir(cmd)
	if dir == "" {
		return errors.New("caching is disabled")
	}

	res, err := resolver.Resolve(dir, key)
	if err != nil {
		return err
	}

	if res.Found {
		fmt.Fprintf(stdout(cmd), "hit %s\n", res.Path)
		return nil
	}
	fmt.Fprintf(stdout(cmd), "miss %s\n", filepath.Join(dir, key.Filename()))
	setStatus(cmd, 1)
	return nil
}

func keyFlags(ns string) []cli.Flag {
	return []cli.Flag{
		NewLangFlag(ns),
		NewKindFlag(ns),
		&cli.StringFlag{
			Name:  "options",
			Usage: "passthrough options of a wrapped run, without -l and the kind",
		},
	}
}

// KeyCommandBuilder constructs the "key" command.
func KeyCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "key",
		Usage:     "print the cache filename for a file",
		UsageText: "tesscache key [--lang LANG] [--kind KIND] [--options OPTS] FILE",
		Flags:     keyFlags("key"),
		Action:    KeyCommandAction,
		Meta:      meta,
	}).Build()
}

// ResolveCommandBuilder constructs the "resolve" command.
func ResolveCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "resolve",
		Usage:     "show which cache entry would serve a file",
		UsageText: "tesscache resolve [--lang LANG] [--kind KIND] [--options OPTS] FILE",
		Flags:     keyFlags("resolve"),
		Action:    ResolveCommandAction,
		Meta:      meta,
	}).Build()
}
