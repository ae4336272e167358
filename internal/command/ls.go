// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/tesscache/internal/inventory"
	"github.com/staranto/tesscache/internal/meta"
	"github.com/staranto/tesscache/internal/output"
)

var lsDefaultAttrs = []string{"lang,kind,content::-12,options::-12,size::h,modified::h"}

// LsCommandAction lists the entries of the cache directory.
func LsCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args)

	if ShortCircuitTLDR(ctx, cmd, "ls") {
		return nil
	}

	al, err := BuildAttrs(cmd, lsDefaultAttrs...)
	if err != nil {
		return err
	}
	log.Debugf("attrs: %v", al)

	dir := CacheDir(cmd)
	if dir == "" {
		return errors.New("caching is disabled")
	}

	listing, err := inventory.List(dir)
	if err != nil {
		return err
	}

	entries := listing.Entries
	if entries == nil {
		entries = []inventory.Entry{}
	}

	var raw bytes.Buffer
	if err := json.NewEncoder(&raw).Encode(entries); err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}

	return output.SliceDiceSpit(raw, al, cmd, stdout(cmd))
}

// LsCommandBuilder constructs the "ls" command.
func LsCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "ls",
		Usage:     "list cache entries",
		UsageText: "tesscache ls [options]",
		Flags:     NewOutputFlags("ls"),
		Action:    LsCommandAction,
		Meta:      meta,
	}).Build()
}
