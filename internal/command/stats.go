// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v2"

	"github.com/staranto/tesscache/internal/inventory"
	"github.com/staranto/tesscache/internal/meta"
	"github.com/staranto/tesscache/internal/output"
)

// StatsCommandAction summarizes the cache directory.
func StatsCommandAction(ctx context.Context, cmd *cli.Command) error {
	if ShortCircuitTLDR(ctx, cmd, "stats") {
		return nil
	}

	dir := CacheDir(cmd)
	if dir == "" {
		return errors.New("caching is disabled")
	}

	listing, err := inventory.List(dir)
	if err != nil {
		return err
	}
	stats := listing.Summarize(cmd.Duration("stale-after"), time.Now())

	w := stdout(cmd)
	switch cmd.String("output") {
	case "json", "raw":
		b, err := json.Marshal(stats)
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		b, err := yaml.Marshal(stats)
		if err != nil {
			return fmt.Errorf("failed to marshal yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	}

	al, err := BuildAttrs(cmd, "metric,value")
	if err != nil {
		return err
	}

	var raw bytes.Buffer
	if err := json.NewEncoder(&raw).Encode(statsRows(stats)); err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	return output.SliceDiceSpit(raw, al, cmd, w)
}

// statsRows flattens stats into metric/value pairs for the table.
func statsRows(s inventory.Stats) []map[string]string {
	rows := []map[string]string{
		{"metric": "dir", "value": s.Dir},
		{"metric": "entries", "value": strconv.Itoa(s.Entries)},
		{"metric": "size", "value": humanize.IBytes(uint64(s.Bytes))},
		{"metric": "contents", "value": strconv.Itoa(s.Contents)},
	}

	for _, m := range []struct {
		prefix string
		counts map[string]int
	}{
		{"lang", s.ByLang},
		{"kind", s.ByKind},
	} {
		keys := make([]string, 0, len(m.counts))
		for k := range m.counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rows = append(rows, map[string]string{
				"metric": m.prefix + " " + k,
				"value":  strconv.Itoa(m.counts[k]),
			})
		}
	}

	rows = append(rows,
		map[string]string{"metric": "temps", "value": fmt.Sprintf("%d (%s)", s.Temps, humanize.IBytes(uint64(s.TempBytes)))},
		map[string]string{"metric": "stale temps", "value": strconv.Itoa(s.StaleTemps)},
		map[string]string{"metric": "foreign", "value": strconv.Itoa(s.Foreign)},
	)
	return rows
}

// StatsCommandBuilder constructs the "stats" command.
func StatsCommandBuilder(meta meta.Meta) *cli.Command {
	return (&CommandBuilder{
		Name:      "stats",
		Usage:     "summarize the cache directory",
		UsageText: "tesscache stats [options]",
		Flags: append(NewOutputFlags("stats"),
			&cli.DurationFlag{
				Name:  "stale-after",
				Usage: "age after which a temp file counts as left behind",
				Value: time.Hour,
			},
		),
		Action: StatsCommandAction,
		Meta:   meta,
	}).Build()
}
