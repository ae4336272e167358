// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/tesscache/internal/attrs"
	"github.com/staranto/tesscache/internal/cachekey"
	"github.com/staranto/tesscache/internal/cacheutil"
	"github.com/staranto/tesscache/internal/engine"
	"github.com/staranto/tesscache/internal/meta"
	"github.com/staranto/tesscache/internal/ocrcache"
)

// ShortCircuitTLDR checks the --tldr flag and, if present and available,
// runs `tldr tesscache <subcmd>` and returns true so the caller can exit early.
func ShortCircuitTLDR(ctx context.Context, cmd *cli.Command, subcmd string) bool {
	if cmd.Bool("tldr") {
		if _, err := exec.LookPath("tldr"); err == nil {
			c := exec.CommandContext(ctx, "tldr", "tesscache", subcmd)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			_ = c.Run()
		}
		return true
	}
	return false
}

// BuildAttrs constructs an AttrList with defaults and optional extras from
// --attrs, then applies the global transform spec.
func BuildAttrs(cmd *cli.Command, defaults ...string) (al attrs.AttrList, err error) {
	for _, d := range defaults {
		if err = al.Set(d); err != nil {
			return nil, err
		}
	}
	if extras := cmd.String("attrs"); extras != "" {
		if err = al.Set(extras); err != nil {
			return nil, fmt.Errorf("invalid --attrs: %w", err)
		}
	}
	err = al.SetGlobalTransformSpec()
	return
}

// GetMeta returns the meta.Meta stored in the command's Metadata, looking up
// the lineage so nested commands share their parent's. If missing or of an
// unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil {
		return meta.Meta{}
	}
	for _, c := range cmd.Lineage() {
		if c.Metadata == nil {
			continue
		}
		if m, ok := c.Metadata["meta"].(meta.Meta); ok {
			return m
		}
	}
	return meta.Meta{}
}

// CacheDir resolves the cache directory from --cache-dir and the environment.
// It is empty when --no-cache is given.
func CacheDir(cmd *cli.Command) string {
	if !cmd.Bool("cache") {
		return ""
	}
	return cacheutil.Dir(cmd.String("cache-dir"))
}

// NewEngine builds the engine selected by --engine-kind.
func NewEngine(cmd *cli.Command) engine.Engine {
	if cmd.String("engine-kind") == "placeholder" {
		return engine.Placeholder{}
	}
	e := engine.NewExec(cmd.String("engine"))
	e.Stdout = stdout(cmd)
	e.Stderr = stderr(cmd)
	return e
}

// NewCache builds the orchestrator from the root flags. A placeholder engine
// never produces real text, so its cache is read-only.
func NewCache(cmd *cli.Command) *ocrcache.Cache {
	eng := NewEngine(cmd)
	_, placeholder := eng.(engine.Placeholder)

	c := ocrcache.New(eng, ocrcache.Options{
		Dir:       CacheDir(cmd),
		UserWords: cmd.String("user-words"),
		Timeout:   cmd.Duration("timeout"),
		ReadOnly:  placeholder,
	})
	log.Debugf("cache dir: %q, engine: %s, read-only: %v", c.Dir(), eng.Name(), placeholder)
	return c
}

// deriveKey is the key a lookup for the file would use. --options replaces
// the library-mode options so wrapper-mode entries can be inspected too.
func deriveKey(cmd *cli.Command, path string) (cachekey.Key, error) {
	kind, _ := cachekey.ParseKind(cmd.String("kind"))
	if cmd.IsSet("options") {
		return cachekey.Derive(path, cmd.String("options"), cmd.String("lang"), kind)
	}
	return NewCache(cmd).Key(path, cmd.String("lang"), kind)
}

// setStatus records an exit code for realMain.
func setStatus(cmd *cli.Command, code int) {
	GetMeta(cmd).Status.Set(code)
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stderr(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

// CommandBuilder constructs a cli.Command for subcommands using a consistent
// pattern. The builder wires metadata and adds the tldr flag.
type CommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (cb *CommandBuilder) Build() *cli.Command {
	return &cli.Command{
		Name:      cb.Name,
		Usage:     cb.Usage,
		UsageText: cb.UsageText,
		Metadata: map[string]any{
			"meta": cb.Meta,
		},
		Flags:  append(cb.Flags, newTldrFlag()),
		Action: cb.Action,
	}
}
