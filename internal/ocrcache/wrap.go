// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package ocrcache

import (
	"context"
	"path/filepath"

	"github.com/apex/log"

	"github.com/staranto/tesscache/internal/cachekey"
	"github.com/staranto/tesscache/internal/cacheutil"
	"github.com/staranto/tesscache/internal/invocation"
	"github.com/staranto/tesscache/internal/resolver"
)

type wrapOutcome struct {
	code   int
	output string
	entry  string
}

// Wrap serves a tesseract command line from the cache. On a hit the entry is
// copied to the requested output and 0 is returned without running the
// engine. On a miss the engine runs with the original arguments and a
// successful result is copied into the cache. The engine's exit code is
// returned unchanged. A failure to persist is logged and never changes the
// exit code.
func (c *Cache) Wrap(ctx context.Context, inv invocation.Invocation) (int, error) {
	key, err := c.wrapKey(inv)
	if err != nil {
		return 1, err
	}

	if c.dir == "" {
		return c.run(ctx, inv.EngineArgs()), nil
	}

	if c.serve(key, inv) {
		return 0, nil
	}

	v, _, _ := c.group.Do("wrap:"+key.Filename(), func() (any, error) {
		if res, err := resolver.Resolve(c.dir, key); err == nil && res.Found {
			return wrapOutcome{entry: res.Path}, nil
		}

		log.Infof("OCR result for %s not in cache, running %s", inv.Input, c.engine.Name())
		o := wrapOutcome{code: c.run(ctx, inv.EngineArgs()), output: inv.OutputPath()}
		if o.code != 0 {
			log.Errorf("%s", FailureText(inv.Input))
			return o, nil
		}
		if c.readOnly {
			return o, nil
		}

		dst := filepath.Join(c.dir, key.Filename())
		if err := cacheutil.CopyInto(o.output, dst); err != nil {
			log.WithError(err).Warnf("failed to store OCR result for %s", inv.Input)
			return o, nil
		}
		log.Debugf("stored OCR result for %s as %s", inv.Input, dst)
		o.entry = dst
		return o, nil
	})
	o := v.(wrapOutcome) //nolint:forcetypeassert

	switch {
	case o.output == inv.OutputPath():
		// This call ran the engine, or shared a run writing the same output.
		return o.code, nil
	case o.code != 0:
		return o.code, nil
	case o.entry != "":
		if err := cacheutil.CopyOut(o.entry, inv.OutputPath()); err == nil {
			return 0, nil
		}
	}

	// The shared run left nothing this call can copy.
	return c.run(ctx, inv.EngineArgs()), nil
}

// wrapKey digests the passthrough options of the command line, so runs that
// differ only in -l can serve each other through superset resolution.
func (c *Cache) wrapKey(inv invocation.Invocation) (cachekey.Key, error) {
	return cachekey.Derive(inv.Input, inv.Options, inv.Lang, inv.Kind)
}

// serve copies a covering entry to the invocation's output.
func (c *Cache) serve(key cachekey.Key, inv invocation.Invocation) bool {
	res, err := resolver.Resolve(c.dir, key)
	if err != nil {
		log.WithError(err).Warnf("cache lookup failed for %s", key.Filename())
		return false
	}
	if !res.Found {
		return false
	}
	if err := cacheutil.CopyOut(res.Path, inv.OutputPath()); err != nil {
		log.WithError(err).Warnf("failed to copy cache entry %s", res.Path)
		return false
	}
	log.Infof("copying OCR result for content of %s from cache %s to %s", inv.Input, res.Path, inv.OutputPath())
	return true
}
