// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package resolver finds the cache entry that best serves a request, allowing
// entries recognized with more languages than requested to stand in for the
// exact one.
package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/tesscache/internal/cachekey"
)

// Resolution is the outcome of a lookup. When Found is false, Path is the
// naive filename for the exact request, which is also where a fresh result
// belongs.
type Resolution struct {
	Path  string
	Found bool
}

// Resolve scans dir for entries sharing key's content, options and kind, keeps
// those whose language set covers key.Lang, and returns the one with the
// shortest filename (lexicographically first on ties). A missing dir is a
// miss.
func Resolve(dir string, key cachekey.Key) (Resolution, error) {
	naive := Resolution{Path: filepath.Join(dir, key.Filename())}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return naive, nil
		}
		return naive, fmt.Errorf("failed to list cache directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}

	best, ok := Best(names, key)
	if !ok {
		log.Debugf("no candidate for %s in %s", key.Filename(), dir)
		return naive, nil
	}

	log.Debugf("resolved %s to %s", key.Filename(), best)
	return Resolution{Path: filepath.Join(dir, best), Found: true}, nil
}

// Best picks the minimal covering candidate from names. It is the pure part of
// Resolve.
func Best(names []string, key cachekey.Key) (string, bool) {
	required := cachekey.ParseLanguages(key.Lang)
	suffix := key.Suffix()

	var best string
	found := false
	for _, name := range names {
		if !strings.HasSuffix(name, suffix) || strings.HasPrefix(name, cachekey.TempPrefix) {
			continue
		}
		provided := cachekey.ParseLanguages(cachekey.LangOf(name))
		if !provided.Covers(required) {
			continue
		}
		if !found || len(name) < len(best) || (len(name) == len(best) && name < best) {
			best = name
			found = true
		}
	}
	return best, found
}
