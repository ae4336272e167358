// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/staranto/tesscache/internal/cachekey"
)

// Entry represents a cached artifact on disk.
type Entry struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Lang      string    `json:"lang"`
	Languages []string  `json:"languages"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Options   string    `json:"options"`
	Size      int64     `json:"size"`
	Modified  time.Time `json:"modified"`
}

// Key returns the cache key the entry is stored under.
func (e Entry) Key() cachekey.Key {
	return cachekey.Key{
		ContentDigest: e.Content,
		OptionsDigest: e.Options,
		Lang:          e.Lang,
		Kind:          cachekey.Kind(e.Kind),
	}
}

// TempFile is in-flight engine output or an interrupted copy.
type TempFile struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Listing is one scan of a cache directory.
type Listing struct {
	Dir     string
	Entries []Entry
	Temps   []TempFile
	// Foreign counts files that are neither entries nor temp files.
	Foreign int
}

// List scans dir. A missing directory is an empty listing. Entries are sorted
// by name.
func List(dir string) (Listing, error) {
	l := Listing{Dir: dir}

	des, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("cache directory %s does not exist", dir)
			return l, nil
		}
		return l, fmt.Errorf("failed to list cache directory: %w", err)
	}

	for _, de := range des {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}

		name := de.Name()
		if strings.HasPrefix(name, cachekey.TempPrefix) {
			l.Temps = append(l.Temps, TempFile{Name: name, Size: info.Size(), Modified: info.ModTime()})
			continue
		}

		key, ok := cachekey.ParseFilename(name)
		if !ok {
			l.Foreign++
			continue
		}

		langs := make([]string, 0, 2)
		for lang := range cachekey.ParseLanguages(key.Lang) {
			langs = append(langs, lang)
		}
		sort.Strings(langs)

		l.Entries = append(l.Entries, Entry{
			Name:      name,
			Path:      filepath.Join(dir, name),
			Lang:      key.Lang,
			Languages: langs,
			Kind:      string(key.Kind),
			Content:   key.ContentDigest,
			Options:   key.OptionsDigest,
			Size:      info.Size(),
			Modified:  info.ModTime(),
		})
	}

	return l, nil
}

// Stats summarizes a Listing.
type Stats struct {
	Dir        string         `json:"dir"`
	Entries    int            `json:"entries"`
	Bytes      int64          `json:"bytes"`
	Contents   int            `json:"contents"`
	ByLang     map[string]int `json:"by_lang"`
	ByKind     map[string]int `json:"by_kind"`
	Temps      int            `json:"temps"`
	TempBytes  int64          `json:"temp_bytes"`
	StaleTemps int            `json:"stale_temps"`
	Foreign    int            `json:"foreign"`
}

// Summarize counts entries by language tag and kind. Temp files older than
// staleAfter relative to now are counted as stale; they are left behind by
// interrupted runs.
func (l Listing) Summarize(staleAfter time.Duration, now time.Time) Stats {
	s := Stats{
		Dir:     l.Dir,
		ByLang:  map[string]int{},
		ByKind:  map[string]int{},
		Foreign: l.Foreign,
	}

	contents := map[string]struct{}{}
	for _, e := range l.Entries {
		s.Entries++
		s.Bytes += e.Size
		s.ByLang[e.Lang]++
		s.ByKind[e.Kind]++
		contents[e.Content] = struct{}{}
	}
	s.Contents = len(contents)

	for _, t := range l.Temps {
		s.Temps++
		s.TempBytes += t.Size
		if staleAfter > 0 && now.Sub(t.Modified) > staleAfter {
			s.StaleTemps++
		}
	}

	return s
}
