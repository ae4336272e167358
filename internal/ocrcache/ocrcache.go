// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package ocrcache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"
	"lukechampine.com/blake3"

	"github.com/staranto/tesscache/internal/cacheutil"
	"github.com/staranto/tesscache/internal/cachekey"
	"github.com/staranto/tesscache/internal/engine"
	"github.com/staranto/tesscache/internal/resolver"
)

// Options configures a Cache.
type Options struct {
	// Dir is the cache directory. Empty disables caching; the engine still
	// runs, writing into the OS temp dir.
	Dir string
	// UserWords is passed to the engine as --user-words in library mode.
	UserWords string
	// Timeout bounds a single engine run. Zero means no limit.
	Timeout time.Duration
	// ReadOnly serves hits but never persists new results.
	ReadOnly bool
}

// Cache coordinates lookups, engine runs and persistence.
type Cache struct {
	engine    engine.Engine
	dir       string
	userWords string
	timeout   time.Duration
	readOnly  bool
	pid       int

	// group lets concurrent requests for one key share a single engine run.
	group singleflight.Group
}

// Result is the outcome of GetText.
type Result struct {
	Text     string
	ExitCode int
	Hit      bool
	// Path is the cache entry served or written. Empty when nothing was
	// persisted.
	Path string
}

// New returns a Cache running eng on misses.
func New(eng engine.Engine, opts Options) *Cache {
	return &Cache{
		engine:    eng,
		dir:       opts.Dir,
		userWords: opts.UserWords,
		timeout:   opts.Timeout,
		readOnly:  opts.ReadOnly,
		pid:       os.Getpid(),
	}
}

// Dir returns the cache directory, empty when caching is disabled.
func (c *Cache) Dir() string {
	return c.dir
}

// FailureText is the result text of a failed engine run.
func FailureText(path string) string {
	return fmt.Sprintf("Error: OCR failed for %s\n", path)
}

// flight is the shared outcome of one engine run and the input it ran on.
type flight struct {
	res  Result
	path string
}

// GetText returns the recognized text for the file at path, running the
// engine only when no covering cache entry exists. Only a missing input is an
// error; engine failures come back as a Result with a non-zero ExitCode. A
// language tag that cannot be part of a cache filename bypasses the cache.
//
// Concurrent calls for the same key share one engine run, which uses the ctx
// of the call that started it. Cancelling that ctx fails every call waiting
// on the run.
func (c *Cache) GetText(ctx context.Context, path, lang string, kind cachekey.Kind) (Result, error) {
	key, err := c.Key(path, lang, kind)
	if errors.Is(err, cachekey.ErrUnsafeLang) {
		log.WithError(err).Warnf("not caching OCR result for %s", path)
		if kind == "" {
			kind = cachekey.KindText
		}
		return c.runUncached(ctx, path, cachekey.Key{Lang: lang, Kind: kind}), nil
	}
	if err != nil {
		return Result{}, err
	}

	if c.dir == "" {
		return c.runUncached(ctx, path, key), nil
	}

	if res, ok := c.lookup(key); ok {
		log.Infof("using OCR result for content of %s from cache %s", path, res.Path)
		return res, nil
	}

	v, _, _ := c.group.Do("text:"+key.Filename(), func() (any, error) {
		// A request that finished while we were scanning may have persisted
		// the entry already.
		if res, ok := c.lookup(key); ok {
			return flight{res: res, path: path}, nil
		}
		return flight{res: c.compute(ctx, path, key), path: path}, nil
	})
	f := v.(flight) //nolint:forcetypeassert

	// Failure text from a run started by another caller names its input.
	if f.res.ExitCode != 0 && f.path != path {
		f.res.Text = FailureText(path) + strings.TrimPrefix(f.res.Text, FailureText(f.path))
	}
	return f.res, nil
}

// Key derives the cache key GetText uses for path.
func (c *Cache) Key(path, lang string, kind cachekey.Kind) (cachekey.Key, error) {
	if lang == "" {
		lang = "eng"
	}
	return cachekey.Derive(path, c.libraryOptions(), lang, kind)
}

// libraryOptions are the passthrough options of a library-mode run; they
// feed the options digest.
func (c *Cache) libraryOptions() string {
	if c.userWords == "" {
		return ""
	}
	return "--user-words " + c.userWords
}

func (c *Cache) engineArgs(path, base string, key cachekey.Key) []string {
	args := []string{path, base, "-l", key.Lang}
	if c.userWords != "" {
		args = append(args, "--user-words", c.userWords)
	}
	if key.Kind != cachekey.KindText {
		args = append(args, string(key.Kind))
	}
	return args
}

// lookup resolves key and reads the entry. A resolved entry that cannot be
// read, for example because it vanished after the scan, counts as a miss.
func (c *Cache) lookup(key cachekey.Key) (Result, bool) {
	res, err := resolver.Resolve(c.dir, key)
	if err != nil {
		log.WithError(err).Warnf("cache lookup failed for %s", key.Filename())
		return Result{}, false
	}
	if !res.Found {
		return Result{}, false
	}

	text, err := os.ReadFile(res.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("cache entry %s disappeared before read", res.Path)
		} else {
			log.WithError(err).Warnf("failed to read cache entry %s", res.Path)
		}
		return Result{}, false
	}
	log.Debugf("characters recognized: %d", len(text))
	return Result{Text: string(text), Hit: true, Path: res.Path}, true
}

// compute runs the engine into a temp file inside the cache dir and renames
// the output onto the canonical name of the exact request.
func (c *Cache) compute(ctx context.Context, path string, key cachekey.Key) Result {
	if err := cacheutil.EnsureDir(c.dir); err != nil {
		log.WithError(err).Warnf("cache unavailable, running without it")
		return c.runUncached(ctx, path, key)
	}

	base := filepath.Join(c.dir, c.tempName(path)+"-"+strings.TrimSuffix(key.Filename(), "."+string(key.Kind)))
	out := base + "." + string(key.Kind)
	defer func() { _ = os.Remove(out) }()

	log.Infof("OCR result for %s not in cache, running %s", path, c.engine.Name())
	code := c.run(ctx, c.engineArgs(path, base, key))
	if code != 0 {
		return failed(path, out, code)
	}

	if c.readOnly {
		return Result{Text: readOutput(out)}
	}

	dst := filepath.Join(c.dir, key.Filename())
	if err := cacheutil.Commit(out, dst); err != nil {
		log.WithError(err).Warnf("failed to persist OCR result for %s", path)
		return Result{Text: readOutput(out)}
	}
	log.Debugf("stored OCR result for %s as %s", path, dst)
	return Result{Text: readOutput(dst), Path: dst}
}

func (c *Cache) runUncached(ctx context.Context, path string, key cachekey.Key) Result {
	base := filepath.Join(os.TempDir(), "tesscache_"+c.tempName(path))
	out := base + "." + string(key.Kind)
	defer func() { _ = os.Remove(out) }()

	code := c.run(ctx, c.engineArgs(path, base, key))
	if code != 0 {
		return failed(path, out, code)
	}
	return Result{Text: readOutput(out)}
}

// run invokes the engine under the configured timeout and folds start
// failures into a non-zero exit code.
func (c *Cache) run(ctx context.Context, args []string) int {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	code, err := c.engine.Run(ctx, args)
	if err != nil {
		log.WithError(err).Errorf("%s did not complete", c.engine.Name())
		if code == 0 {
			code = 1
		}
	}
	return code
}

// tempName is unique per process and input path so concurrent invocations on
// one host never share an output file.
func (c *Cache) tempName(path string) string {
	sum := blake3.Sum256([]byte(path))
	return fmt.Sprintf("%s%d-%s", cachekey.TempPrefix, c.pid, hex.EncodeToString(sum[:8]))
}

func failed(path, out string, code int) Result {
	text := FailureText(path)
	log.Errorf("OCR failed for %s with exit status %d", path, code)
	if partial := readOutput(out); partial != "" {
		text += partial
	}
	return Result{Text: text, ExitCode: code}
}

func readOutput(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.WithError(err).Warnf("failed to read OCR output %s", path)
		}
		return ""
	}
	log.Debugf("characters recognized: %d", len(b))
	return string(b)
}
