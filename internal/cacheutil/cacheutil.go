// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/apex/log"

	"github.com/staranto/tesscache/internal/cachekey"
)

// EnvCacheDir names the variable that overrides every other cache directory
// source.
const EnvCacheDir = "TESSERACT_CACHE_DIR"

// DefaultDir is used when neither the environment, a flag nor the config file
// names a directory.
const DefaultDir = "/var/cache/tesseract"

// Dir resolves the cache directory.
// Precedence:
//  1. TESSERACT_CACHE_DIR, if set and non-empty
//  2. configured, if non-empty (flag or config file)
//  3. DefaultDir
func Dir(configured string) string {
	if c, ok := os.LookupEnv(EnvCacheDir); ok && c != "" {
		return c
	}
	if configured != "" {
		return configured
	}
	return DefaultDir
}

// EnsureDir creates dir if needed.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

// PersistCause classifies why a cache write failed.
type PersistCause string

const (
	CauseDiskFull     PersistCause = "disk is full"
	CauseWriteFailure PersistCause = "write failed"
)

// PersistError reports a failed write into the cache. It never invalidates a
// result that was already computed.
type PersistError struct {
	Path  string
	Cause PersistCause
	Err   error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("cache persist error (%s) for %s: %v", e.Cause, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

func newPersistError(path string, err error) *PersistError {
	cause := CauseWriteFailure
	if errors.Is(err, syscall.ENOSPC) {
		cause = CauseDiskFull
	}
	return &PersistError{Path: path, Cause: cause, Err: err}
}

// Commit moves a finished file onto its final cache path. Both must live in
// the same directory so the rename is atomic and a partially written file is
// never visible under dst.
func Commit(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return newPersistError(dst, err)
	}
	return nil
}

// WriteAtomic streams r into a temp file next to dst, then renames it onto
// dst. Concurrent writers of the same key are last-writer-wins.
func WriteAtomic(dst string, r io.Reader) (err error) {
	dir := filepath.Dir(dst)
	if err := EnsureDir(dir); err != nil {
		return newPersistError(dst, err)
	}

	tmp, err := os.CreateTemp(dir, cachekey.TempPrefix+"*-"+filepath.Base(dst))
	if err != nil {
		return newPersistError(dst, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		return newPersistError(dst, err)
	}
	if err = tmp.Chmod(0o644); err != nil { //nolint:mnd
		return newPersistError(dst, err)
	}
	_ = tmp.Sync()
	if err = tmp.Close(); err != nil {
		return newPersistError(dst, err)
	}
	return Commit(tmpName, dst)
}

// CopyInto copies the file at src into the cache at dst atomically.
func CopyInto(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return newPersistError(dst, err)
	}
	defer f.Close()
	return WriteAtomic(dst, f)
}

// CopyOut copies a cache entry to an output path chosen by the caller. The
// destination is outside the cache, so it is written in place.
func CopyOut(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644) //nolint:mnd
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy cache entry: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	log.Debugf("copied %s to %s", src, dst)
	return nil
}
