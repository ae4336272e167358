// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package ocrcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/tesscache/internal/cachekey"
	"github.com/staranto/tesscache/internal/invocation"
)

func parse(t *testing.T, args ...string) invocation.Invocation {
	t.Helper()
	inv, err := invocation.Parse(append([]string{"tesseract"}, args...))
	require.NoError(t, err)
	return inv
}

func TestWrap_MissThenHit(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	eng := &fakeEngine{text: "recognized"}
	c := New(eng, Options{Dir: dir})
	path := input(t, "image bytes")

	inv := parse(t, path, filepath.Join(out, "first"), "-l", "eng+deu", "--psm", "6")
	code, err := c.Wrap(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	got, err := os.ReadFile(filepath.Join(out, "first.txt"))
	require.NoError(t, err)
	assert.Equal(t, "recognized", string(got))

	key, err := cachekey.Derive(path, "--psm 6", "eng+deu", cachekey.KindText)
	require.NoError(t, err)
	assert.Equal(t, []string{key.Filename()}, entries(t, dir))

	// A narrower language request with the same options is served from the
	// entry above.
	inv = parse(t, path, filepath.Join(out, "second"), "--psm", "6", "-l", "deu")
	code, err = c.Wrap(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.EqualValues(t, 1, eng.calls.Load())

	got, err = os.ReadFile(filepath.Join(out, "second.txt"))
	require.NoError(t, err)
	assert.Equal(t, "recognized", string(got))
}

func TestWrap_OptionsChangeKey(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	eng := &fakeEngine{text: "r"}
	c := New(eng, Options{Dir: dir})
	path := input(t, "image bytes")

	for _, psm := range []string{"6", "7"} {
		_, err := c.Wrap(context.Background(), parse(t, path, filepath.Join(out, "o"), "--psm", psm))
		require.NoError(t, err)
	}
	assert.EqualValues(t, 2, eng.calls.Load())
	assert.Len(t, entries(t, dir), 2)
}

func TestWrap_EngineFailure(t *testing.T) {
	dir := t.TempDir()
	eng := &fakeEngine{text: "junk", code: 3}
	c := New(eng, Options{Dir: dir})
	path := input(t, "image bytes")

	code, err := c.Wrap(context.Background(), parse(t, path, filepath.Join(t.TempDir(), "o"), "pdf"))
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Empty(t, entries(t, dir))
}

func TestWrap_MissingInput(t *testing.T) {
	eng := &fakeEngine{}
	c := New(eng, Options{Dir: t.TempDir()})

	_, err := c.Wrap(context.Background(), parse(t, filepath.Join(t.TempDir(), "nope.png"), "o"))
	require.ErrorIs(t, err, cachekey.ErrInputNotFound)
	assert.Zero(t, eng.calls.Load())
}

func TestWrap_ReadOnly(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	eng := &fakeEngine{text: "placeholder"}
	c := New(eng, Options{Dir: dir, ReadOnly: true})
	path := input(t, "image bytes")

	code, err := c.Wrap(context.Background(), parse(t, path, filepath.Join(out, "o")))
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.FileExists(t, filepath.Join(out, "o.txt"))
	assert.Empty(t, entries(t, dir))
}

func TestWrap_Disabled(t *testing.T) {
	out := t.TempDir()
	eng := &fakeEngine{text: "direct"}
	c := New(eng, Options{})
	path := input(t, "image bytes")

	code, err := c.Wrap(context.Background(), parse(t, path, filepath.Join(out, "o"), "hocr"))
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	got, err := os.ReadFile(filepath.Join(out, "o.hocr"))
	require.NoError(t, err)
	assert.Equal(t, "direct", string(got))
}

func TestWrap_UnsafeLangNotCacheable(t *testing.T) {
	path := input(t, "image bytes")
	for _, lang := range []string{"script/Latin", "../escaped"} {
		_, err := invocation.Parse([]string{"tesseract", path, "out", "-l", lang})
		assert.ErrorIs(t, err, invocation.ErrNotCacheable, lang)
	}
}

func TestWrap_PersistFailure(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	eng := &fakeEngine{text: "fresh"}
	c := New(eng, Options{Dir: dir})
	path := input(t, "image bytes")

	key, err := cachekey.Derive(path, "", "eng", cachekey.KindText)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, key.Filename(), "x"), 0o755))

	code, err := c.Wrap(context.Background(), parse(t, path, filepath.Join(out, "o")))
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	got, err := os.ReadFile(filepath.Join(out, "o.txt"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))
	assert.Equal(t, []string{key.Filename()}, entries(t, dir))
}

func TestWrap_ConcurrentSameKey(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	eng := &fakeEngine{text: "once", delay: 50 * time.Millisecond}
	c := New(eng, Options{Dir: dir})
	path := input(t, "image bytes")

	invs := make([]invocation.Invocation, 5)
	for i := range invs {
		invs[i] = parse(t, path, filepath.Join(out, fmt.Sprintf("o%d", i)))
	}

	var wg sync.WaitGroup
	codes := make([]int, len(invs))
	for i, inv := range invs {
		wg.Add(1)
		go func(i int, inv invocation.Invocation) {
			defer wg.Done()
			code, err := c.Wrap(context.Background(), inv)
			assert.NoError(t, err)
			codes[i] = code
		}(i, inv)
	}
	wg.Wait()

	assert.EqualValues(t, 1, eng.calls.Load())
	assert.Len(t, entries(t, dir), 1)
	for i, code := range codes {
		assert.Equal(t, 0, code)
		got, err := os.ReadFile(filepath.Join(out, fmt.Sprintf("o%d.txt", i)))
		require.NoError(t, err)
		assert.Equal(t, "once", string(got))
	}
}
