// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/staranto/tesscache/internal/cacheutil"
	"github.com/staranto/tesscache/internal/config"
	"github.com/staranto/tesscache/internal/engine"
	"github.com/staranto/tesscache/internal/meta"
	"github.com/staranto/tesscache/internal/mirror"
)

// engineScript behaves enough like tesseract for the cache: it writes a
// result named after the input to <base>.<kind>, lists languages for flag-only
// command lines and logs every call next to itself.
const engineScript = `#!/bin/sh
echo "$@" >> "$(dirname "$0")/calls"
case "$1" in -*) echo "eng"; exit 0;; esac
[ -n "$TESS_FAIL" ] && { echo partial > "$2.txt"; exit 3; }
kind=txt
for a in "$@"; do case "$a" in hocr|pdf) kind=$a;; esac; done
printf 'text of %s' "$(basename "$1")" > "$2.$kind"
`

type env struct {
	engineDir string
	cacheDir  string
	inputDir  string
}

func setup(t *testing.T) env {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	e := env{engineDir: t.TempDir(), cacheDir: t.TempDir(), inputDir: t.TempDir()}

	script := filepath.Join(e.engineDir, "tesseract")
	require.NoError(t, os.WriteFile(script, []byte(engineScript), 0o755))

	cfg, err := filepath.Abs(filepath.Join("testdata", "tesscache.yaml"))
	require.NoError(t, err)
	t.Setenv(config.EnvPath, cfg)
	t.Setenv(cacheutil.EnvCacheDir, e.cacheDir)
	t.Setenv("TESSCACHE_ENGINE", script)
	t.Setenv("TESS_FAIL", "")
	config.Config = config.Type{}
	t.Cleanup(func() { config.Config = config.Type{} })

	return e
}

func (e env) input(t *testing.T, name, data string) string {
	t.Helper()
	p := filepath.Join(e.inputDir, name)
	require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	return p
}

func (e env) calls(t *testing.T) int {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(e.engineDir, "calls"))
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return strings.Count(string(b), "\n")
}

func (e env) entries(t *testing.T) []string {
	t.Helper()
	des, err := os.ReadDir(e.cacheDir)
	require.NoError(t, err)
	var names []string
	for _, de := range des {
		names = append(names, de.Name())
	}
	return names
}

// run routes and runs a tesscache command line, returning stdout and the
// recorded exit status.
func run(t *testing.T, args ...string) (string, int, error) {
	t.Helper()

	routed, idx := Route(append([]string{"tesscache"}, args...))
	status := &meta.Status{}
	app, err := InitApp(context.Background(), routed, idx, status)
	require.NoError(t, err)

	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard

	err = app.Run(context.Background(), routed)
	return out.String(), status.Code(), err
}

func TestOcr_MissThenHit(t *testing.T) {
	e := setup(t)
	in := e.input(t, "page.png", "pixels")

	out, code, err := run(t, "ocr", in)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "text of page.png", out)
	assert.Equal(t, 1, e.calls(t))
	require.Len(t, e.entries(t), 1)
	assert.True(t, strings.HasPrefix(e.entries(t)[0], "eng-"))

	out, code, err = run(t, "ocr", in)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "text of page.png", out)
	assert.Equal(t, 1, e.calls(t), "second call is a pure hit")
}

func TestOcr_SeveralFiles(t *testing.T) {
	e := setup(t)
	a := e.input(t, "a.png", "aaa")
	b := e.input(t, "b.png", "bbb")

	out, code, err := run(t, "ocr", "--lang", "deu", a, b)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "==> "+a+" <==\ntext of a.png")
	assert.Contains(t, out, "==> "+b+" <==\ntext of b.png")

	for _, n := range e.entries(t) {
		assert.True(t, strings.HasPrefix(n, "deu-"), n)
	}
}

func TestOcr_MissingFile(t *testing.T) {
	e := setup(t)
	in := e.input(t, "a.png", "aaa")

	out, code, err := run(t, "ocr", filepath.Join(e.inputDir, "nope.png"), in)
	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "text of a.png", "remaining files are still processed")
}

func TestOcr_EngineFailure(t *testing.T) {
	e := setup(t)
	in := e.input(t, "bad.png", "garbage")
	t.Setenv("TESS_FAIL", "1")

	out, code, err := run(t, "ocr", in)
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.True(t, strings.HasPrefix(out, "Error: OCR failed for "+in+"\n"), out)
	assert.Empty(t, e.entries(t))
}

func TestOcr_NoCache(t *testing.T) {
	e := setup(t)
	in := e.input(t, "page.png", "pixels")

	for range 2 {
		out, _, err := run(t, "--no-cache", "ocr", in)
		require.NoError(t, err)
		assert.Equal(t, "text of page.png", out)
	}
	assert.Equal(t, 2, e.calls(t))
	assert.Empty(t, e.entries(t))
}

func TestOcr_Placeholder(t *testing.T) {
	e := setup(t)
	in := e.input(t, "page.png", "pixels")

	out, code, err := run(t, "--engine-kind", "placeholder", "ocr", in)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, engine.PlaceholderText, out)
	assert.Empty(t, e.entries(t), "placeholder text is never stored")

	// A real result stored earlier is served even by the placeholder.
	_, _, err = run(t, "ocr", in)
	require.NoError(t, err)
	out, _, err = run(t, "--engine-kind", "placeholder", "ocr", in)
	require.NoError(t, err)
	assert.Equal(t, "text of page.png", out)
}

func TestWrap_CommandLine(t *testing.T) {
	e := setup(t)
	in := e.input(t, "scan.png", "pixels")
	base1 := filepath.Join(t.TempDir(), "first")
	base2 := filepath.Join(t.TempDir(), "second")

	_, code, err := run(t, in, base1, "-l", "eng+deu", "hocr")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.FileExists(t, base1+".hocr")
	require.Len(t, e.entries(t), 1)
	assert.True(t, strings.HasPrefix(e.entries(t)[0], "eng+deu-"))
	assert.True(t, strings.HasSuffix(e.entries(t)[0], ".hocr"))

	// A narrower language request is served by the superset entry.
	_, code, err = run(t, "wrap", in, base2, "-l", "deu", "hocr")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, 1, e.calls(t))

	b, err := os.ReadFile(base2 + ".hocr")
	require.NoError(t, err)
	assert.Equal(t, "text of scan.png", string(b))
}

func TestWrap_EngineExitCode(t *testing.T) {
	e := setup(t)
	in := e.input(t, "bad.png", "garbage")
	t.Setenv("TESS_FAIL", "1")

	_, code, err := run(t, in, filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Empty(t, e.entries(t))
}

func TestWrap_Passthrough(t *testing.T) {
	e := setup(t)

	out, code, err := run(t, "--list-langs")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "eng\n", out)
	assert.Equal(t, 1, e.calls(t))
	assert.Empty(t, e.entries(t))
}

func TestWrap_UnsafeLangRunsUncached(t *testing.T) {
	e := setup(t)
	in := e.input(t, "scan.png", "pixels")
	base := filepath.Join(t.TempDir(), "out")

	for _, lang := range []string{"script/Latin", "script/Latin", "../escaped"} {
		_, code, err := run(t, in, base, "-l", lang)
		require.NoError(t, err)
		assert.Equal(t, 0, code)
		assert.FileExists(t, base+".txt")
	}
	assert.Equal(t, 3, e.calls(t))
	assert.Empty(t, e.entries(t))

	escaped, err := filepath.Glob(filepath.Join(filepath.Dir(e.cacheDir), "escaped-*"))
	require.NoError(t, err)
	assert.Empty(t, escaped)
}

func TestWrap_MissingInput(t *testing.T) {
	e := setup(t)

	_, _, err := run(t, filepath.Join(e.inputDir, "nope.png"), filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
	assert.Equal(t, 0, e.calls(t))
}

func TestKey(t *testing.T) {
	e := setup(t)
	in := e.input(t, "page.png", "pixels")

	out, _, err := run(t, "key", in)
	require.NoError(t, err)
	assert.Regexp(t, `^eng-[0-9a-f]{64}-[0-9a-f]{32}\.txt\n$`, out)

	withOpts, _, err := run(t, "key", "--options=--psm 6", "--kind", "pdf", in)
	require.NoError(t, err)
	assert.Regexp(t, `^eng-[0-9a-f]{64}-[0-9a-f]{32}\.pdf\n$`, withOpts)
	assert.NotEqual(t, out[4:100], withOpts[4:100])
	assert.Equal(t, out[4:68], withOpts[4:68], "same content digest")

	_, _, err = run(t, "key", in, in)
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	e := setup(t)
	in := e.input(t, "page.png", "pixels")

	out, code, err := run(t, "resolve", in)
	require.NoError(t, err)
	assert.Equal(t, 1, code)
	assert.True(t, strings.HasPrefix(out, "miss "+e.cacheDir), out)

	_, _, err = run(t, "ocr", "--lang", "eng+fra", in)
	require.NoError(t, err)

	out, code, err = run(t, "resolve", "--lang", "fra", in)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "hit "+filepath.Join(e.cacheDir, "eng+fra-")), out)
}

func TestLs(t *testing.T) {
	e := setup(t)
	_, _, err := run(t, "ocr", e.input(t, "a.png", "aaa"))
	require.NoError(t, err)
	_, _, err = run(t, "ocr", "--kind", "hocr", "--lang", "deu", e.input(t, "b.png", "bbb"))
	require.NoError(t, err)

	out, _, err := run(t, "ls", "--output", "json", "--sort", "lang")
	require.NoError(t, err)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "deu", rows[0]["lang"])
	assert.Equal(t, "hocr", rows[0]["kind"])
	assert.Equal(t, "eng", rows[1]["lang"])
	assert.Len(t, rows[1]["content"], 64)

	out, _, err = run(t, "ls", "--output", "json", "--filter", "kind=txt", "--attrs", "name")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.True(t, strings.HasSuffix(rows[0]["name"].(string), ".txt"))

	out, _, err = run(t, "ls", "--output", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "lang")
	assert.Contains(t, out, "hocr")
}

func TestLs_Empty(t *testing.T) {
	setup(t)

	out, _, err := run(t, "ls", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestStats(t *testing.T) {
	e := setup(t)
	_, _, err := run(t, "ocr", e.input(t, "a.png", "aaa"), e.input(t, "b.png", "bbb"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(e.cacheDir, "temp-1-abc-x.txt"), []byte("x"), 0o644))

	out, _, err := run(t, "stats", "-o", "json")
	require.NoError(t, err)

	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2.0, stats["entries"])
	assert.Equal(t, 2.0, stats["contents"])
	assert.Equal(t, 1.0, stats["temps"])
	assert.Equal(t, map[string]any{"eng": 2.0}, stats["by_lang"])

	out, _, err = run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "lang eng")
	assert.Contains(t, out, "stale temps")
}

type memStore struct {
	puts []string
}

func (m *memStore) ListObjectsV2(context.Context, *s3.ListObjectsV2Input, ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{}, nil
}

func (m *memStore) GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return nil, os.ErrNotExist
}

func (m *memStore) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.puts = append(m.puts, *in.Key)
	return &s3.PutObjectOutput{}, nil
}

func TestMirrorPush(t *testing.T) {
	e := setup(t)
	_, _, err := run(t, "ocr", e.input(t, "a.png", "aaa"))
	require.NoError(t, err)

	store := &memStore{}
	orig := newObjectStore
	newObjectStore = func(context.Context, *cli.Command) (mirror.ObjectStore, error) { return store, nil }
	t.Cleanup(func() { newObjectStore = orig })

	out, code, err := run(t, "mirror", "push", "--bucket", "b", "--prefix", "host")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "pushed 1 entries"), out)
	require.Len(t, store.puts, 1)
	assert.Equal(t, "host/"+e.entries(t)[0], store.puts[0])

	_, _, err = run(t, "mirror", "push")
	assert.ErrorIs(t, err, mirror.ErrNoBucket)
}

func TestVersionAndCompletion(t *testing.T) {
	setup(t)

	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "dev "), out)

	out, _, err = run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "complete -F _tesscache tesscache")

	out, _, err = run(t, "completion", "zsh")
	require.NoError(t, err)
	assert.Contains(t, out, "#compdef tesscache")
}
