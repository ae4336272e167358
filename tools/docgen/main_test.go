// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = "# tesscache ls\n\n" +
	"## Short description\n\n" +
	"List the entries of the cache\ndirectory.\n\n" +
	"## Quick examples\n\n" +
	"```sh\n" +
	"# List entries as JSON\n" +
	"tesscache ls   -o json\n\n" +
	"tesscache ls --sort -size\n" +
	"```\n"

func TestExtractTitleAndShortDesc(t *testing.T) {
	title, short := extractTitleAndShortDesc(sampleDoc)
	assert.Equal(t, "tesscache ls", title)
	assert.Equal(t, "List the entries of the cache directory.", short)

	title, short = extractTitleAndShortDesc("# tesscache key\n\nNo sections here.\n")
	assert.Equal(t, "tesscache key", title)
	assert.Equal(t, "tesscache key.", short)
}

func TestExtractQuickExamples(t *testing.T) {
	exs := extractQuickExamples(sampleDoc)
	assert.Equal(t, []example{
		{Desc: "List entries as JSON", Cmd: "tesscache ls   -o json"},
		{Desc: "Example", Cmd: "tesscache ls --sort -size"},
	}, exs)

	assert.Nil(t, extractQuickExamples("# nothing\n"))
}

func TestBuildTLDR(t *testing.T) {
	got := buildTLDR("ls", "tesscache ls", "List entries.", extractQuickExamples(sampleDoc))
	assert.Equal(t, "# tesscache-ls\n\n"+
		"> List entries.\n"+
		"> More information: https://github.com/staranto/tesscache.\n\n"+
		"- List entries as JSON:\n\n"+
		"`tesscache ls -o json`\n\n"+
		"- Example:\n\n"+
		"`tesscache ls --sort -size`\n", got)

	got = buildTLDR("key", "", "", nil)
	assert.Contains(t, got, "`tesscache key --help`")
}

func TestGenerate(t *testing.T) {
	root := t.TempDir()
	cmds := filepath.Join(root, "docs", "commands")
	require.NoError(t, os.MkdirAll(cmds, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cmds, "ls.md"), []byte(sampleDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cmds, "notes.txt"), []byte("skip"), 0o644))

	n, err := generate(root, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, filepath.Join(root, "docs", "man", "share", "man1", "tesscache-ls.1"))
	assert.FileExists(t, filepath.Join(root, "docs", "tldr", "tesscache-ls.md"))

	// A second run with identical content is a no-op.
	n, err = generate(root, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = generate(t.TempDir(), true)
	assert.Error(t, err)
}
