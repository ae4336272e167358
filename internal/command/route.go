// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"path/filepath"
	"slices"
	"strings"
)

// Subcommands are the words that select a command rather than start a
// tesseract command line.
var Subcommands = []string{
	"completion", "help", "h", "key", "ls", "mirror", "ocr",
	"resolve", "stats", "version", "wrap",
}

var (
	rootValueFlags = []string{"cache-dir", "engine", "engine-kind", "timeout", "user-words"}
	rootBoolFlags  = []string{"cache", "no-cache", "help", "h", "version", "v"}
)

// Route locates the subcommand in args, inserting "wrap" where a tesseract
// command line begins. It returns the routed args and the subcommand index,
// or -1 when there is none (a bare --help or --version).
//
// Invoked under a name starting with "tesseract", every argument belongs to
// the wrapped engine. Otherwise leading root flags are skipped and an unknown
// flag such as --list-langs, or anything that is not a subcommand, starts a
// tesseract command line.
func Route(args []string) ([]string, int) {
	if strings.HasPrefix(filepath.Base(args[0]), "tesseract") {
		return insertAt(args, 1, "wrap"), 1
	}
	if len(args) < 2 {
		return args, -1
	}

	i := 1
scan:
	for i < len(args) && strings.HasPrefix(args[i], "-") && args[i] != "-" {
		name, _, inline := strings.Cut(strings.TrimLeft(args[i], "-"), "=")
		switch {
		case slices.Contains(rootBoolFlags, name):
			i++
		case slices.Contains(rootValueFlags, name):
			i++
			if !inline {
				i++
			}
		default:
			break scan
		}
	}

	if i >= len(args) {
		return args, -1
	}
	if slices.Contains(Subcommands, args[i]) {
		return args, i
	}
	return insertAt(args, i, "wrap"), i
}

func insertAt(args []string, i int, s string) []string {
	out := make([]string, 0, len(args)+1)
	out = append(out, args[:i]...)
	out = append(out, s)
	return append(out, args[i:]...)
}
