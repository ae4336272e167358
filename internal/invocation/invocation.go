// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package invocation parses tesseract-style command lines:
//
//	self input outputbase [options...] [txt|hocr|pdf]
//
// -l <lang> may appear anywhere after the positional arguments.
package invocation

import (
	"errors"
	"strings"

	"github.com/staranto/tesscache/internal/cachekey"
)

// DefaultLang is used when no -l flag is given.
const DefaultLang = "eng"

// ErrNotCacheable means the arguments do not describe a file-to-file
// recognition run (for example --version, --list-langs or stdout output), or
// use a language tag that cannot be part of a cache filename, and should be
// passed through to the engine untouched.
var ErrNotCacheable = errors.New("arguments do not describe a cacheable OCR run")

// Invocation is a parsed command line.
type Invocation struct {
	// Args is the full argument list including the program name.
	Args       []string
	Input      string
	OutputBase string
	Lang       string
	Kind       cachekey.Kind
	// Options is every argument after the output base except the -l pair and
	// a trailing kind token, joined by single spaces in original order.
	Options string
}

// Parse reads args, where args[0] is the program name.
func Parse(args []string) (Invocation, error) {
	if len(args) < 3 || strings.HasPrefix(args[1], "-") || strings.HasPrefix(args[2], "-") {
		return Invocation{}, ErrNotCacheable
	}
	if args[2] == "stdout" || args[2] == "-" || args[1] == "-" || args[1] == "stdin" {
		return Invocation{}, ErrNotCacheable
	}

	inv := Invocation{
		Args:       args,
		Input:      args[1],
		OutputBase: args[2],
		Lang:       DefaultLang,
		Kind:       cachekey.KindText,
	}

	rest := args[3:]
	if n := len(rest); n > 0 {
		if k, ok := cachekey.ParseKind(rest[n-1]); ok && !isLangValue(rest, n-1) {
			inv.Kind = k
			rest = rest[:n-1]
		}
	}

	var opts []string
	for i := 0; i < len(rest); i++ {
		if rest[i] == "-l" && i+1 < len(rest) {
			inv.Lang = rest[i+1]
			i++
			continue
		}
		opts = append(opts, rest[i])
	}
	inv.Options = strings.Join(opts, " ")

	// Tags such as script/Latin are valid for the engine but not as a
	// filename field.
	if cachekey.ValidateLang(inv.Lang) != nil {
		return Invocation{}, ErrNotCacheable
	}

	return inv, nil
}

// isLangValue reports whether rest[i] is the value of a preceding -l.
func isLangValue(rest []string, i int) bool {
	return i > 0 && rest[i-1] == "-l"
}

// OutputPath is where the engine writes its result.
func (inv Invocation) OutputPath() string {
	return inv.OutputBase + "." + string(inv.Kind)
}

// EngineArgs are the arguments handed to the engine, without the program name.
func (inv Invocation) EngineArgs() []string {
	return inv.Args[1:]
}
