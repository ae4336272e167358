// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cachekey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsafeLang is returned for a language tag that cannot be embedded in a
// cache filename.
var ErrUnsafeLang = errors.New("language tag cannot be used in a cache filename")

// ValidateLang checks that tag stays a single field of a flat cache filename:
// no field separator, no path separator and no empty '+' part.
func ValidateLang(tag string) error {
	if tag == "" {
		return fmt.Errorf("%w: empty tag", ErrUnsafeLang)
	}
	if strings.ContainsAny(tag, "-/\\ \x00") {
		return fmt.Errorf("%w: %q contains '-', a path separator or a space", ErrUnsafeLang, tag)
	}
	for _, l := range strings.Split(tag, "+") {
		if l == "" {
			return fmt.Errorf("%w: %q has an empty language", ErrUnsafeLang, tag)
		}
	}
	return nil
}

// Languages is the set form of a '+'-joined language tag.
type Languages map[string]struct{}

// ParseLanguages splits tag on '+'. The empty tag is the empty set.
func ParseLanguages(tag string) Languages {
	langs := Languages{}
	if tag == "" {
		return langs
	}
	for _, l := range strings.Split(tag, "+") {
		langs[l] = struct{}{}
	}
	return langs
}

// LangOf returns the language tag encoded in a cache filename, the text
// before the first '-'.
func LangOf(filename string) string {
	lang, _, _ := strings.Cut(filename, "-")
	return lang
}

// Covers reports whether l is a superset of required.
func (l Languages) Covers(required Languages) bool {
	for r := range required {
		if _, ok := l[r]; !ok {
			return false
		}
	}
	return true
}
