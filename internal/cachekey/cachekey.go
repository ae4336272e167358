// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cachekey

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// ErrInputNotFound is returned when the input file cannot be opened or read.
var ErrInputNotFound = errors.New("input file not found or unreadable")

// Kind is the output kind requested from the engine. Its value doubles as the
// result file extension.
type Kind string

const (
	KindText Kind = "txt"
	KindHOCR Kind = "hocr"
	KindPDF  Kind = "pdf"
)

// Kinds lists the supported output kinds.
var Kinds = []Kind{KindText, KindHOCR, KindPDF}

// ParseKind returns the Kind named by s.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Key identifies one cache entry.
type Key struct {
	ContentDigest string
	OptionsDigest string
	Lang          string
	Kind          Kind
}

// Suffix is the part of the filename shared by every language variant of the
// same content, options and kind.
func (k Key) Suffix() string {
	return "-" + k.ContentDigest + "-" + k.OptionsDigest + "." + string(k.Kind)
}

// Filename is the canonical cache filename for the key.
func (k Key) Filename() string {
	return k.Lang + k.Suffix()
}

// WithLang returns a copy of k for a different language tag.
func (k Key) WithLang(lang string) Key {
	k.Lang = lang
	return k
}

// Derive computes the Key for the file at path. The file is hashed by content,
// so the same bytes under a different name or path yield the same key. A
// missing input is reported before an unusable language tag.
func Derive(path, options, lang string, kind Kind) (Key, error) {
	if kind == "" {
		kind = KindText
	}
	digest, err := DigestFile(path)
	if err != nil {
		return Key{}, err
	}
	if err := ValidateLang(lang); err != nil {
		return Key{}, err
	}
	return Key{
		ContentDigest: digest,
		OptionsDigest: DigestOptions(options),
		Lang:          lang,
		Kind:          kind,
	}, nil
}

// DigestFile returns the hex SHA-256 of the file contents.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInputNotFound, path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInputNotFound, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestOptions returns the hex MD5 of the options string exactly as given.
// Token order and spacing matter; equivalent option sets written differently
// produce different digests.
func DigestOptions(options string) string {
	h := md5.New()
	_, _ = h.Write([]byte(options))
	return hex.EncodeToString(h.Sum(nil))
}

// filenameRegex matches <lang>-<sha256>-<md5>.<kind>. The language tag itself
// never contains '-'.
var filenameRegex = regexp.MustCompile(`^([^-]*)-([0-9a-f]{64})-([0-9a-f]{32})\.([a-z]+)$`)

// ParseFilename reverses Filename. Names that do not follow the cache layout,
// including in-flight temp files, are rejected.
func ParseFilename(name string) (Key, bool) {
	if strings.HasPrefix(name, TempPrefix) {
		return Key{}, false
	}
	parts := filenameRegex.FindStringSubmatch(name)
	if parts == nil {
		return Key{}, false
	}
	kind, ok := ParseKind(parts[4])
	if !ok {
		return Key{}, false
	}
	return Key{
		Lang:          parts[1],
		ContentDigest: parts[2],
		OptionsDigest: parts[3],
		Kind:          kind,
	}, true
}

// TempPrefix marks in-flight engine output and staging files in the cache
// directory.
const TempPrefix = "temp-"
