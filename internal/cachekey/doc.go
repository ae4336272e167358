// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package cachekey derives the content-addressed identity of an OCR result.
//
// A cache entry is named <lang>-<sha256 of input>-<md5 of options>.<kind>.
// The input digest depends only on file bytes, never on the path, so
// temporary copies of the same image share one entry.
package cachekey
