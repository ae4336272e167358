// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package ocrcache serves OCR results from a content-addressed directory and
// runs the engine only on a miss. Requests whose language set is covered by
// an existing entry are answered from that entry.
package ocrcache
