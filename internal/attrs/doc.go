// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package attrs parses the --attrs flag: which entry keys to show, their
// column titles, and per-column transforms (case, length, humanize).
package attrs
