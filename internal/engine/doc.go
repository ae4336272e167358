// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package engine adapts the external OCR executable that tesscache fronts.
package engine
