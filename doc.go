// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// tesscache is a content-addressed cache in front of the tesseract OCR engine.
// It runs as a drop-in tesseract replacement or through its own subcommands,
// and serves as the entry point wiring the CLI to the internal packages.
package main
