// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package inventory lists and summarizes the entries of a cache directory.
package inventory
