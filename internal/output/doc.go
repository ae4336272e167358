// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package output filters, sorts and renders listings of cache entries as text
// tables, JSON or YAML.
package output
