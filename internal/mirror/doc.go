// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package mirror pushes cache entries to an S3 bucket and pulls them back,
// for backups and for seeding a new host's cache.
package mirror
