// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package version carries build metadata stamped in with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/staranto/tesscache/internal/version.Version=v0.3.0"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = ""
)

// String is the one line printed by --version.
func String() string {
	s := Version
	if Commit != "" {
		s += " (" + Commit + ")"
	}
	return fmt.Sprintf("%s %s/%s", s, runtime.GOOS, runtime.GOARCH)
}
