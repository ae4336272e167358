// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package meta

import (
	"context"
	"sync"

	"github.com/staranto/tesscache/internal/config"
)

// Status carries the process exit code out of command actions. Engine exit
// codes are data, not errors, so they cannot travel through the error return
// of a cli action.
type Status struct {
	mu   sync.Mutex
	code int
}

// Set records code unless a non-zero code is already recorded.
func (s *Status) Set(code int) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code == 0 {
		s.code = code
	}
}

func (s *Status) Code() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// Meta are the meta-options that are available on all or most commands.
type Meta struct {
	Args        []string
	Config      config.Type
	Context     context.Context
	StartingDir string
	Status      *Status
}
