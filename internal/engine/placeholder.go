// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/apex/log"

	"github.com/staranto/tesscache/internal/invocation"
)

// PlaceholderText is written instead of recognized text.
const PlaceholderText = "[Image (no OCR yet)]"

// Placeholder never recognizes anything. It lets a host serve results that are
// already cached while deferring OCR of new images; its output must not be
// persisted.
type Placeholder struct{}

func (Placeholder) Name() string {
	return "placeholder"
}

func (Placeholder) Run(_ context.Context, args []string) (int, error) {
	inv, err := invocation.Parse(append([]string{"placeholder"}, args...))
	if err != nil {
		return 1, err
	}
	out := inv.OutputPath()
	log.Debugf("writing placeholder result to %s", out)
	if err := os.WriteFile(out, []byte(PlaceholderText), 0o644); err != nil { //nolint:mnd
		return 1, fmt.Errorf("failed to write placeholder: %w", err)
	}
	return 0, nil
}
