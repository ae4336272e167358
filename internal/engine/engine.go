// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/apex/log"
)

// Engine runs OCR over a file. args follow the tesseract command line without
// the program name: input, output base, then options. The result is written
// to <output base>.<kind>.
//
// A non-zero exit is reported through the returned code with a nil error; an
// error means the engine could not run to completion at all.
type Engine interface {
	Name() string
	Run(ctx context.Context, args []string) (int, error)
}

// DefaultPath is the engine binary looked up on PATH.
const DefaultPath = "tesseract"

// Exec runs an external tesseract-compatible executable.
type Exec struct {
	Path   string
	Stdout io.Writer
	Stderr io.Writer
}

// NewExec returns an Exec for path, falling back to DefaultPath.
func NewExec(path string) *Exec {
	if path == "" {
		path = DefaultPath
	}
	return &Exec{Path: path, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (e *Exec) Name() string {
	return e.Path
}

// Run blocks until the process exits or ctx is done.
func (e *Exec) Run(ctx context.Context, args []string) (int, error) {
	log.Debugf("running %s %v", e.Path, args)

	cmd := exec.CommandContext(ctx, e.Path, args...)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return exitCode(err), fmt.Errorf("%s interrupted: %w", e.Path, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 1, fmt.Errorf("failed to run %s: %w", e.Path, err)
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}
