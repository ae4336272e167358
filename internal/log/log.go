// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
)

// EnvLevel names the variable holding the log level.
const EnvLevel = "TESSCACHE_LOG"

// InitLogger sets up Apex with a custom handler and a log level from the
// TESSCACHE_LOG env variable.
func InitLogger() {
	level, err := log.ParseLevel(os.Getenv(EnvLevel))
	if err != nil {
		level = log.ErrorLevel
	}
	log.SetHandler(&CustomHandler{})
	log.SetLevel(level)
}

// CustomHandler formats log messages and writes to stderr. Stdout carries OCR
// text and table output, so it is never used for logs.
type CustomHandler struct {
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// HandleLog implements the log.Handler interface
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	w := h.Writer
	if w == nil {
		w = os.Stderr
	}

	timestamp := e.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	level := strings.ToUpper(e.Level.String())
	message := e.Message
	if err, ok := e.Fields["error"]; ok {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	_, err := fmt.Fprintf(w, "%s %.1s %s\n", timestamp.Format("2006-01-02 15:04:05"), level, message)
	return err
}
