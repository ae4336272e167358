// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/tesscache/internal/cachekey"
	"github.com/staranto/tesscache/internal/command"
	"github.com/staranto/tesscache/internal/config"
	mylog "github.com/staranto/tesscache/internal/log"
	"github.com/staranto/tesscache/internal/meta"
	"github.com/staranto/tesscache/internal/version"
)

var ctx = context.Background()

func main() {
	os.Exit(realMain(os.Args))
}

func realMain(args []string) int {
	mylog.InitLogger()

	args, idx := command.Route(args)

	if idx < 0 {
		// Short-circuit --version/-v.
		for _, a := range args[1:] {
			if a == "--version" || a == "-v" {
				fmt.Println(version.String())
				return 0
			}
		}
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "No command specified.")
			args = append(args, "--help")
		}
	} else if args[idx] != "wrap" {
		args = mangleArguments(args, idx)
	}

	status := &meta.Status{}
	app, err := command.InitApp(ctx, args, idx, status)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, cachekey.ErrInputNotFound) {
			return 1
		}
		return 2
	}

	return status.Code()
}

// mangleArguments expands an argument set from the config file right after
// the subcommand at idx. "@name" on the command line selects <cmd>.<name>;
// otherwise <cmd>.defaults is used when present. Later arguments override the
// expanded ones.
func mangleArguments(args []string, idx int) []string {
	// Short-circuit for --help/-h.
	for _, a := range args[idx+1:] {
		if a == "--help" || a == "-h" {
			return args
		}
	}

	cmd := args[idx]
	set := "defaults"

	rest := make([]string, 0, len(args)-idx-1)
	for _, a := range args[idx+1:] {
		if strings.HasPrefix(a, "@") && len(a) > 1 && set == "defaults" {
			set = a[1:]
			continue
		}
		rest = append(rest, a)
	}

	out := make([]string, 0, len(args)+4)
	out = append(out, args[:idx+1]...)

	setArgs, _ := config.GetStringSlice(cmd + "." + set)
	for _, arg := range setArgs {
		out = append(out, strings.Fields(arg)...)
	}
	out = append(out, rest...)

	log.Debugf("set=%s, args=%v", set, out)
	return out
}
