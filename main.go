// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/fragwiki/internal/cacheutil"
	"github.com/staranto/fragwiki/internal/command"
	"github.com/staranto/fragwiki/internal/config"
	mylog "github.com/staranto/fragwiki/internal/log"
	"github.com/staranto/fragwiki/internal/version"
)

var ctx = context.Background()

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	} else {
		cfg, _ := config.Load()
		args = mangleArguments(args, cfg)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.String())
			return 0
		}
	}

	// Best-effort: pre-create cache directory when caching is enabled.
	if _, ok, err := cacheutil.EnsureBaseDir(); err != nil && ok {
		fmt.Fprintln(os.Stderr, err)
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	return 0
}

// mangleArguments expands an @set argument into the arguments stored under
// <command>.<set> in the config file. Without an @set, @defaults is
// used when the config file defines it.
func mangleArguments(args []string, cfg config.Type) []string {
	// Short-circuit for --help/-h.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return []string{args[0], args[1], "--help"}
		}
	}

	out := make([]string, 0, len(args))
	out = append(out, args[:2]...)

	// Subcommand groups such as "cache clear" keep their second word ahead
	// of the expansion.
	idx := 2
	if len(args) > 2 && !strings.HasPrefix(args[2], "-") && !strings.HasPrefix(args[2], "@") &&
		(args[1] == "cache" || args[1] == "identity") {
		out = append(out, args[2])
		idx = 3
	}

	set := "defaults"
	rest := make([]string, 0, len(args))
	for _, a := range args[idx:] {
		if strings.HasPrefix(a, "@") && len(a) > 1 && set == "defaults" {
			set = a[1:]
			continue
		}
		rest = append(rest, a)
	}

	setArgs, _ := cfg.GetStringSlice(args[1] + "." + set)
	for _, arg := range setArgs {
		out = append(out, strings.Fields(arg)...)
	}
	out = append(out, rest...)

	log.Debugf("set=%s, args=%v", set, out)
	return out
}
