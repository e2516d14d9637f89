// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build version.
package version

import "runtime/debug"

// Version is set at link time with
// -ldflags "-X github.com/staranto/fragwiki/internal/version.Version=v1.2.3".
var Version = ""

// String returns Version, else the module version recorded in the binary,
// else "dev".
func String() string {
	if Version != "" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "dev"
}
