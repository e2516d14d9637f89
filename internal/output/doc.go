// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package output sorts and emits the rows of the listing commands as a table,
// json or yaml.
package output
