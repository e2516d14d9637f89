// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package aws builds the S3 client used by the s3 cache backend.
package aws
