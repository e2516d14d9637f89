// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestCustomHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewCustomHandler(&buf)

	logger := &log.Logger{Handler: h, Level: log.DebugLevel}
	logger.WithField("slug", "a.md").WithError(errors.New("boom")).Warn("prune failed")

	line := buf.String()
	assert.Contains(t, line, " W prune failed")
	assert.Contains(t, line, "error=boom")
	assert.Contains(t, line, "slug=a.md")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("error=")), bytes.Index(buf.Bytes(), []byte("slug=")))
}

func TestCustomHandler_Timestamp(t *testing.T) {
	var buf bytes.Buffer
	h := NewCustomHandler(&buf)

	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	err := h.HandleLog(&log.Entry{Level: log.InfoLevel, Message: "hello", Timestamp: ts, Fields: log.Fields{}})
	assert.NoError(t, err)
	assert.Equal(t, "2025-03-04 05:06:07 I hello\n", buf.String())
}

func TestInitLogger(t *testing.T) {
	t.Setenv("FRAGWIKI_LOG", "debug")
	InitLogger()
	l, ok := log.Log.(*log.Logger)
	if assert.True(t, ok) {
		assert.Equal(t, log.DebugLevel, l.Level)
	}
}
