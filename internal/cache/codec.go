// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Payload header values. The first byte of every stored value says how the
// rest is laid out.
const (
	formatCBOR byte = 0
	formatZstd byte = 1
)

// compressThreshold is the encoded size above which zstd is attempted.
const compressThreshold = 1024

var errCorrupt = errors.New("corrupt cache payload")

var (
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cache: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("cache: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("cache: zstd encoder initialization failed: " + err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("cache: zstd decoder initialization failed: " + err.Error())
	}
}

// encode serializes v as CBOR and compresses large payloads.
func encode(v any) ([]byte, error) {
	raw, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache value: %w", err)
	}

	if len(raw) > compressThreshold {
		compressed := zstdEncoder.EncodeAll(raw, nil)
		if len(compressed) < len(raw) {
			return append([]byte{formatZstd}, compressed...), nil
		}
	}

	return append([]byte{formatCBOR}, raw...), nil
}

// decode reverses encode into v, which must be a pointer.
func decode(data []byte, v any) error {
	if len(data) == 0 {
		return errCorrupt
	}

	body := data[1:]
	switch data[0] {
	case formatCBOR:
	case formatZstd:
		var err error
		body, err = zstdDecoder.DecodeAll(body, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", errCorrupt, err)
		}
	default:
		return fmt.Errorf("%w: unknown format %d", errCorrupt, data[0])
	}

	if err := decMode.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errCorrupt, err)
	}
	return nil
}
