// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/apex/log"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/staranto/fragwiki/internal/cache"
	"github.com/staranto/fragwiki/internal/proc"
)

// DefaultConvert is the ImageMagick binary used when none is configured.
const DefaultConvert = "convert"

// Quality is the lossy quality every conversion is encoded at.
const Quality = 50

var (
	// ErrInvalidArgument is returned by Scale for a bad width/height pair.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when the source file does not exist.
	ErrNotFound = errors.New("media not found")

	// ErrConvert is returned when the conversion tool fails.
	ErrConvert = errors.New("image conversion failed")
)

// acceptable are the image mimetypes the wiki stores and serves.
var acceptable = []string{
	"image/bmp",
	"image/gif",
	"image/jpeg",
	"image/png",
	"image/svg+xml",
	"image/webp",
}

// AcceptableImage reports whether mimetype is an image type the wiki accepts.
func AcceptableImage(mimetype string) bool {
	return slices.Contains(acceptable, mimetype)
}

// AcceptableTypes returns the accepted image mimetypes.
func AcceptableTypes() []string {
	return slices.Clone(acceptable)
}

// IsImage reports whether mimetype is any image type.
func IsImage(mimetype string) bool {
	return strings.HasPrefix(mimetype, "image/")
}

// Dimensions is the natural size of an image in pixels. Zero values mean the
// size could not be determined.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Service probes and converts images, memoizing through Cache.
type Service struct {
	Cache   *cache.Cache
	Convert string
	Runner  proc.Runner
}

// New returns a Service using the convert binary and the cache. An empty
// binary name selects DefaultConvert.
func New(c *cache.Cache, convert string) *Service {
	if convert == "" {
		convert = DefaultConvert
	}
	return &Service{Cache: c, Convert: convert, Runner: proc.Exec{}}
}

func stat(path string) (os.FileInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}
	return fi, nil
}

// Mimetype returns the content type of the file at path, without
// parameters.
func (s *Service) Mimetype(ctx context.Context, path string) (string, error) {
	fi, err := stat(path)
	if err != nil {
		return "", err
	}
	return cache.GetOrCompute(ctx, s.Cache, "mimetype:"+path, fi.ModTime(), func() (string, error) {
		return Sniff(path)
	})
}

// byExtension covers types content sniffing reports generically. Anything
// else reported generically is served as opaque bytes.
var byExtension = map[string]string{
	".css":  "text/css",
	".js":   "text/javascript",
	".mjs":  "text/javascript",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// Sniff detects the content type of the file at path without consulting the
// cache. Use it for short-lived files such as uploads.
func Sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 512) //nolint:mnd
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}

	mt := http.DetectContentType(buf[:n])
	mt, _, _ = strings.Cut(mt, ";")
	mt = strings.TrimSpace(mt)

	switch mt {
	case "text/plain", "text/xml", "application/octet-stream":
		if ext, ok := byExtension[strings.ToLower(filepath.Ext(path))]; ok {
			return ext, nil
		}
		return "application/octet-stream", nil
	}
	return mt, nil
}

// Dimensions returns the natural size of the image at path. Formats that
// cannot be decoded report zero dimensions rather than an error.
func (s *Service) Dimensions(ctx context.Context, path string) (Dimensions, error) {
	fi, err := stat(path)
	if err != nil {
		return Dimensions{}, err
	}
	return cache.GetOrCompute(ctx, s.Cache, "dimensions:"+path, fi.ModTime(), func() (Dimensions, error) {
		return probe(path)
	})
}

func probe(path string) (Dimensions, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dimensions{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		log.WithError(err).Debugf("media: no dimensions for %s", path)
		return Dimensions{}, nil
	}
	log.Debugf("media: %s is %s %dx%d", path, format, cfg.Width, cfg.Height)
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

// ImageSize returns the width and height of the image at path.
func (s *Service) ImageSize(ctx context.Context, path string) (int, int, error) {
	d, err := s.Dimensions(ctx, path)
	return d.Width, d.Height, err
}
