// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package media

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/apex/log"

	"github.com/staranto/fragwiki/internal/cache"
	"github.com/staranto/fragwiki/internal/proc"
)

// outputFormat returns the ImageMagick format a derivative of mimetype is
// written in.
func outputFormat(mimetype string) string {
	switch mimetype {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpeg"
	default:
		return "webp"
	}
}

// Target returns the size an image of natural size d is scaled to when
// asked for width or height, keeping the aspect ratio.
func Target(d Dimensions, width, height int) (int, int, error) {
	if width < 0 || height < 0 || (width > 0) == (height > 0) {
		return 0, 0, fmt.Errorf("%w: exactly one of width (%d) and height (%d) must be positive",
			ErrInvalidArgument, width, height)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return 0, 0, nil
	}
	if width > 0 {
		return width, int(math.Round(float64(width) * float64(d.Height) / float64(d.Width))), nil
	}
	return int(math.Round(float64(height) * float64(d.Width) / float64(d.Height))), height, nil
}

// Scale returns the path of a copy of the image at path resized to width or
// height, whichever is positive. The original path is returned when the
// result would not be smaller than the source in both dimensions, or when
// the source dimensions are unknown.
func (s *Service) Scale(ctx context.Context, path string, width, height int) (string, error) {
	if _, _, err := Target(Dimensions{}, width, height); err != nil {
		return "", err
	}

	fi, err := stat(path)
	if err != nil {
		return "", err
	}

	d, err := s.Dimensions(ctx, path)
	if err != nil {
		return "", err
	}
	w, h, _ := Target(d, width, height)
	if w == 0 || w >= d.Width || h >= d.Height {
		log.Debugf("media: %s not scaled to %dx%d", path, w, h)
		return path, nil
	}

	mt, err := s.Mimetype(ctx, path)
	if err != nil {
		return "", err
	}
	format := outputFormat(mt)

	key := fmt.Sprintf("scale:%s:%dx%d", path, w, h)
	convert := func() (string, error) {
		out, err := s.Cache.ArtifactPath(key, "."+format)
		if err != nil {
			return "", err
		}
		err = s.run(ctx, path, "-resize", fmt.Sprintf("%dx%d", w, h),
			"-quality", fmt.Sprint(Quality), format+":"+out)
		if err != nil {
			return "", err
		}
		return out, nil
	}

	out, err := cache.GetOrCompute(ctx, s.Cache, key, fi.ModTime(), convert)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(out); err != nil {
		log.Debugf("media: derivative %s missing, regenerating", out)
		return convert()
	}
	return out, nil
}

// Import re-encodes the upload at src into dst as webp, applying the EXIF
// orientation.
func (s *Service) Import(ctx context.Context, src string, dst string) error {
	if _, err := stat(src); err != nil {
		return err
	}
	return s.run(ctx, src, "-auto-orient", "-quality", fmt.Sprint(Quality), "webp:"+dst)
}

func (s *Service) run(ctx context.Context, src string, args ...string) error {
	convert := s.Convert
	if convert == "" {
		convert = DefaultConvert
	}
	runner := s.Runner
	if runner == nil {
		runner = proc.Exec{}
	}
	if _, err := runner.Run(ctx, "", convert, append([]string{src}, args...)...); err != nil {
		return fmt.Errorf("%w: %w", ErrConvert, err)
	}
	return nil
}
