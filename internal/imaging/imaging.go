// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package imaging turns uploaded category pictures into small JPEG
// thumbnails. Images wider than the target are scaled down with
// CatmullRom; narrower ones are re-encoded at their original size so every
// stored thumbnail has the same format.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"net/http"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	// DefaultMaxWidth is the thumbnail width used when none is configured.
	DefaultMaxWidth = 320

	// Quality is the JPEG quality for generated thumbnails.
	Quality = 80

	// MaxPixels caps the number of source pixels to prevent memory bombs.
	// 10000x10000 = 100 million pixels, ~400 MB decoded in RGBA.
	MaxPixels = 100_000_000

	// ContentType is the MIME type of every generated thumbnail.
	ContentType = "image/jpeg"
)

// ErrUnsupported is returned for uploads that are not a decodable image.
var ErrUnsupported = errors.New("unsupported image type")

// allowedTypes lists the sniffed MIME types accepted as thumbnail sources.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// DetectType sniffs the content type of data and reports whether it is an
// accepted image format. The client-supplied type is never trusted.
func DetectType(data []byte) (string, bool) {
	ct := http.DetectContentType(data)
	return ct, allowedTypes[ct]
}

// Thumbnail decodes src and returns a JPEG no wider than maxWidth,
// preserving the aspect ratio. A maxWidth of zero selects DefaultMaxWidth.
func Thumbnail(src []byte, maxWidth int) ([]byte, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if _, ok := DetectType(src); !ok {
		return nil, ErrUnsupported
	}

	// Decode config first to check dimensions without full decode.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("image too large: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, MaxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxWidth {
		height = max(1, int(float64(height)*float64(maxWidth)/float64(width)))
		width = maxWidth
	}

	// Flatten onto white so transparent PNGs do not turn black in JPEG.
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
