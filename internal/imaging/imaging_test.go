package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	return img
}

func TestThumbnailScalesDown(t *testing.T) {
	out, err := Thumbnail(pngBytes(t, 800, 400), 200)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	b := decodeJPEG(t, out).Bounds()
	if b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("size: got %dx%d, want 200x100", b.Dx(), b.Dy())
	}
}

func TestThumbnailNoUpscale(t *testing.T) {
	out, err := Thumbnail(pngBytes(t, 50, 30), 200)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	b := decodeJPEG(t, out).Bounds()
	if b.Dx() != 50 || b.Dy() != 30 {
		t.Errorf("size: got %dx%d, want 50x30", b.Dx(), b.Dy())
	}
}

func TestThumbnailDefaultWidth(t *testing.T) {
	out, err := Thumbnail(pngBytes(t, 1000, 1000), 0)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if w := decodeJPEG(t, out).Bounds().Dx(); w != DefaultMaxWidth {
		t.Errorf("width: got %d, want %d", w, DefaultMaxWidth)
	}
}

func TestThumbnailRejectsNonImage(t *testing.T) {
	_, err := Thumbnail([]byte("%PDF-1.4 not an image"), 100)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("got %v, want ErrUnsupported", err)
	}
}

func TestDetectType(t *testing.T) {
	if ct, ok := DetectType(pngBytes(t, 2, 2)); !ok || ct != "image/png" {
		t.Errorf("png: got %q %v", ct, ok)
	}
	if _, ok := DetectType([]byte("<svg xmlns='http://www.w3.org/2000/svg'/>")); ok {
		t.Error("svg should not be accepted")
	}
}
