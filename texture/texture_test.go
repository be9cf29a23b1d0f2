package texture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func checkerboard() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.NRGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.NRGBA{B: 255, A: 255})
			}
		}
	}
	return img
}

func TestFileFormats(t *testing.T) {
	dir := t.TempDir()
	want := checkerboard()
	for _, test := range []struct {
		name   string
		format string
		encode func(w io.Writer, img image.Image) error
	}{
		{name: "a.png", format: "png", encode: png.Encode},
		{name: "a.bmp", format: "bmp", encode: bmp.Encode},
		{name: "a.tiff", format: "tiff", encode: func(w io.Writer, img image.Image) error { return tiff.Encode(w, img, nil) }},
	} {
		var buf bytes.Buffer
		if err := test.encode(&buf, want); err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, test.name)
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			t.Fatal(err)
		}
		_, format, err := Decode(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("%s: %s", test.name, err)
		} else if format != test.format {
			t.Errorf("%s: want format %s, got %s", test.name, test.format, format)
		}
		got, err := File(path).LoadTexture(context.Background())
		if err != nil {
			t.Fatalf("%s: %s", test.name, err)
		}
		if got.Bounds() != want.Bounds() {
			t.Fatalf("%s: want bounds %v, got %v", test.name, want.Bounds(), got.Bounds())
		}
		for _, pt := range []image.Point{{0, 0}, {1, 0}, {3, 3}} {
			r0, g0, b0, a0 := want.At(pt.X, pt.Y).RGBA()
			r1, g1, b1, a1 := got.At(pt.X, pt.Y).RGBA()
			if r0 != r1 || g0 != g1 || b0 != b1 || a0 != a1 {
				t.Errorf("%s: pixel %v mismatch", test.name, pt)
			}
		}
	}
}

func TestFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := File(filepath.Join(dir, "missing.png")).LoadTexture(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("want not exist error, got %v", err)
	}
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = File(garbage).LoadTexture(context.Background())
	if !errors.Is(err, image.ErrFormat) {
		t.Errorf("want format error, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = File(garbage).LoadTexture(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want canceled error, got %v", err)
	}
}

func TestMemory(t *testing.T) {
	img := checkerboard()
	src := Image(img)
	got, err := src.LoadTexture(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != image.Image(img) {
		t.Error("memory texture should return its image")
	}
	if Image(img) == src {
		t.Error("distinct sources should not compare equal")
	}
	if _, err := Image(nil).LoadTexture(context.Background()); err == nil {
		t.Error("expected error loading nil image")
	}
}
