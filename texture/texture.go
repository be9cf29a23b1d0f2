// Package texture implements [sgc.TextureSource] for image files and in-memory images.
package texture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/soypat/sgc"
)

var (
	_ sgc.TextureSource = File("")
	_ sgc.TextureSource = (*Memory)(nil)
)

var errNilImage = errors.New("nil texture image")

// File is a texture stored in an image file at the given path. The file is read
// on every call to LoadTexture. PNG, JPEG, GIF, BMP, TIFF and WebP files are decoded.
type File string

// LoadTexture opens and decodes the image file.
func (f File) LoadTexture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fp, err := os.Open(string(f))
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	img, _, err := Decode(fp)
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", string(f), err)
	}
	return img, nil
}

// Memory is a texture whose image data is already resident in memory.
type Memory struct {
	img image.Image
}

// Image returns a texture source for img. Each call returns a distinct source,
// so two parameters bound to different calls never compare equal.
func Image(img image.Image) *Memory {
	return &Memory{img: img}
}

// LoadTexture returns the image the source was created with.
func (m *Memory) LoadTexture(ctx context.Context) (image.Image, error) {
	if m == nil || m.img == nil {
		return nil, errNilImage
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.img, nil
}

// Decode decodes an image in any of the formats supported by [File] and
// returns the format name as registered with the image package.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if errors.Is(err, image.ErrFormat) {
		return nil, "", fmt.Errorf("%w: supported formats are png, jpeg, gif, bmp, tiff and webp", err)
	}
	return img, format, err
}
