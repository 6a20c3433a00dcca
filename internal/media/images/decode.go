package images

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Info describes a decoded image.
type Info struct {
	Format   string
	Width    int
	Height   int
	BlurHash string
}

// Probe decodes data and reports its format, dimensions and BlurHash.
// The BlurHash is left empty when it cannot be computed.
func Probe(data []byte) (*Info, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	info := &Info{Format: format, Width: bounds.Dx(), Height: bounds.Dy()}
	if hash, err := ComputeBlurHash(img); err == nil {
		info.BlurHash = hash
	}
	return info, nil
}

// Embeddable is image data in a form a PDF writer accepts directly.
type Embeddable struct {
	Data []byte
	// Type is "JPG" or "PNG".
	Type   string
	Width  int
	Height int
}

// ToEmbeddable prepares data for embedding. JPEG passes through untouched;
// every other decodable format is re-encoded as PNG.
func ToEmbeddable(data []byte) (*Embeddable, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unsupported image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image has no area (%dx%d)", cfg.Width, cfg.Height)
	}

	// Full decode catches truncated files that DecodeConfig accepts.
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}

	if format == "jpeg" {
		return &Embeddable{Data: data, Type: "JPG", Width: cfg.Width, Height: cfg.Height}, nil
	}

	// 8-bit RGBA keeps the PNG within what PDF writers parse.
	flat := image.NewNRGBA(img.Bounds())
	draw.Draw(flat, flat.Bounds(), img, img.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, flat); err != nil {
		return nil, fmt.Errorf("re-encode %s as png: %w", format, err)
	}
	return &Embeddable{Data: buf.Bytes(), Type: "PNG", Width: cfg.Width, Height: cfg.Height}, nil
}
