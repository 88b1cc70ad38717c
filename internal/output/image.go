package output

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatGIF  = "gif"
	FormatWEBP = "webp"
)

const jpegQuality = 92

// ImageAsset is one downloaded page held in memory.
type ImageAsset struct {
	URL    string
	Name   string
	Data   []byte
	Format string // "" when the magic bytes are unknown
}

func newImageAsset(url, name string, data []byte) ImageAsset {
	return ImageAsset{URL: url, Name: name, Data: data, Format: detectFormat(data)}
}

func (a ImageAsset) Ext() string {
	switch a.Format {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	case FormatGIF:
		return ".gif"
	case FormatWEBP:
		return ".webp"
	default:
		return ".img"
	}
}

func (a ImageAsset) MIME() string {
	if a.Format == "" {
		return "application/octet-stream"
	}
	return "image/" + a.Format
}

// detectFormat sniffs the magic bytes.
func detectFormat(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x89, 'P', 'N', 'G'}):
		return FormatPNG
	case len(data) >= 6 && (string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a"):
		return FormatGIF
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return FormatWEBP
	default:
		return ""
	}
}

// normalize re-encodes a into JPEG unless its format is in keep.
// Transparent areas are flattened onto white.
func normalize(a ImageAsset, keep ...string) (ImageAsset, error) {
	for _, k := range keep {
		if a.Format == k {
			return a, nil
		}
	}

	img, err := imaging.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return a, fmt.Errorf("decode %s: %w", a.Name, err)
	}

	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	flat := imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return a, fmt.Errorf("encode %s: %w", a.Name, err)
	}

	a.Data = buf.Bytes()
	a.Format = FormatJPEG
	return a, nil
}

func imageSize(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
