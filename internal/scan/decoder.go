package scan

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"golang.org/x/image/draw"
)

// DefaultMaxDimension bounds the longest frame side handed to the QR reader.
const DefaultMaxDimension = 1024

// Decoder extracts a machine-readable code from a frame.
type Decoder interface {
	Decode(img image.Image) (string, error)
}

// QRDecoder decodes QR codes, downscaling large frames first.
type QRDecoder struct {
	MaxDimension int
}

// NewQRDecoder creates a QRDecoder with the default frame bound.
func NewQRDecoder() *QRDecoder {
	return &QRDecoder{MaxDimension: DefaultMaxDimension}
}

func (d *QRDecoder) Decode(img image.Image) (string, error) {
	img = downscale(img, d.MaxDimension)

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize frame: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		var notFound gozxing.NotFoundException
		if errors.As(err, &notFound) {
			return "", ErrNoCode
		}
		return "", fmt.Errorf("%w: %v", ErrNoCode, err)
	}
	return result.GetText(), nil
}

// MaxImagePixels bounds the declared size of an uploaded image. The header
// is checked before any pixel buffer is allocated.
const MaxImagePixels = 16 << 20

// DecodeImage decodes an encoded image (PNG or JPEG) and reads its code.
func DecodeImage(data []byte, dec Decoder) (string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, MaxImagePixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return dec.Decode(img)
}

func downscale(img image.Image, max int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if max <= 0 || (w <= max && h <= max) {
		return img
	}

	if w >= h {
		h = h * max / w
		w = max
	} else {
		w = w * max / h
		h = max
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
