// Package scanner turns camera frames and uploaded images into guest ids.
package scanner

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/diagnosis/checkin-kiosk/internal/domain"
)

// Decoder reads QR symbols with gozxing. It is safe for concurrent use; each
// call builds its own reader.
type Decoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

func NewDecoder() *Decoder {
	return &Decoder{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// DecodeBytes decodes an encoded PNG, JPEG, GIF, BMP, TIFF or WebP image and
// reads the QR symbol in it.
func (d *Decoder) DecodeBytes(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	return d.Decode(img)
}

// Decode returns the text of the first QR symbol found in img.
func (d *Decoder) Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil {
		// not found, checksum and format failures all mean "nothing readable in this frame"
		return "", fmt.Errorf("%w: %v", domain.ErrNoQRCode, err)
	}
	return result.GetText(), nil
}
