// Package imageio loads still images into RGB frames.
package imageio

import (
	"bufio"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/M-Samuel/security-camera/internal/models"
	"github.com/M-Samuel/security-camera/internal/service/ai"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decoder decodes images with the registered Go codecs. It never needs cgo.
type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Load(path string) (models.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Frame{}, fmt.Errorf("%w: %w", ai.ErrImageRead, err)
	}
	defer f.Close()

	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return models.Frame{}, fmt.Errorf("%w: decoding %s: %w", ai.ErrImageRead, path, err)
	}

	frame := models.FrameFromImage(img)
	if frame.Empty() {
		return models.Frame{}, fmt.Errorf("%w: %s (%s) has no pixels", ai.ErrImageRead, path, format)
	}
	return frame, nil
}
