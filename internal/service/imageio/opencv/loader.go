// Package opencv loads images through OpenCV.
package opencv

import (
	"fmt"
	"os"

	"github.com/M-Samuel/security-camera/internal/models"
	"github.com/M-Samuel/security-camera/internal/service/ai"
	"gocv.io/x/gocv"
)

// Loader reads images with imread and converts them from BGR to RGB.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

func (l *Loader) Load(path string) (models.Frame, error) {
	if _, err := os.Stat(path); err != nil {
		return models.Frame{}, fmt.Errorf("%w: %w", ai.ErrImageRead, err)
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		return models.Frame{}, fmt.Errorf("%w: cannot decode %s", ai.ErrImageRead, path)
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	if err := gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB); err != nil {
		return models.Frame{}, fmt.Errorf("%w: converting %s to RGB: %w", ai.ErrImageRead, path, err)
	}

	return models.Frame{
		Width:  rgb.Cols(),
		Height: rgb.Rows(),
		Pix:    rgb.ToBytes(),
	}, nil
}
