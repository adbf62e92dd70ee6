package ai

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/M-Samuel/security-camera/internal/models"
)

// Backend runs a single inference pass over a frame.
type Backend interface {
	Infer(frame models.Frame) ([]models.Region, error)
	Close() error
}

// ImageLoader decodes an image file into an RGB frame. Failures wrap
// ErrImageRead.
type ImageLoader interface {
	Load(path string) (models.Frame, error)
}

type BackendKind int

const (
	BackendTFLite BackendKind = iota + 1
	BackendOpenCV
)

func (k BackendKind) String() string {
	switch k {
	case BackendTFLite:
		return "tflite"
	case BackendOpenCV:
		return "opencv"
	default:
		return fmt.Sprintf("BackendKind(%d)", int(k))
	}
}

// OpenCV models must be SSD graphs emitting [N, 7] detection rows.
var opencvExtensions = map[string]bool{
	".pb":         true,
	".caffemodel": true,
}

// BackendKindFor picks the runtime able to read the model file.
func BackendKindFor(modelPath string) (BackendKind, error) {
	ext := strings.ToLower(filepath.Ext(modelPath))
	switch {
	case ext == ".tflite":
		return BackendTFLite, nil
	case opencvExtensions[ext]:
		return BackendOpenCV, nil
	default:
		return 0, fmt.Errorf("%w: unsupported model format %q", ErrModelLoad, modelPath)
	}
}
