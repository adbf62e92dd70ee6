// Package opencv runs SSD-style detection networks through the OpenCV DNN
// module.
package opencv

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/M-Samuel/security-camera/internal/logger"
	"github.com/M-Samuel/security-camera/internal/models"
	"github.com/M-Samuel/security-camera/internal/service/ai"
)

// InputSize is the square input of SSD MobileNet graphs.
const InputSize = 300

// Backend wraps one OpenCV DNN network. It is not safe for concurrent use.
type Backend struct {
	net    gocv.Net
	labels ai.Labels
	logger *logger.Logger
}

// Open loads the network and selects the CPU or CUDA execution path.
func Open(opts ai.Options, labels ai.Labels, log *logger.Logger) (*Backend, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: model file not found: %w", ai.ErrModelLoad, err)
	}
	if opts.ModelConfigPath != "" {
		if _, err := os.Stat(opts.ModelConfigPath); err != nil {
			return nil, fmt.Errorf("%w: config file not found: %w", ai.ErrModelLoad, err)
		}
	}

	net := gocv.ReadNet(opts.ModelPath, opts.ModelConfigPath)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("%w: failed to load network %s", ai.ErrModelLoad, opts.ModelPath)
	}

	backend, target := gocv.NetBackendDefault, gocv.NetTargetCPU
	if opts.UseAccelerator {
		backend, target = gocv.NetBackendCUDA, gocv.NetTargetCUDA
	}
	errBackend := net.SetPreferableBackend(backend)
	errTarget := net.SetPreferableTarget(target)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("%w: failed to set preferable backend or target", ai.ErrModelLoad)
	}

	// OpenCV sizes its own thread pool; NumThreads only applies to TFLite.
	log.Info("Detection network %s initialized (accelerated: %t)", opts.ModelPath, opts.UseAccelerator)
	return &Backend{net: net, labels: labels, logger: log}, nil
}

// Infer runs one forward pass. The frame is already RGB, so the blob is built
// without swapping channels.
func (b *Backend) Infer(frame models.Frame) ([]models.Region, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}
	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap frame: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(InputSize, InputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), false, false)
	defer blob.Close()

	b.net.SetInput(blob, "")
	output := b.net.Forward("")
	defer output.Close()

	// [ batch_id, class_id, confidence, x1, y1, x2, y2 ]
	if !ai.IsSSDOutput(output.Size()) {
		return nil, fmt.Errorf("network output %v is not SSD detection rows", output.Size())
	}
	if output.Total() == 0 {
		return nil, nil
	}
	reshaped := output.Reshape(1, output.Total()/7)
	defer reshaped.Close()

	rows := make([][7]float32, reshaped.Rows())
	for i := range rows {
		for k := 0; k < 7; k++ {
			rows[i][k] = reshaped.GetFloatAt(i, k)
		}
	}
	b.logger.Debug("Network returned %d candidate rows", len(rows))
	return ai.DecodeSSDRows(rows, frame.Width, frame.Height, b.labels), nil
}

// Close releases the network.
func (b *Backend) Close() error {
	return b.net.Close()
}
