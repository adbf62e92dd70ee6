package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/M-Samuel/security-camera/internal/config"
	"github.com/M-Samuel/security-camera/internal/logger"
	"github.com/M-Samuel/security-camera/internal/service/ai"
)

// NewDetectorCommand builds the detector command line. Flag defaults come from
// cfg. Only the detection JSON goes to stdout; help, usage errors and logs go
// to stderr.
func NewDetectorCommand(cfg *config.Config, stdout, stderr io.Writer, options ...Option) *cli.App {
	return &cli.App{
		Name:      "detector",
		Usage:     "run object detection on a still image and print the detections as JSON",
		Writer:    stderr,
		ErrWriter: stderr,
		// main maps errors to exit codes
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Value: cfg.ModelPath, Usage: "path of the detection model (.tflite or an OpenCV SSD graph)"},
			&cli.StringFlag{Name: "modelConfig", Value: cfg.ModelConfigPath, Usage: "OpenCV DNN network config"},
			&cli.StringFlag{Name: "labels", Value: cfg.LabelsPath, Usage: "label map, one label per line (default: bundled COCO labels)"},
			&cli.StringFlag{Name: "imagePath", Required: true, Usage: "image to run detection on"},
			&cli.StringFlag{Name: "resultJsonPath", Value: cfg.ResultJSONPath, Usage: "also write the detections to this file"},
			&cli.IntFlag{Name: "numThreads", Value: cfg.NumThreads, Usage: "number of inference threads"},
			&cli.BoolFlag{Name: "enableEdgeTPU", Value: cfg.EnableEdgeTPU, Usage: "run the model on a Coral EdgeTPU (CUDA for OpenCV models)"},
			&cli.StringFlag{Name: "decoder", Value: cfg.ImageDecoder, Usage: "image decoder: opencv or go"},
			&cli.StringSliceFlag{Name: "category", Value: cli.NewStringSlice(cfg.Categories...), Usage: "only report these categories (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			cfg.ModelPath = c.String("model")
			cfg.ModelConfigPath = c.String("modelConfig")
			cfg.LabelsPath = c.String("labels")
			cfg.ResultJSONPath = c.String("resultJsonPath")
			cfg.NumThreads = c.Int("numThreads")
			cfg.EnableEdgeTPU = c.Bool("enableEdgeTPU")
			cfg.ImageDecoder = c.String("decoder")
			cfg.Categories = c.StringSlice("category")

			log, err := logger.NewLogger(cfg)
			if err != nil {
				return fmt.Errorf("%w: %w", ai.ErrInvalidConfig, err)
			}
			defer log.Close()

			if err := NewApp(cfg, log, options...).Detect(c.String("imagePath"), stdout); err != nil {
				log.Error("Detection failed: %v", err)
				return err
			}
			return nil
		},
	}
}

// ExitCode maps a detector error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ai.ErrInvalidConfig):
		return 2
	case errors.Is(err, ai.ErrModelLoad):
		return 3
	case errors.Is(err, ai.ErrImageRead):
		return 4
	default:
		return 1
	}
}
