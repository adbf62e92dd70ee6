package main

import (
	"fmt"
	"os"

	"github.com/M-Samuel/security-camera/internal/app"
	"github.com/M-Samuel/security-camera/internal/config"
	"github.com/M-Samuel/security-camera/internal/logger"
	"github.com/M-Samuel/security-camera/internal/service/ai"
	"github.com/M-Samuel/security-camera/internal/service/ai/opencv"
	"github.com/M-Samuel/security-camera/internal/service/ai/tflite"
	cvimage "github.com/M-Samuel/security-camera/internal/service/imageio/opencv"
)

func main() {
	command := app.NewDetectorCommand(config.Load(), os.Stdout, os.Stderr,
		app.WithBackend(ai.BackendTFLite, openTFLite),
		app.WithBackend(ai.BackendOpenCV, openOpenCV),
		app.WithImageLoader(config.DecoderOpenCV, func() ai.ImageLoader { return cvimage.NewLoader() }),
	)

	if err := command.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "detector: %v\n", err)
		os.Exit(app.ExitCode(err))
	}
}

// The openers return a nil interface on failure, never a typed nil.

func openTFLite(opts ai.Options, labels ai.Labels, log *logger.Logger) (ai.Backend, error) {
	backend, err := tflite.Open(opts, labels, log)
	if err != nil {
		return nil, err
	}
	return backend, nil
}

func openOpenCV(opts ai.Options, labels ai.Labels, log *logger.Logger) (ai.Backend, error) {
	backend, err := opencv.Open(opts, labels, log)
	if err != nil {
		return nil, err
	}
	return backend, nil
}
