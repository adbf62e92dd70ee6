package ai

import "errors"

var (
	// ErrModelLoad is returned when the model cannot be resolved, parsed or
	// prepared for the requested backend.
	ErrModelLoad = errors.New("model load failed")
	// ErrImageRead is returned when the image is missing or cannot be decoded.
	ErrImageRead = errors.New("image read failed")
	// ErrInvalidConfig is returned for options that cannot be run.
	ErrInvalidConfig = errors.New("invalid detector configuration")
)
