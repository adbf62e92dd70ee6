package ai

import "fmt"

const (
	DefaultModelPath      = "efficientdet_lite0.tflite"
	DefaultNumThreads     = 4
	DefaultMaxResults     = 10
	DefaultScoreThreshold = 0.3
)

// Options configures one detection run.
type Options struct {
	ModelPath       string
	ModelConfigPath string
	NumThreads      int
	UseAccelerator  bool
	MaxResults      int
	ScoreThreshold  float64
	Categories      []string // empty allows every category
}

// DefaultOptions returns the tuned security-camera defaults: 10 regions at
// score 0.3 or above, 4 threads, CPU only.
func DefaultOptions() Options {
	return Options{
		ModelPath:      DefaultModelPath,
		NumThreads:     DefaultNumThreads,
		MaxResults:     DefaultMaxResults,
		ScoreThreshold: DefaultScoreThreshold,
	}
}

// Validate reports options that cannot be run. It never touches the model.
func (o Options) Validate() error {
	if o.NumThreads <= 0 {
		return fmt.Errorf("%w: thread count must be positive, got %d", ErrInvalidConfig, o.NumThreads)
	}
	if o.MaxResults <= 0 {
		return fmt.Errorf("%w: max results must be positive, got %d", ErrInvalidConfig, o.MaxResults)
	}
	if !(o.ScoreThreshold >= 0 && o.ScoreThreshold <= 1) {
		return fmt.Errorf("%w: score threshold must be within [0, 1], got %v", ErrInvalidConfig, o.ScoreThreshold)
	}
	return nil
}
