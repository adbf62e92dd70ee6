package app

import (
	"fmt"
	"io"
	"os"

	"github.com/M-Samuel/security-camera/internal/config"
	"github.com/M-Samuel/security-camera/internal/dto"
	"github.com/M-Samuel/security-camera/internal/logger"
	"github.com/M-Samuel/security-camera/internal/service/ai"
	"github.com/M-Samuel/security-camera/internal/service/imageio"
)

// BackendOpener loads a model into an inference backend. Failures wrap
// ai.ErrModelLoad.
type BackendOpener func(opts ai.Options, labels ai.Labels, log *logger.Logger) (ai.Backend, error)

// LoaderFactory builds an image loader.
type LoaderFactory func() ai.ImageLoader

// Option registers a collaborator on the App.
type Option func(*App)

// WithBackend registers the opener used for models of the given kind.
func WithBackend(kind ai.BackendKind, open BackendOpener) Option {
	return func(a *App) {
		a.backends[kind] = open
	}
}

// WithImageLoader registers the loader used for a decoder name.
func WithImageLoader(decoder string, newLoader LoaderFactory) Option {
	return func(a *App) {
		a.loaders[decoder] = newLoader
	}
}

// App runs the detector with the configured collaborators.
type App struct {
	config   *config.Config
	logger   *logger.Logger
	backends map[ai.BackendKind]BackendOpener
	loaders  map[string]LoaderFactory
}

// NewApp binds the configuration to the registered collaborators. The pure Go
// image decoder is always available; inference backends must be registered.
func NewApp(cfg *config.Config, log *logger.Logger, options ...Option) *App {
	if log == nil {
		log = logger.NewNop()
	}
	a := &App{
		config:   cfg,
		logger:   log,
		backends: map[ai.BackendKind]BackendOpener{},
		loaders: map[string]LoaderFactory{
			config.DecoderGo: func() ai.ImageLoader { return imageio.NewDecoder() },
		},
	}
	for _, option := range options {
		option(a)
	}
	return a
}

// DetectorOptions converts the loaded configuration into detector options.
func (a *App) DetectorOptions() ai.Options {
	return ai.Options{
		ModelPath:       a.config.ModelPath,
		ModelConfigPath: a.config.ModelConfigPath,
		NumThreads:      a.config.NumThreads,
		UseAccelerator:  a.config.EnableEdgeTPU,
		MaxResults:      a.config.MaxResults,
		ScoreThreshold:  a.config.ScoreThreshold,
		Categories:      a.config.Categories,
	}
}

// Detect runs the detector over one image and writes the records to out, and
// to the result file when one is configured. Configuration is checked before
// the model is touched, and the model is loaded before the image. Nothing is
// written unless detection succeeds.
func (a *App) Detect(imagePath string, out io.Writer) error {
	opts := a.DetectorOptions()
	if err := opts.Validate(); err != nil {
		return err
	}

	loader, err := a.imageLoader()
	if err != nil {
		return err
	}
	labels, err := a.labels()
	if err != nil {
		return err
	}

	backend, err := a.openBackend(opts, labels)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			a.logger.Warning("Closing inference backend: %v", err)
		}
	}()

	detector, err := ai.NewDetector(backend, loader, opts, a.logger)
	if err != nil {
		return err
	}
	records, err := detector.Detect(imagePath)
	if err != nil {
		return err
	}

	encoded, err := dto.EncodeRecords(records)
	if err != nil {
		return fmt.Errorf("encoding detections: %w", err)
	}
	encoded = append(encoded, '\n')

	if path := a.config.ResultJSONPath; path != "" {
		if err := os.WriteFile(path, encoded, 0o644); err != nil {
			return fmt.Errorf("writing result file: %w", err)
		}
		a.logger.Debug("Wrote %d records to %s", len(records), path)
	}
	if _, err := out.Write(encoded); err != nil {
		return fmt.Errorf("writing detections: %w", err)
	}
	return nil
}

func (a *App) openBackend(opts ai.Options, labels ai.Labels) (ai.Backend, error) {
	kind, err := ai.BackendKindFor(opts.ModelPath)
	if err != nil {
		return nil, err
	}
	open, ok := a.backends[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no %s backend in this build", ai.ErrModelLoad, kind)
	}
	a.logger.Debug("Opening %s backend for %s", kind, opts.ModelPath)
	return open(opts, labels, a.logger)
}

func (a *App) imageLoader() (ai.ImageLoader, error) {
	decoder := a.config.ImageDecoder
	if decoder == "" {
		decoder = config.DecoderOpenCV
	}
	newLoader, ok := a.loaders[decoder]
	if !ok {
		return nil, fmt.Errorf("%w: unknown image decoder %q", ai.ErrInvalidConfig, decoder)
	}
	return newLoader(), nil
}

func (a *App) labels() (ai.Labels, error) {
	if a.config.LabelsPath == "" {
		return ai.DefaultLabels(), nil
	}
	return ai.LoadLabels(a.config.LabelsPath)
}
