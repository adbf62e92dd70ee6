package app

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/M-Samuel/security-camera/internal/config"
	"github.com/M-Samuel/security-camera/internal/logger"
	"github.com/M-Samuel/security-camera/internal/models"
	"github.com/M-Samuel/security-camera/internal/service/ai"
	"go.viam.com/test"
)

const fakeDecoder = "fake"

type fakeBackend struct {
	regions []models.Region
	closed  bool
}

func (b *fakeBackend) Infer(models.Frame) ([]models.Region, error) { return b.regions, nil }

func (b *fakeBackend) Close() error {
	b.closed = true
	return nil
}

type fakeLoader struct {
	frame models.Frame
	err   error
	calls int
}

func (l *fakeLoader) Load(path string) (models.Frame, error) {
	l.calls++
	if l.err != nil {
		return models.Frame{}, l.err
	}
	return l.frame, nil
}

// harness records which collaborators an App touched.
type harness struct {
	backend  *fakeBackend
	loader   *fakeLoader
	openErr  error
	opened   int
	openOpts ai.Options
}

func newHarness() *harness {
	return &harness{
		backend: &fakeBackend{regions: []models.Region{{
			Box:        models.BoundingBox{OriginX: 4, OriginY: 2, Width: 20, Height: 40},
			Categories: []models.Category{{Label: "person", Score: 0.88}},
		}}},
		loader: &fakeLoader{frame: models.Frame{Width: 64, Height: 48, Pix: make([]byte, 64*48*3)}},
	}
}

func (h *harness) open(opts ai.Options, _ ai.Labels, _ *logger.Logger) (ai.Backend, error) {
	h.opened++
	h.openOpts = opts
	if h.openErr != nil {
		return nil, h.openErr
	}
	return h.backend, nil
}

func (h *harness) options() []Option {
	return []Option{
		WithBackend(ai.BackendTFLite, h.open),
		WithImageLoader(fakeDecoder, func() ai.ImageLoader { return h.loader }),
	}
}

func testConfig() *config.Config {
	return &config.Config{
		ModelPath:      "efficientdet_lite0.tflite",
		NumThreads:     4,
		ImageDecoder:   fakeDecoder,
		MaxResults:     10,
		ScoreThreshold: 0.3,
		LogLevel:       "error",
	}
}

const personJSON = `[
    {
        "category_name": "person",
        "score": 0.88,
        "origin_x": 4,
        "origin_y": 2,
        "width": 20,
        "height": 40
    }
]
`

func TestDetectWritesRecords(t *testing.T) {
	h := newHarness()
	var out bytes.Buffer

	err := NewApp(testConfig(), logger.NewNop(), h.options()...).Detect("gate.jpg", &out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldEqual, personJSON)
	test.That(t, h.opened, test.ShouldEqual, 1)
	test.That(t, h.openOpts.NumThreads, test.ShouldEqual, 4)
	test.That(t, h.backend.closed, test.ShouldBeTrue)
}

func TestDetectWritesResultFile(t *testing.T) {
	h := newHarness()
	cfg := testConfig()
	cfg.ResultJSONPath = filepath.Join(t.TempDir(), "result.json")
	var out bytes.Buffer

	test.That(t, NewApp(cfg, nil, h.options()...).Detect("gate.jpg", &out), test.ShouldBeNil)
	written, err := os.ReadFile(cfg.ResultJSONPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(written), test.ShouldEqual, personJSON)
	test.That(t, out.String(), test.ShouldEqual, personJSON)
}

func TestDetectResultFileFailureWritesNothing(t *testing.T) {
	h := newHarness()
	cfg := testConfig()
	cfg.ResultJSONPath = filepath.Join(t.TempDir(), "missing", "result.json")
	var out bytes.Buffer

	err := NewApp(cfg, nil, h.options()...).Detect("gate.jpg", &out)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "writing result file")
	test.That(t, out.Len(), test.ShouldEqual, 0)
}

func TestDetectFailures(t *testing.T) {
	tests := []struct {
		name       string
		configure  func(*config.Config, *harness)
		want       error
		wantOpened int
		wantLoads  int
	}{
		{
			name:      "zero threads",
			configure: func(c *config.Config, _ *harness) { c.NumThreads = 0 },
			want:      ai.ErrInvalidConfig,
		},
		{
			name:      "negative threads with a missing model",
			configure: func(c *config.Config, _ *harness) { c.NumThreads = -2; c.ModelPath = "missing.model" },
			want:      ai.ErrInvalidConfig,
		},
		{
			name:      "unknown decoder",
			configure: func(c *config.Config, _ *harness) { c.ImageDecoder = "magick" },
			want:      ai.ErrInvalidConfig,
		},
		{
			name:      "decoder not registered",
			configure: func(c *config.Config, _ *harness) { c.ImageDecoder = "" },
			want:      ai.ErrInvalidConfig,
		},
		{
			name: "missing labels file",
			configure: func(c *config.Config, _ *harness) {
				c.LabelsPath = filepath.Join(os.TempDir(), "no-such-dir", "labels.txt")
			},
			want: ai.ErrModelLoad,
		},
		{
			name:      "unsupported model format",
			configure: func(c *config.Config, _ *harness) { c.ModelPath = "yolov8n.onnx" },
			want:      ai.ErrModelLoad,
		},
		{
			name:      "backend not registered",
			configure: func(c *config.Config, _ *harness) { c.ModelPath = "frozen_inference_graph.pb" },
			want:      ai.ErrModelLoad,
		},
		{
			name: "model load fails before the image is read",
			configure: func(_ *config.Config, h *harness) {
				h.openErr = fmt.Errorf("%w: cannot parse model", ai.ErrModelLoad)
				h.loader.err = fmt.Errorf("%w: no such file", ai.ErrImageRead)
			},
			want:       ai.ErrModelLoad,
			wantOpened: 1,
		},
		{
			name: "image read",
			configure: func(_ *config.Config, h *harness) {
				h.loader.err = fmt.Errorf("%w: no such file", ai.ErrImageRead)
			},
			want:       ai.ErrImageRead,
			wantOpened: 1,
			wantLoads:  1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			cfg := testConfig()
			tc.configure(cfg, h)
			var out bytes.Buffer

			err := NewApp(cfg, logger.NewNop(), h.options()...).Detect("gate.jpg", &out)
			test.That(t, errors.Is(err, tc.want), test.ShouldBeTrue)
			test.That(t, out.Len(), test.ShouldEqual, 0)
			test.That(t, h.opened, test.ShouldEqual, tc.wantOpened)
			test.That(t, h.loader.calls, test.ShouldEqual, tc.wantLoads)
		})
	}
}

func TestDetectClosesBackendOnImageError(t *testing.T) {
	h := newHarness()
	h.loader.err = fmt.Errorf("%w: broken", ai.ErrImageRead)
	err := NewApp(testConfig(), nil, h.options()...).Detect("gate.jpg", &bytes.Buffer{})
	test.That(t, errors.Is(err, ai.ErrImageRead), test.ShouldBeTrue)
	test.That(t, h.backend.closed, test.ShouldBeTrue)
}

func TestDetectWithGoDecoder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 8, 6))), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	h := newHarness()
	cfg := testConfig()
	cfg.ImageDecoder = config.DecoderGo
	var out bytes.Buffer

	test.That(t, NewApp(cfg, nil, h.options()...).Detect(path, &out), test.ShouldBeNil)
	// the box is clamped to the 8x6 frame
	test.That(t, out.String(), test.ShouldContainSubstring, `"width": 4`)
	test.That(t, out.String(), test.ShouldContainSubstring, `"height": 4`)

	out.Reset()
	err = NewApp(cfg, nil, h.options()...).Detect(filepath.Join(t.TempDir(), "gone.png"), &out)
	test.That(t, errors.Is(err, ai.ErrImageRead), test.ShouldBeTrue)
	test.That(t, out.Len(), test.ShouldEqual, 0)
}

func TestDetectorOptions(t *testing.T) {
	cfg := testConfig()
	cfg.EnableEdgeTPU = true
	cfg.Categories = []string{"person"}
	opts := NewApp(cfg, nil).DetectorOptions()
	test.That(t, opts.UseAccelerator, test.ShouldBeTrue)
	test.That(t, opts.Categories, test.ShouldResemble, []string{"person"})
	test.That(t, opts.MaxResults, test.ShouldEqual, 10)
	test.That(t, opts.ScoreThreshold, test.ShouldEqual, 0.3)
}
