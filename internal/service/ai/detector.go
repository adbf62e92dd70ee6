package ai

import (
	"fmt"
	"strings"

	"github.com/M-Samuel/security-camera/internal/dto"
	"github.com/M-Samuel/security-camera/internal/logger"
	"github.com/M-Samuel/security-camera/internal/models"
)

// Detector runs one backend over still images and shapes the result into
// detection records.
type Detector struct {
	backend Backend
	loader  ImageLoader
	options Options
	logger  *logger.Logger
}

// NewDetector validates options and binds the collaborators. The backend is
// owned by the caller.
func NewDetector(backend Backend, loader ImageLoader, options Options, log *logger.Logger) (*Detector, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: no inference backend", ErrModelLoad)
	}
	if loader == nil {
		return nil, fmt.Errorf("%w: no image loader", ErrInvalidConfig)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Detector{
		backend: backend,
		loader:  loader,
		options: options,
		logger:  log,
	}, nil
}

// Detect loads the image, runs a single inference pass and flattens the
// regions into records. The result is never nil on success.
func (d *Detector) Detect(imagePath string) ([]dto.DetectionRecord, error) {
	frame, err := d.loader.Load(imagePath)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("Loaded %s (%dx%d)", imagePath, frame.Width, frame.Height)

	regions, err := d.backend.Infer(frame)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	records := Flatten(regions, frame.Width, frame.Height, d.options)
	d.logger.Info("Detected %d objects in %s (%d raw regions)", len(records), imagePath, len(regions))
	return records, nil
}

// Flatten applies the score threshold, the category allow-list and the region
// cap, then emits one record per remaining category. Backend order is kept.
// The cap counts regions, not records.
func Flatten(regions []models.Region, width, height int, options Options) []dto.DetectionRecord {
	records := []dto.DetectionRecord{}
	kept := 0
	for _, region := range regions {
		if kept >= options.MaxResults {
			break
		}
		categories := keepCategories(region.Categories, options)
		if len(categories) == 0 {
			continue
		}
		kept++

		box := clampBox(region.Box, width, height)
		for _, c := range categories {
			records = append(records, dto.DetectionRecord{
				CategoryName: c.Label,
				Score:        c.Score,
				OriginX:      box.OriginX,
				OriginY:      box.OriginY,
				Width:        box.Width,
				Height:       box.Height,
			})
		}
	}
	return records
}

func keepCategories(categories []models.Category, options Options) []models.Category {
	var kept []models.Category
	for _, c := range categories {
		// NaN fails both comparisons
		if !(c.Score >= options.ScoreThreshold && c.Score <= 1) {
			continue
		}
		if !allowed(c.Label, options.Categories) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func allowed(label string, allowList []string) bool {
	if len(allowList) == 0 {
		return true
	}
	for _, name := range allowList {
		if strings.EqualFold(name, label) {
			return true
		}
	}
	return false
}

// clampBox keeps the box inside a width x height image. Non-positive image
// sizes only force non-negative values.
func clampBox(box models.BoundingBox, width, height int) models.BoundingBox {
	x0, x1 := box.OriginX, box.OriginX+box.Width
	y0, y1 := box.OriginY, box.OriginY+box.Height
	if width > 0 {
		x0, x1 = clamp(x0, 0, width), clamp(x1, 0, width)
	}
	if height > 0 {
		y0, y1 = clamp(y0, 0, height), clamp(y1, 0, height)
	}
	x0, y0 = max(x0, 0), max(y0, 0)
	return models.BoundingBox{
		OriginX: x0,
		OriginY: y0,
		Width:   max(x1-x0, 0),
		Height:  max(y1-y0, 0),
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
