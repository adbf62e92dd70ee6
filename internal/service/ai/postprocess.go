package ai

import (
	"math"
	"strconv"
	"strings"

	"github.com/M-Samuel/security-camera/internal/models"
)

// PostProcessOutput holds the four outputs of a TFLite_Detection_PostProcess
// op. Boxes are normalized [ymin, xmin, ymax, xmax] quadruples.
type PostProcessOutput struct {
	Boxes   []float32
	Classes []float32
	Scores  []float32
	Count   int
}

// DecodePostProcess turns post-process tensors into regions, one category
// each, in output order.
func DecodePostProcess(out PostProcessOutput, width, height int, labels Labels) []models.Region {
	n := out.Count
	n = min(n, len(out.Scores), len(out.Classes), len(out.Boxes)/4)
	if n <= 0 {
		return nil
	}

	regions := make([]models.Region, 0, n)
	for i := 0; i < n; i++ {
		ymin, xmin := out.Boxes[4*i], out.Boxes[4*i+1]
		ymax, xmax := out.Boxes[4*i+2], out.Boxes[4*i+3]
		class := int(out.Classes[i])
		regions = append(regions, models.Region{
			Box: boxFromCorners(xmin, ymin, xmax, ymax, width, height),
			Categories: []models.Category{{
				Index: class,
				Label: labels.Name(class),
				Score: float64(out.Scores[i]),
			}},
		})
	}
	return regions
}

// DecodeSSDRows converts OpenCV DNN SSD output rows of
// [batch_id, class_id, confidence, x1, y1, x2, y2]. Class ids are one-based,
// zero is background.
func DecodeSSDRows(rows [][7]float32, width, height int, labels Labels) []models.Region {
	var regions []models.Region
	for _, row := range rows {
		class := int(row[1])
		if class <= 0 {
			continue
		}
		regions = append(regions, models.Region{
			Box: boxFromCorners(row[3], row[4], row[5], row[6], width, height),
			Categories: []models.Category{{
				Index: class - 1,
				Label: labels.Name(class - 1),
				Score: float64(row[2]),
			}},
		})
	}
	return regions
}

// IsSSDOutput reports whether a network output shape holds rows of 7 values,
// e.g. [1, 1, N, 7].
func IsSSDOutput(shape []int) bool {
	if len(shape) == 0 || shape[len(shape)-1] != 7 {
		return false
	}
	for _, dim := range shape {
		if dim < 0 {
			return false
		}
	}
	return true
}

func boxFromCorners(xmin, ymin, xmax, ymax float32, width, height int) models.BoundingBox {
	x := scale(xmin, width)
	y := scale(ymin, height)
	return models.BoundingBox{
		OriginX: x,
		OriginY: y,
		Width:   scale(xmax, width) - x,
		Height:  scale(ymax, height) - y,
	}
}

func scale(v float32, size int) int {
	return int(math.Round(float64(v) * float64(size)))
}

// Post-process output roles.
const (
	OutputBoxes = iota
	OutputClasses
	OutputScores
	OutputCount
)

// PostProcessTensorOrder maps each output role to a tensor index. Tensors named
// "<op>", "<op>:1", "<op>:2", "<op>:3" are placed by suffix; anything else
// falls back to index order.
func PostProcessTensorOrder(names []string) [4]int {
	order := [4]int{0, 1, 2, 3}
	if len(names) != 4 {
		return order
	}

	var found [4]bool
	var byName [4]int
	for i, name := range names {
		role := OutputBoxes
		if idx := strings.LastIndexByte(name, ':'); idx >= 0 {
			n, err := strconv.Atoi(name[idx+1:])
			if err != nil || n < 1 || n > 3 {
				return order
			}
			role = n
		}
		if found[role] {
			return order
		}
		found[role] = true
		byName[role] = i
	}
	return byName
}
