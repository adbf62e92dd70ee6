package ai

import (
	"bufio"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
)

//go:embed coco_labels.txt
var cocoLabels string

// Labels maps a zero-based class index to its name.
type Labels []string

// DefaultLabels returns the 90-entry COCO label map used by the bundled
// EfficientDet-Lite model. Unused ids are "???".
func DefaultLabels() Labels {
	return parseLabels(bufio.NewScanner(strings.NewReader(cocoLabels)))
}

// LoadLabels reads one label per line.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening labels: %w", ErrModelLoad, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	labels := parseLabels(scanner)
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading labels: %w", ErrModelLoad, err)
	}
	return labels, nil
}

func parseLabels(scanner *bufio.Scanner) Labels {
	labels := Labels{}
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	return labels
}

// Name returns the label at index, or the index itself when unknown.
func (l Labels) Name(index int) string {
	if index >= 0 && index < len(l) && l[index] != "" {
		return l[index]
	}
	return strconv.Itoa(index)
}
