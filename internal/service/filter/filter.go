// Package filter extracts "<count> <person|car>" tokens from detection
// summary lines.
package filter

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/M-Samuel/security-camera/internal/logger"
)

// Only ASCII digits, a single space, and at most one plural "s". There is no
// trailing word boundary, so "1 carpool" yields "1 car".
var detectionPattern = regexp.MustCompile(`[0-9]+ (?:person|car)s?`)

// Tokens returns every non-overlapping match in left-to-right order, or nil.
func Tokens(line string) []string {
	return detectionPattern.FindAllString(line, -1)
}

// Encode renders tokens as a JSON array of strings with ", " between items.
func Encode(tokens []string) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, token := range tokens {
		if i > 0 {
			sb.WriteString(", ")
		}
		quoted, _ := json.Marshal(token) // strings always marshal
		sb.Write(quoted)
	}
	sb.WriteByte(']')
	return sb.String()
}

// Stats summarises one Run.
type Stats struct {
	Lines   int
	Emitted int
}

// LineFilter streams detection summary lines into token arrays.
type LineFilter struct {
	logger *logger.Logger
}

// New returns a LineFilter logging to log, or nowhere when log is nil.
func New(log *logger.Logger) *LineFilter {
	if log == nil {
		log = logger.NewNop()
	}
	return &LineFilter{logger: log}
}

// Run copies one JSON array line to w for every line of r that holds at least
// one token. Each output line is flushed before the next read. Lines have no
// length limit and a final line without newline is still processed. Reaching
// the end of r is not an error.
func (f *LineFilter) Run(r io.Reader, w io.Writer) (Stats, error) {
	var stats Stats
	reader := bufio.NewReader(r)
	writer := bufio.NewWriter(w)

	for {
		line, readErr := reader.ReadString('\n')
		if len(line) > 0 {
			stats.Lines++
			if tokens := Tokens(line); len(tokens) > 0 {
				if _, err := writer.WriteString(Encode(tokens) + "\n"); err != nil {
					return stats, fmt.Errorf("writing output: %w", err)
				}
				if err := writer.Flush(); err != nil {
					return stats, fmt.Errorf("writing output: %w", err)
				}
				stats.Emitted++
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				f.logger.Debug("Input exhausted after %d lines, %d emitted", stats.Lines, stats.Emitted)
				return stats, nil
			}
			return stats, fmt.Errorf("reading input: %w", readErr)
		}
	}
}
