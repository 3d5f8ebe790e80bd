package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"seeingmetrics/pkg/seeing"
)

// readPositions reads x,y pixel positions from a CSV file. Extra columns
// are ignored, lines starting with # are comments and a first line that
// does not parse as numbers is taken as a header.
func readPositions(path string) ([]seeing.SourceCandidate, error) {
	f, err := os.Open(path) //nolint:gosec // user supplied positions file
	if err != nil {
		return nil, fmt.Errorf("opening positions: %w", err)
	}
	defer f.Close()
	return parsePositions(f)
}

func parsePositions(r io.Reader) ([]seeing.SourceCandidate, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var sources []seeing.SourceCandidate
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading positions: %w", err)
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("positions line %d: want x,y, got %d field(s)", line, len(rec))
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if errX != nil || errY != nil {
			if len(sources) == 0 && line == 1 {
				continue
			}
			return nil, fmt.Errorf("positions line %d: invalid coordinates %q, %q", line, rec[0], rec[1])
		}
		if math.IsInf(x, 0) || math.IsInf(y, 0) || math.IsNaN(x) || math.IsNaN(y) {
			return nil, fmt.Errorf("positions line %d: non-finite coordinates %q, %q", line, rec[0], rec[1])
		}
		sources = append(sources, seeing.SourceCandidate{X: x, Y: y})
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no positions in file")
	}
	return sources, nil
}
