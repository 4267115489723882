package analyze

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Sample is a CSV row: an operating point with an optional label.
type Sample struct {
	Label string
	Point Point
}

// ReadCSV parses rows of "restraint,differential[,label]". A first row that
// does not parse as numbers is treated as a header.
func ReadCSV(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var out []Sample
	for first := true; ; first = false {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: want at least 2 fields, got %d", line, len(rec))
		}

		x, errX := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if errX != nil || errY != nil {
			if first {
				continue
			}
			return nil, fmt.Errorf("line %d: invalid point %q,%q", line, rec[0], rec[1])
		}

		s := Sample{Point: Point{X: x, Y: y}}
		if len(rec) > 2 {
			s.Label = strings.TrimSpace(rec[2])
		}
		out = append(out, s)
	}
}

// Points strips the labels.
func Points(samples []Sample) []Point {
	pts := make([]Point, len(samples))
	for i, s := range samples {
		pts[i] = s.Point
	}
	return pts
}
