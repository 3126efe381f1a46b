package timeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultEDLRate is the rate EDL files are read at when none is given.
const DefaultEDLRate = 25.0

// ErrUnsupportedFormat is returned for sequence files no parser handles.
var ErrUnsupportedFormat = errors.New("unsupported timeline format")

// Shot is one edit event. End and SourceEnd are exclusive.
type Shot struct {
	Name        string `json:"name"`
	Reel        string `json:"reel,omitempty"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
	SourceStart int    `json:"source_start"`
	SourceEnd   int    `json:"source_end"`
}

// Duration returns the record length in frames.
func (s Shot) Duration() int { return s.End - s.Start }

// Timeline is an ordered list of shots at a single rate.
type Timeline struct {
	Name  string  `json:"name"`
	Rate  float64 `json:"rate"`
	Shots []Shot  `json:"shots"`
}

// Duration returns the record frame at which the last shot ends.
func (t *Timeline) Duration() int {
	if len(t.Shots) == 0 {
		return 0
	}
	return t.Shots[len(t.Shots)-1].End
}

// Parser reads one sequence format. A nil rateHint lets the parser pick its
// own rate.
type Parser interface {
	Read(path string, rateHint *float64) (*Timeline, error)
}

// ParserFor returns the parser registered for the extension of path.
func ParserFor(path string) (Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".edl":
		return EDL{}, nil
	case ".otio":
		return OTIO{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

// ReadFile dispatches on extension. EDL files without a hint are read at
// DefaultEDLRate.
func ReadFile(path string, rateHint *float64) (*Timeline, error) {
	parser, err := ParserFor(path)
	if err != nil {
		return nil, err
	}
	return parser.Read(path, rateHint)
}

// Rate returns a pointer to r for use as a rate hint.
func Rate(r float64) *float64 { return &r }

// finalize orders shots by record start, rejects overlaps and empty shots,
// and gives unnamed shots a stable name.
func (t *Timeline) finalize() error {
	slices.SortStableFunc(t.Shots, func(a, b Shot) int { return a.Start - b.Start })
	seen := make(map[string]int, len(t.Shots))
	for i := range t.Shots {
		shot := &t.Shots[i]
		if shot.End <= shot.Start {
			return fmt.Errorf("shot %d (%s) has no duration", i+1, shot.Name)
		}
		if shot.SourceEnd-shot.SourceStart != shot.Duration() {
			return fmt.Errorf("shot %d (%s): source length %d does not match record length %d",
				i+1, shot.Name, shot.SourceEnd-shot.SourceStart, shot.Duration())
		}
		if i > 0 && shot.Start < t.Shots[i-1].End {
			return fmt.Errorf("shot %s overlaps %s on the record side", shot.Name, t.Shots[i-1].Name)
		}
		if shot.Name == "" {
			shot.Name = fmt.Sprintf("shot%03d", i+1)
		}
		if n := seen[shot.Name]; n > 0 {
			seen[shot.Name] = n + 1
			shot.Name = fmt.Sprintf("%s_%d", shot.Name, n+1)
		} else {
			seen[shot.Name] = 1
		}
	}
	return nil
}
