package timeline

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// OTIO reads OpenTimelineIO JSON documents. The first video track is used.
// The embedded rate wins over any hint; the hint only applies to documents
// that carry no rate at all.
type OTIO struct{}

type rationalTime struct {
	Schema string  `json:"OTIO_SCHEMA,omitempty"`
	Rate   float64 `json:"rate"`
	Value  float64 `json:"value"`
}

type timeRange struct {
	Schema    string       `json:"OTIO_SCHEMA,omitempty"`
	StartTime rationalTime `json:"start_time"`
	Duration  rationalTime `json:"duration"`
}

type otioItem struct {
	Schema      string         `json:"OTIO_SCHEMA"`
	Name        string         `json:"name"`
	Kind        string         `json:"kind,omitempty"`
	SourceRange *timeRange     `json:"source_range,omitempty"`
	Children    []otioItem     `json:"children,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	MediaRef    *otioMediaRef  `json:"media_reference,omitempty"`
}

type otioMediaRef struct {
	Schema string `json:"OTIO_SCHEMA"`
	Name   string `json:"name,omitempty"`
}

type otioTimeline struct {
	Schema          string         `json:"OTIO_SCHEMA"`
	Name            string         `json:"name"`
	GlobalStartTime *rationalTime  `json:"global_start_time,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Tracks          otioItem       `json:"tracks"`
}

func (OTIO) Read(path string, rateHint *float64) (*Timeline, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open otio: %w", err)
	}
	defer file.Close()
	tl, err := ParseOTIO(file, rateHint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if tl.Name == "" {
		tl.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return tl, nil
}

// ParseOTIO decodes an OTIO timeline document.
func ParseOTIO(r io.Reader, rateHint *float64) (*Timeline, error) {
	var doc otioTimeline
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode otio: %w", err)
	}
	if !strings.HasPrefix(doc.Schema, "Timeline.") {
		return nil, fmt.Errorf("otio root is %q, want a Timeline", doc.Schema)
	}
	track, ok := firstVideoTrack(doc.Tracks)
	if !ok {
		return nil, fmt.Errorf("otio timeline has no video track")
	}

	rate := embeddedRate(doc, track)
	if rate == 0 {
		if rateHint == nil {
			return nil, fmt.Errorf("otio timeline has no rate and no rate was given")
		}
		rate = *rateHint
		if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
			return nil, fmt.Errorf("invalid otio rate %v", rate)
		}
	}

	tl := &Timeline{Name: doc.Name, Rate: rate}
	position := 0
	for _, item := range track.Children {
		switch {
		case strings.HasPrefix(item.Schema, "Transition."):
			continue
		case item.SourceRange == nil:
			return nil, fmt.Errorf("%s %q has no source range", item.Schema, item.Name)
		}
		duration := rescale(item.SourceRange.Duration, rate)
		if strings.HasPrefix(item.Schema, "Clip.") {
			start := rescale(item.SourceRange.StartTime, rate)
			tl.Shots = append(tl.Shots, Shot{
				Name:        item.Name,
				Reel:        reelName(item),
				Start:       position,
				End:         position + duration,
				SourceStart: start,
				SourceEnd:   start + duration,
			})
		}
		position += duration
	}
	if len(tl.Shots) == 0 {
		return nil, fmt.Errorf("otio video track has no clips")
	}
	if err := tl.finalize(); err != nil {
		return nil, err
	}
	return tl, nil
}

func firstVideoTrack(stack otioItem) (otioItem, bool) {
	for _, child := range stack.Children {
		if strings.HasPrefix(child.Schema, "Track.") && (child.Kind == "" || strings.EqualFold(child.Kind, "Video")) {
			return child, true
		}
	}
	return otioItem{}, false
}

func embeddedRate(doc otioTimeline, track otioItem) float64 {
	if doc.GlobalStartTime != nil && doc.GlobalStartTime.Rate > 0 {
		return doc.GlobalStartTime.Rate
	}
	for _, item := range track.Children {
		if item.SourceRange != nil && item.SourceRange.Duration.Rate > 0 {
			return item.SourceRange.Duration.Rate
		}
	}
	return 0
}

func rescale(t rationalTime, rate float64) int {
	if t.Rate <= 0 || t.Rate == rate {
		return int(math.Round(t.Value))
	}
	return int(math.Round(t.Value * rate / t.Rate))
}

func reelName(item otioItem) string {
	if cmx, ok := item.Metadata["cmx_3600"].(map[string]any); ok {
		if reel, ok := cmx["reel"].(string); ok {
			return reel
		}
	}
	return ""
}

// WriteOTIO encodes tl as an OTIO JSON timeline with a single video track.
// Gaps between shots are written as Gap items so record positions survive a
// round trip through ParseOTIO.
func WriteOTIO(w io.Writer, tl *Timeline) error {
	if tl == nil || tl.Rate <= 0 {
		return fmt.Errorf("timeline rate required")
	}
	track := otioItem{Schema: "Track.1", Name: "Video", Kind: "Video", Children: []otioItem{}}
	position := 0
	for _, shot := range tl.Shots {
		if gap := shot.Start - position; gap > 0 {
			track.Children = append(track.Children, otioItem{
				Schema:      "Gap.1",
				SourceRange: newRange(0, gap, tl.Rate),
			})
		}
		clip := otioItem{
			Schema:      "Clip.2",
			Name:        shot.Name,
			SourceRange: newRange(shot.SourceStart, shot.Duration(), tl.Rate),
			MediaRef:    &otioMediaRef{Schema: "MissingReference.1"},
		}
		if shot.Reel != "" {
			clip.Metadata = map[string]any{"cmx_3600": map[string]any{"reel": shot.Reel}}
		}
		track.Children = append(track.Children, clip)
		position = shot.End
	}
	doc := otioTimeline{
		Schema:          "Timeline.1",
		Name:            tl.Name,
		GlobalStartTime: &rationalTime{Schema: "RationalTime.1", Rate: tl.Rate, Value: 0},
		Tracks: otioItem{
			Schema:   "Stack.1",
			Name:     "tracks",
			Children: []otioItem{track},
		},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode otio: %w", err)
	}
	return nil
}

func newRange(start, duration int, rate float64) *timeRange {
	return &timeRange{
		Schema:    "TimeRange.1",
		StartTime: rationalTime{Schema: "RationalTime.1", Rate: rate, Value: float64(start)},
		Duration:  rationalTime{Schema: "RationalTime.1", Rate: rate, Value: float64(duration)},
	}
}
