package timeline

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// EDL reads CMX3600 edit decision lists. Only video events are kept;
// transitions other than cuts are treated as cuts at the record in point.
type EDL struct{}

func (EDL) Read(path string, rateHint *float64) (*Timeline, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open edl: %w", err)
	}
	defer file.Close()
	rate := DefaultEDLRate
	if rateHint != nil {
		rate = *rateHint
	}
	tl, err := ParseEDL(file, rate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if tl.Name == "" {
		tl.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return tl, nil
}

type edlEvent struct {
	number   string
	reel     string
	clipName string
	srcIn    int
	srcOut   int
	recIn    int
	recOut   int
}

// ParseEDL parses CMX3600 text at rate.
func ParseEDL(r io.Reader, rate float64) (*Timeline, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, fmt.Errorf("invalid edl rate %v", rate)
	}
	fps := int(math.Round(rate))
	tl := &Timeline{Rate: rate}
	var (
		events  []*edlEvent
		current *edlEvent
	)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "TITLE:"):
			tl.Name = strings.TrimSpace(line[len("TITLE:"):])
			continue
		case strings.HasPrefix(upper, "FCM:"):
			continue
		case strings.HasPrefix(line, "*"):
			if current != nil {
				applyComment(current, strings.TrimSpace(strings.TrimPrefix(line, "*")))
			}
			continue
		case strings.HasPrefix(upper, "M2") || strings.HasPrefix(upper, "SPLIT"):
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 8 {
			return nil, fmt.Errorf("line %d: malformed event %q", lineNo, line)
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			return nil, fmt.Errorf("line %d: event number %q", lineNo, fields[0])
		}
		// Timecodes are the last four fields; dissolves and wipes carry an
		// extra duration field before them.
		tcs := fields[len(fields)-4:]
		track := strings.ToUpper(fields[2])
		frames := make([]int, 4)
		for i, tc := range tcs {
			value, err := timecodeToFrames(tc, fps)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			frames[i] = value
		}
		current = &edlEvent{
			number: fields[0],
			reel:   fields[1],
			srcIn:  frames[0],
			srcOut: frames[1],
			recIn:  frames[2],
			recOut: frames[3],
		}
		if strings.HasPrefix(track, "V") || track == "B" {
			events = append(events, current)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read edl: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("edl has no video events")
	}

	origin := events[0].recIn
	for _, ev := range events {
		origin = min(origin, ev.recIn)
	}
	for _, ev := range events {
		name := ev.clipName
		if name == "" && !strings.EqualFold(ev.reel, "AX") && !strings.EqualFold(ev.reel, "BL") {
			name = ev.reel
		}
		tl.Shots = append(tl.Shots, Shot{
			Name:        name,
			Reel:        ev.reel,
			Start:       ev.recIn - origin,
			End:         ev.recOut - origin,
			SourceStart: ev.srcIn,
			SourceEnd:   ev.srcOut,
		})
	}
	if err := tl.finalize(); err != nil {
		return nil, err
	}
	return tl, nil
}

func applyComment(ev *edlEvent, comment string) {
	upper := strings.ToUpper(comment)
	switch {
	case strings.HasPrefix(upper, "FROM CLIP NAME:"):
		ev.clipName = strings.TrimSpace(comment[len("FROM CLIP NAME:"):])
	case strings.HasPrefix(upper, "LOC:") && ev.clipName == "":
		// * LOC: 01:00:00:00 RED     sh010
		fields := strings.Fields(comment[len("LOC:"):])
		if len(fields) >= 3 {
			ev.clipName = fields[len(fields)-1]
		}
	}
}

// timecodeToFrames converts HH:MM:SS:FF (or ; separated drop-frame
// notation, counted as non-drop) to a frame count at fps.
func timecodeToFrames(tc string, fps int) (int, error) {
	parts := strings.FieldsFunc(tc, func(r rune) bool { return r == ':' || r == ';' || r == '.' })
	if len(parts) != 4 {
		return 0, fmt.Errorf("invalid timecode %q", tc)
	}
	values := make([]int, 4)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timecode %q", tc)
		}
		values[i] = n
	}
	if values[1] > 59 || values[2] > 59 || values[3] >= fps {
		return 0, fmt.Errorf("timecode %q out of range at %d fps", tc, fps)
	}
	return ((values[0]*60+values[1])*60+values[2])*fps + values[3], nil
}
