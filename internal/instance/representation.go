package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Files is either a single file name or an ordered frame sequence. It
// marshals as a JSON string for one file and as an array for sequences.
type Files []string

// Single wraps one file name.
func Single(name string) Files { return Files{name} }

// Sequence wraps an ordered list of frame file names.
func Sequence(names ...string) Files { return append(Files{}, names...) }

// MarshalJSON keeps the string-or-array shape consumers expect.
func (f Files) MarshalJSON() ([]byte, error) {
	if len(f) == 1 {
		return json.Marshal(f[0])
	}
	return json.Marshal([]string(f))
}

// UnmarshalJSON accepts a string or an array of strings.
func (f *Files) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*f = Files{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("files must be a string or list of strings: %w", err)
	}
	*f = Files(many)
	return nil
}

// Representation describes one exported output of an instance.
type Representation struct {
	Name       string `json:"name"`
	Ext        string `json:"ext"`
	Files      Files  `json:"files"`
	StagingDir string `json:"stagingDir"`
	FrameStart *int   `json:"frameStart,omitempty"`
	FrameEnd   *int   `json:"frameEnd,omitempty"`
}

// WithFrames returns a copy carrying an explicit frame range.
func (r Representation) WithFrames(start, end int) Representation {
	r.FrameStart = &start
	r.FrameEnd = &end
	return r
}

// Paths returns the absolute path of every file.
func (r Representation) Paths() []string {
	out := make([]string, 0, len(r.Files))
	for _, name := range r.Files {
		out = append(out, filepath.Join(r.StagingDir, name))
	}
	return out
}

var (
	errMissingName = errors.New("representation name is required")
	errMissingExt  = errors.New("representation ext is required")
	errNoFiles     = errors.New("representation has no files")
)

// Validate checks the representation against the staging directory on disk:
// the ext matches every file suffix and every file exists.
func (r Representation) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errMissingName
	}
	ext := strings.TrimPrefix(strings.TrimSpace(r.Ext), ".")
	if ext == "" {
		return errMissingExt
	}
	if len(r.Files) == 0 {
		return errNoFiles
	}
	if !filepath.IsAbs(r.StagingDir) {
		return fmt.Errorf("staging dir %q must be absolute", r.StagingDir)
	}
	if r.FrameStart != nil && r.FrameEnd != nil && *r.FrameEnd < *r.FrameStart {
		return fmt.Errorf("frame range %d-%d is inverted", *r.FrameStart, *r.FrameEnd)
	}
	seen := make(map[string]struct{}, len(r.Files))
	for _, name := range r.Files {
		if name == "" || filepath.Base(name) != name {
			return fmt.Errorf("file %q must be a bare file name inside the staging dir", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("file %q listed twice", name)
		}
		seen[name] = struct{}{}
		if !strings.HasSuffix(strings.ToLower(name), "."+strings.ToLower(ext)) {
			return fmt.Errorf("file %q does not match ext %q", name, ext)
		}
		info, err := os.Stat(filepath.Join(r.StagingDir, name))
		if err != nil {
			return fmt.Errorf("file %q: %w", name, err)
		}
		if info.IsDir() {
			return fmt.Errorf("file %q is a directory", name)
		}
	}
	return nil
}
