package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"dccpub/internal/services"
)

// Load reads and validates the settings document at path. YAML is used for
// .yaml/.yml and TOML for .toml. Unknown keys are rejected.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "settings", "load", "read settings", err)
	}
	s, err := Decode(bytes.NewReader(data), filepath.Ext(path))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "settings", "load", path, err)
	}
	return s, nil
}

// LoadOrDefault behaves like Load but returns Default when path does not
// exist. The boolean reports whether the file was found.
func LoadOrDefault(path string) (*Settings, bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), false, nil
	}
	s, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return s, true, nil
}

// Decode parses a document in the format named by ext and validates it.
func Decode(r io.Reader, ext string) (*Settings, error) {
	var s Settings
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".toml":
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported settings format %q (use .yaml, .yml or .toml)", ext)
	}
	if s.Creators == nil {
		s.Creators = map[string]CreatorSettings{}
	}
	if s.Publish == nil {
		s.Publish = map[string]PluginSettings{}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Encode writes s in the format named by ext.
func Encode(w io.Writer, s *Settings, ext string) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case ".toml":
		if err := toml.NewEncoder(w).Encode(s); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported settings format %q", ext)
	}
}

// WriteFile encodes s in the format named by the extension of path. The
// document is written to a temporary file first so watchers never observe a
// partial write.
func WriteFile(path string, s *Settings) error {
	var buf bytes.Buffer
	if err := Encode(&buf, s, filepath.Ext(path)); err != nil {
		return services.Wrap(services.ErrConfiguration, "settings", "write", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
