package manifest

import (
	"fmt"
	"path"
	"strings"

	"github.com/nightconcept/almandine/internal/source"
)

// Dependency is a dependency value as written in the manifest: either Plain or WithPath.
type Dependency interface {
	// Resolve turns the declaration into an Entry, deriving a path where none was given.
	Resolve() (Entry, error)

	isDependency()
}

// Plain is a dependency written as a bare source string.
type Plain struct {
	Source string
}

// WithPath is a dependency written as a table with a source and a destination path.
type WithPath struct {
	Source string
	Path   string
}

func (Plain) isDependency()    {}
func (WithPath) isDependency() {}

// Resolve implements Dependency. The path is DefaultLibDir joined with the source's file name.
func (p Plain) Resolve() (Entry, error) {
	src := strings.TrimSpace(p.Source)
	if src == "" {
		return Entry{}, fmt.Errorf("source cannot be empty")
	}

	info, err := source.Parse(src)
	if err != nil {
		return Entry{}, fmt.Errorf("cannot derive a path: %w", err)
	}

	return Entry{Source: src, Path: path.Join(DefaultLibDir, info.Filename)}, nil
}

// Resolve implements Dependency.
func (w WithPath) Resolve() (Entry, error) {
	src := strings.TrimSpace(w.Source)
	if src == "" {
		return Entry{}, fmt.Errorf("source cannot be empty")
	}

	p, err := NormalizePath(w.Path)
	if err != nil {
		return Entry{}, err
	}

	return Entry{Source: src, Path: p}, nil
}

// parseDependency classifies a decoded TOML value.
func parseDependency(v any) (Dependency, error) {
	switch val := v.(type) {
	case string:
		return Plain{Source: val}, nil
	case map[string]any:
		src, err := stringField(val, "source")
		if err != nil {
			return nil, err
		}
		p, err := stringField(val, "path")
		if err != nil {
			return nil, err
		}
		return WithPath{Source: src, Path: p}, nil
	default:
		return nil, fmt.Errorf("expected a source string or a table with 'source' and 'path', got %T", v)
	}
}

func stringField(m map[string]any, key string) (string, error) {
	raw, ok := m[key]
	if !ok {
		return "", fmt.Errorf("missing '%s'", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("'%s' must be a string, got %T", key, raw)
	}
	return s, nil
}
