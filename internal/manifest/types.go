package manifest

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

var _ Provider = (*DefaultLoader)(nil)

const (
	// FileName is the default manifest name in a project directory.
	FileName = "project.toml"

	// DefaultLibDir is where dependencies declared without a path are installed.
	DefaultLibDir = "src/lib"
)

type Loader interface {
	Load(path string) (*Project, error)
}

type Initializer interface {
	Init(path string, info PackageInfo) error
}

type Provider interface {
	Initializer
	Loader
}

type DefaultLoader struct{}

// Project represents the project.toml file structure.
type Project struct {
	Package *PackageInfo
	Scripts map[string]string

	// Dependencies holds every valid dependency, keyed by name.
	Dependencies map[string]Entry

	// Warnings lists dependencies that were skipped because they are incomplete or unsafe.
	Warnings []Warning

	// invalid keeps skipped dependency values as written so Save does not drop them.
	invalid map[string]any

	path string
}

// PackageInfo holds metadata for the project.
type PackageInfo struct {
	Name        string `json:"name" toml:"name" yaml:"name"`
	Version     string `json:"version" toml:"version" yaml:"version"`
	License     string `json:"license,omitempty" toml:"license,omitempty" yaml:"license,omitempty"`
	Description string `json:"description,omitempty" toml:"description,omitempty" yaml:"description,omitempty"`
}

// Entry is a resolved manifest dependency.
type Entry struct {
	// Source is a canonical 'github:' identifier or a direct download URL.
	Source string `json:"source" toml:"source" yaml:"source"`

	// Path is the project-relative destination file, with forward slashes.
	Path string `json:"path" toml:"path" yaml:"path"`
}

// Warning describes a dependency that was skipped while loading.
type Warning struct {
	Name   string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("dependency '%s' skipped: %s", w.Name, w.Reason)
}

// LocalPath returns the entry's destination as an OS path under projectDir.
func (e Entry) LocalPath(projectDir string) string {
	return filepath.Join(projectDir, filepath.FromSlash(e.Path))
}

// NormalizePath converts p to a clean forward-slash relative path and rejects paths that leave the project.
func NormalizePath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	if p == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if strings.HasPrefix(p, "/") || filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return "", fmt.Errorf("path '%s' must be relative to the project", p)
	}

	clean := path.Clean(p)
	if clean == "." || strings.HasSuffix(p, "/") {
		return "", fmt.Errorf("path '%s' must name a file", p)
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("path '%s' escapes the project directory", p)
	}

	return clean, nil
}
