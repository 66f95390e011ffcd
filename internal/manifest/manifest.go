// Package manifest loads and edits project.toml, the human-maintained list of dependencies.
//
// The manifest is parsed as plain TOML data and never executed.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	errs "github.com/nightconcept/almandine/internal/errors"
	"github.com/nightconcept/almandine/internal/files"
	"github.com/nightconcept/almandine/internal/perms"
)

// ErrDependencyNotFound is returned when editing a dependency that is not in the manifest.
var ErrDependencyNotFound = errors.New("dependency not found")

// document is the on-disk shape of project.toml.
type document struct {
	Package      *PackageInfo      `toml:"package,omitempty"`
	Scripts      map[string]string `toml:"scripts,omitempty"`
	Dependencies map[string]any    `toml:"dependencies,omitempty"`
}

// Init creates the base skeleton manifest for a project.
func (d *DefaultLoader) Init(path string, info PackageInfo) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	info.Name = strings.TrimSpace(info.Name)
	if info.Name == "" {
		return fmt.Errorf("package name cannot be empty")
	}
	if strings.TrimSpace(info.Version) == "" {
		info.Version = "0.1.0"
	}

	p := &Project{
		Package:      &info,
		Scripts:      map[string]string{},
		Dependencies: map[string]Entry{},
		path:         path,
	}

	return p.Save()
}

// Load reads the manifest at path.
// A missing or malformed file returns an error wrapping errs.ErrManifestLoad.
// Dependencies that are incomplete or unsafe are reported in Project.Warnings and left out of Dependencies.
func (d *DefaultLoader) Load(path string) (*Project, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: path cannot be empty", errs.ErrManifestLoad)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s cannot be found, run: 'almd init'", errs.ErrManifestLoad, path)
		}
		return nil, fmt.Errorf("%w: failed to read %s: %w", errs.ErrManifestLoad, path, err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.path = path

	return p, nil
}

// Parse decodes manifest bytes.
func Parse(data []byte) (*Project, error) {
	var doc document
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode: %w", errs.ErrManifestLoad, err)
	}
	if err := checkScripts(md); err != nil {
		return nil, fmt.Errorf("%w: failed to decode: %w", errs.ErrManifestLoad, err)
	}

	p := &Project{
		Package:      doc.Package,
		Scripts:      doc.Scripts,
		Dependencies: make(map[string]Entry, len(doc.Dependencies)),
		invalid:      map[string]any{},
	}
	if p.Scripts == nil {
		p.Scripts = map[string]string{}
	}

	names := make([]string, 0, len(doc.Dependencies))
	for name := range doc.Dependencies {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		raw := doc.Dependencies[name]

		entry, err := resolve(name, raw)
		if err != nil {
			p.Warnings = append(p.Warnings, Warning{Name: name, Reason: err.Error()})
			p.invalid[name] = raw
			continue
		}
		p.Dependencies[name] = entry
	}

	return p, nil
}

// checkScripts requires [scripts] to be a table of strings.
func checkScripts(md toml.MetaData) error {
	if !md.IsDefined("scripts") {
		return nil
	}
	if t := md.Type("scripts"); t != "Hash" {
		return fmt.Errorf("'scripts' must be a table, got %s", strings.ToLower(t))
	}

	for _, key := range md.Keys() {
		if len(key) != 2 || key[0] != "scripts" {
			continue
		}
		if t := md.Type(key...); t != "String" {
			return fmt.Errorf("script '%s' must be a string, got %s", key[1], strings.ToLower(t))
		}
	}

	return nil
}

func resolve(name string, raw any) (Entry, error) {
	if strings.TrimSpace(name) == "" {
		return Entry{}, fmt.Errorf("dependency name cannot be empty")
	}

	dep, err := parseDependency(raw)
	if err != nil {
		return Entry{}, err
	}

	return dep.Resolve()
}

// Path returns the file this project was loaded from.
func (p *Project) Path() string {
	return p.path
}

// Dependency returns the entry for name.
func (p *Project) Dependency(name string) (Entry, bool) {
	e, ok := p.Dependencies[name]
	return e, ok
}

// DependencyNames returns the names of valid dependencies in sorted order.
func (p *Project) DependencyNames() []string {
	names := make([]string, 0, len(p.Dependencies))
	for name := range p.Dependencies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SetDependency adds or replaces a dependency after validating it.
func (p *Project) SetDependency(name string, e Entry) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("dependency name cannot be empty")
	}

	entry, err := WithPath{Source: e.Source, Path: e.Path}.Resolve()
	if err != nil {
		return fmt.Errorf("invalid dependency '%s': %w", name, err)
	}

	if p.Dependencies == nil {
		p.Dependencies = map[string]Entry{}
	}
	p.Dependencies[name] = entry
	delete(p.invalid, name)

	return nil
}

// RemoveDependency deletes a dependency, including one that was skipped as invalid.
func (p *Project) RemoveDependency(name string) error {
	_, ok := p.Dependencies[name]
	_, bad := p.invalid[name]
	if !ok && !bad {
		return fmt.Errorf("%w: '%s'", ErrDependencyNotFound, name)
	}

	delete(p.Dependencies, name)
	delete(p.invalid, name)

	return nil
}

// Marshal encodes the project. Valid dependencies are written as tables; skipped ones are written back unchanged.
func (p *Project) Marshal() ([]byte, error) {
	doc := document{
		Package: p.Package,
		Scripts: p.Scripts,
	}

	if len(p.Dependencies)+len(p.invalid) > 0 {
		doc.Dependencies = make(map[string]any, len(p.Dependencies)+len(p.invalid))
		for name, raw := range p.invalid {
			doc.Dependencies[name] = raw
		}
		for name, e := range p.Dependencies {
			doc.Dependencies[name] = e
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}

	return buf.Bytes(), nil
}

// Save writes the project back to the file it was loaded from.
func (p *Project) Save() error {
	if p.path == "" {
		return fmt.Errorf("manifest file path not present")
	}

	data, err := p.Marshal()
	if err != nil {
		return err
	}

	return files.WriteFileAtomic(p.path, data, perms.RegularFile)
}
