// Package lockfile reads and writes almd-lock.toml, the machine-maintained record of what is installed.
package lockfile

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xeipuuv/gojsonschema"

	errs "github.com/nightconcept/almandine/internal/errors"
	"github.com/nightconcept/almandine/internal/files"
	"github.com/nightconcept/almandine/internal/integrity"
	"github.com/nightconcept/almandine/internal/perms"
)

const (
	// APIVersion is the only lockfile format version this build understands.
	APIVersion = "1"

	// FileName is the default lockfile name in a project directory.
	FileName = "almd-lock.toml"

	header = "# This file is generated by almd. Do not edit it by hand.\n\n"
)

//go:embed schema.json
var schema []byte

var schemaLoader = gojsonschema.NewBytesLoader(schema)

// Lockfile is the in-memory form of almd-lock.toml.
type Lockfile struct {
	APIVersion string           `toml:"api_version"`
	Package    map[string]Entry `toml:"package"`
}

// Entry records what was installed for one dependency.
type Entry struct {
	// Source is the raw download URL that was actually fetched.
	Source string `toml:"source"`

	// Path is the project-relative destination, always with forward slashes.
	Path string `toml:"path"`

	// Hash is 'commit:<sha>' or '<algorithm>:<digest>'.
	Hash string `toml:"hash,omitempty"`
}

// SchemaError lists every violation found while validating a lockfile.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: schema validation failed: %s", errs.ErrLockfileLoad, strings.Join(e.Violations, "; "))
}

func (e *SchemaError) Unwrap() error {
	return errs.ErrLockfileLoad
}

// New returns an empty lockfile at the current API version.
func New() *Lockfile {
	return &Lockfile{
		APIVersion: APIVersion,
		Package:    map[string]Entry{},
	}
}

// ParsedHash parses the entry's hash. Entries without a hash return false.
func (e Entry) ParsedHash() (integrity.Hash, bool) {
	if e.Hash == "" {
		return integrity.Hash{}, false
	}
	h, err := integrity.ParseHash(e.Hash)
	if err != nil {
		return integrity.Hash{}, false
	}
	return h, true
}

// Parse decodes and validates lockfile bytes.
// Every failure wraps errs.ErrLockfileLoad; schema violations are returned as *SchemaError.
func Parse(data []byte) (*Lockfile, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed TOML: %w", errs.ErrLockfileLoad, err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: could not validate: %w", errs.ErrLockfileLoad, err)
	}
	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			violations = append(violations, fmt.Sprintf("%s: %s", re.Field(), re.Description()))
		}
		return nil, &SchemaError{Violations: violations}
	}

	if v, _ := doc["api_version"].(string); v != APIVersion {
		return nil, fmt.Errorf("%w: unsupported api_version '%s' (supported: '%s')", errs.ErrLockfileLoad, v, APIVersion)
	}

	var lf Lockfile
	if _, err := toml.Decode(string(data), &lf); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrLockfileLoad, err)
	}
	if lf.Package == nil {
		lf.Package = map[string]Entry{}
	}

	return &lf, nil
}

// Load reads the lockfile at path.
// A missing file is not an error: an empty lockfile is returned with exists set to false.
func Load(path string) (lf *Lockfile, exists bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(), false, nil
		}
		return nil, false, fmt.Errorf("%w: %w", errs.ErrLockfileLoad, err)
	}

	lf, err = Parse(data)
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", path, err)
	}

	return lf, true, nil
}

// Marshal encodes lf deterministically: package names are emitted in sorted order.
func Marshal(lf *Lockfile) ([]byte, error) {
	if lf == nil {
		return nil, fmt.Errorf("lockfile cannot be nil")
	}

	out := Lockfile{APIVersion: lf.APIVersion, Package: lf.Package}
	if out.APIVersion == "" {
		out.APIVersion = APIVersion
	}
	if out.Package == nil {
		out.Package = map[string]Entry{}
	}

	var buf bytes.Buffer
	buf.WriteString(header)
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return nil, fmt.Errorf("failed to encode lockfile: %w", err)
	}

	return buf.Bytes(), nil
}

// Save writes lf to path atomically.
func Save(path string, lf *Lockfile) error {
	data, err := Marshal(lf)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrLockfileWrite, err)
	}

	if err := files.WriteFileAtomic(path, data, perms.RegularFile); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrLockfileWrite, err)
	}

	return nil
}

// Get returns the entry for name.
func (l *Lockfile) Get(name string) (Entry, bool) {
	e, ok := l.Package[name]
	return e, ok
}

// Set adds or replaces the entry for name.
func (l *Lockfile) Set(name string, e Entry) {
	if l.Package == nil {
		l.Package = map[string]Entry{}
	}
	l.Package[name] = e
}

// Remove deletes the entry for name and reports whether it existed.
func (l *Lockfile) Remove(name string) bool {
	if _, ok := l.Package[name]; !ok {
		return false
	}
	delete(l.Package, name)
	return true
}

// Names returns the package names in sorted order.
func (l *Lockfile) Names() []string {
	names := make([]string, 0, len(l.Package))
	for name := range l.Package {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
