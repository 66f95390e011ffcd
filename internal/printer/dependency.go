// Package printer renders dependency state and command progress for the terminal.
package printer

// FileState describes the installed file of a dependency.
type FileState string

const (
	FileOK       FileState = "ok"
	FileMissing  FileState = "missing"
	FileModified FileState = "modified"
	FileUnknown  FileState = "unknown"
)

// DependencyStatus joins a manifest dependency with its lockfile entry and installed file.
type DependencyStatus struct {
	Name   string `json:"name" yaml:"name"`
	Source string `json:"source" yaml:"source"`
	Path   string `json:"path" yaml:"path"`

	Locked       bool   `json:"locked" yaml:"locked"`
	LockedSource string `json:"locked_source,omitempty" yaml:"locked_source,omitempty"`
	Hash         string `json:"hash,omitempty" yaml:"hash,omitempty"`

	File FileState `json:"file" yaml:"file"`
}

// LockLabel is the hash shown for the dependency, or a placeholder when none is locked.
func (d DependencyStatus) LockLabel() string {
	switch {
	case !d.Locked:
		return "not locked"
	case d.Hash == "":
		return "locked (no hash)"
	default:
		return d.Hash
	}
}
