// Package errors defines domain-level errors used throughout almd.
//
// Callers wrap these sentinels with fmt.Errorf("%w: ...") and test for them with errors.Is.
// Per-dependency failures are reported as DependencyError values, and a whole install run
// that had at least one failing dependency returns an InstallError aggregating them.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrManifestLoad indicates that the project manifest is missing or cannot be parsed.
	// This is always fatal for the command that needed it.
	ErrManifestLoad = errors.New("failed to load manifest")

	// ErrSourceResolution indicates that a dependency source string is not something almd can download.
	ErrSourceResolution = errors.New("unable to resolve source")

	// ErrNotGitHubFile indicates that a caller needed a canonical GitHub identifier,
	// but the source is an opaque URL.
	ErrNotGitHubFile = errors.New("not a recognized GitHub file URL")

	// ErrRefNotFound indicates that a branch, tag or commit has no commit touching the requested path.
	ErrRefNotFound = errors.New("ref not found")

	// ErrDownload indicates a transport failure or non-success HTTP status while fetching content.
	ErrDownload = errors.New("download failed")

	// ErrIntegrity indicates that downloaded content does not match the digest recorded in the lockfile.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrLockfileLoad indicates a lockfile that is malformed, fails schema validation,
	// or declares an unsupported api_version.
	ErrLockfileLoad = errors.New("failed to load lockfile")

	// ErrLockfileWrite indicates that the lockfile could not be persisted.
	ErrLockfileWrite = errors.New("failed to write lockfile")

	// ErrSelfUpdate indicates that a self-update did not complete.
	// The previous installation has been restored when this is returned after the backup step.
	ErrSelfUpdate = errors.New("self-update failed")

	// ErrRollback indicates that restoring the previous installation failed after a failed self-update.
	// The backup is left on disk for manual recovery.
	ErrRollback = errors.New("rollback failed")
)

// DependencyError attaches the name of a manifest dependency to the error that stopped it.
type DependencyError struct {
	Name string
	Err  error
}

// Error implements error.
func (e DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

// Unwrap allows errors.Is and errors.As to see the underlying cause.
func (e DependencyError) Unwrap() error {
	return e.Err
}

// InstallError aggregates the failures from a single install or update run.
type InstallError struct {
	Failures []DependencyError
}

// Error implements error.
func (e *InstallError) Error() string {
	if len(e.Failures) == 1 {
		return "1 dependency failed: " + e.Failures[0].Error()
	}

	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}

	return fmt.Sprintf("%d dependencies failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap returns every per-dependency failure so errors.Is matches any of their causes.
func (e *InstallError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// NewInstallError returns nil when failures is empty, otherwise an *InstallError.
func NewInstallError(failures []DependencyError) error {
	if len(failures) == 0 {
		return nil
	}
	return &InstallError{Failures: failures}
}
