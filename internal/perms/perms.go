// Package perms provides centralized file and directory permission constants
// for consistent handling of project files, lockfiles and the tool's own install tree.
package perms

import "os"

// File permission constants for different security contexts.
const (
	// RegularFile permissions for standard files (manifest, lockfile, installed dependencies).
	// Mode 0644: owner read/write, group read, others read.
	RegularFile os.FileMode = 0o644

	// ExecutableFile permissions for the tool binary inside an install tree.
	// Mode 0755: owner read/write/execute, group and others read/execute.
	ExecutableFile os.FileMode = 0o755

	// SecureFile permissions for sensitive files (logs that may contain tokens).
	// Mode 0600: owner read/write only, no group or other access.
	SecureFile os.FileMode = 0o600
)

// Directory permission constants for different security contexts.
const (
	// RegularDir permissions for standard directories (dependency folders, install tree).
	// Mode 0755: owner read/write/execute, group read/execute, others read/execute.
	RegularDir os.FileMode = 0o755

	// SecureDir permissions for scratch directories used while self-updating.
	// Mode 0700: owner read/write/execute only, no group or other access.
	SecureDir os.FileMode = 0o700
)
