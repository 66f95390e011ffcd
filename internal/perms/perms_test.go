package perms

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPermissionConstants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		perm     os.FileMode
		expected os.FileMode
	}{
		{name: "regular file", perm: RegularFile, expected: 0o644},
		{name: "executable file", perm: ExecutableFile, expected: 0o755},
		{name: "secure file", perm: SecureFile, expected: 0o600},
		{name: "regular dir", perm: RegularDir, expected: 0o755},
		{name: "secure dir", perm: SecureDir, expected: 0o700},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.expected, tc.perm)
		})
	}
}

func TestSecureIsSubsetOfRegular(t *testing.T) {
	t.Parallel()

	require.Equal(t, SecureFile, SecureFile&RegularFile)
	require.Equal(t, SecureDir, SecureDir&RegularDir)
	require.Equal(t, RegularFile, RegularFile&ExecutableFile)
}

func TestExecutableFileIsRunnableByOwner(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "almd")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"), ExecutableFile))

	info, err := os.Stat(p)
	require.NoError(t, err)
	require.NotZero(t, info.Mode().Perm()&0o100)
}
