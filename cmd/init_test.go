package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nightconcept/almandine/internal/manifest"
)

func TestInitCmd(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantName    string
		wantVersion string
		wantLicense string
	}{
		{
			name:        "defaults",
			wantVersion: "0.1.0",
		},
		{
			name:        "explicit metadata",
			args:        []string{"--name", "  mylib ", "--version", "2.0.0", "--license", "MIT", "--description", "A library"},
			wantName:    "mylib",
			wantVersion: "2.0.0",
			wantLicense: "MIT",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := useProject(t, "")
			wantName := tc.wantName
			if wantName == "" {
				wantName = filepath.Base(dir)
			}

			stdout, _, err := execute(t, NewInitCmd, newFakeBuilder(), tc.args...)
			require.NoError(t, err)
			require.Contains(t, stdout, "✓ Created "+filepath.Join(dir, "project.toml")+" for '"+wantName+"'")

			m, err := (&manifest.DefaultLoader{}).Load(filepath.Join(dir, "project.toml"))
			require.NoError(t, err)
			require.NotNil(t, m.Package)
			require.Equal(t, wantName, m.Package.Name)
			require.Equal(t, tc.wantVersion, m.Package.Version)
			require.Equal(t, tc.wantLicense, m.Package.License)
			require.Empty(t, m.DependencyNames())
		})
	}
}

func TestInitCmd_AlreadyExists(t *testing.T) {
	dir := useProject(t, baseManifest)

	_, _, err := execute(t, NewInitCmd, newFakeBuilder(), "--name", "other")
	require.ErrorContains(t, err, "already exists")
	require.Equal(t, baseManifest, readProjectFile(t, dir, "project.toml"))
}
