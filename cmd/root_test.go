package cmd

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/nightconcept/almandine/internal/cmd"
	cmdopts "github.com/nightconcept/almandine/internal/cmd/options"
)

func TestNewRootCmd(t *testing.T) {
	useProject(t, "")

	base := &cmd.BaseCmd{}
	base.SetLogger(hclog.NewNullLogger())

	root, err := NewRootCmd(&RootCmd{BaseCmd: base}, cmdopts.WithClientBuilder(newFakeBuilder()))
	require.NoError(t, err)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	require.ElementsMatch(t, []string{"init", "add", "remove", "install", "update", "list", "self"}, names)

	for _, name := range []string{"project-dir", "manifest", "lockfile", "log-level", "verbose", "no-cache"} {
		require.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}

	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"--version"})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), version)
}

func TestRootCmd_ListThroughRoot(t *testing.T) {
	dir := useProject(t, baseManifest)

	base := &cmd.BaseCmd{}
	base.SetLogger(hclog.NewNullLogger())

	root, err := NewRootCmd(&RootCmd{BaseCmd: base}, cmdopts.WithClientBuilder(newFakeBuilder()))
	require.NoError(t, err)

	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"--project-dir", dir, "ls"})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "No dependencies found in project.toml.")
}
