package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nightconcept/almandine/internal/cmd/output"
	"github.com/nightconcept/almandine/internal/lockfile"
	"github.com/nightconcept/almandine/internal/printer"
)

const listManifest = baseManifest + `
[dependencies]
json = { source = "https://example.com/json.lua", path = "lib/json.lua" }
util = { source = "https://example.com/util.lua", path = "lib/util.lua" }
log = { source = "https://example.com/log.lua", path = "lib/log.lua" }
`

func listLockfile() string {
	return `api_version = "1"

[package.json]
source = "https://example.com/json.lua"
path = "lib/json.lua"
hash = "` + sha256Hash("json") + `"

[package.util]
source = "https://example.com/util.lua"
path = "lib/util.lua"
hash = "` + sha256Hash("util") + `"
`
}

func listProject(t *testing.T) string {
	t.Helper()

	dir := useProject(t, listManifest)
	writeProjectFile(t, dir, "almd-lock.toml", listLockfile())
	writeProjectFile(t, dir, "lib/json.lua", "json")
	writeProjectFile(t, dir, "lib/util.lua", "edited")
	return dir
}

func TestListCmd_Text(t *testing.T) {
	dir := listProject(t)

	stdout, _, err := execute(t, NewListCmd, newFakeBuilder())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	require.Equal(t, []string{
		"demo@0.1.0 " + dir,
		"",
		"dependencies:",
		"json " + sha256Hash("json") + " lib/json.lua",
		"log not locked lib/log.lua (missing)",
		"util " + sha256Hash("util") + " lib/util.lua (modified)",
	}, lines)
}

func TestListCmd_JSON(t *testing.T) {
	listProject(t)

	stdout, _, err := execute(t, NewListCmd, newFakeBuilder(), "--format", "json")
	require.NoError(t, err)

	var payload output.ResultsPayload[printer.DependencyStatus]
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	require.Len(t, payload.Results, 3)

	first := payload.Results[0]
	require.Equal(t, "json", first.Name)
	require.True(t, first.Locked)
	require.Equal(t, "https://example.com/json.lua", first.LockedSource)
	require.Equal(t, printer.FileOK, first.File)

	require.Equal(t, "log", payload.Results[1].Name)
	require.False(t, payload.Results[1].Locked)
	require.Empty(t, payload.Results[1].Hash)
	require.Equal(t, printer.FileMissing, payload.Results[1].File)

	require.Equal(t, printer.FileModified, payload.Results[2].File)
}

func TestListCmd_Empty(t *testing.T) {
	dir := useProject(t, baseManifest)

	stdout, _, err := execute(t, NewListCmd, newFakeBuilder())
	require.NoError(t, err)
	require.Equal(
		t,
		"demo@0.1.0 "+dir+"\n\ndependencies:\nNo dependencies found in project.toml.\n",
		stdout,
	)

	stdout, _, err = execute(t, NewListCmd, newFakeBuilder(), "--format", "json")
	require.NoError(t, err)
	require.JSONEq(t, `{"results": []}`, stdout)
}

func TestListCmd_Errors(t *testing.T) {
	useProject(t, "")

	_, _, err := execute(t, NewListCmd, newFakeBuilder())
	require.ErrorContains(t, err, "run: 'almd init'")

	listProject(t)
	_, _, err = execute(t, NewListCmd, newFakeBuilder(), "--format", "xml")
	require.ErrorContains(t, err, "invalid format 'xml'")
}

func TestFileState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.lua")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	lockedContent := lockedEntry(sha256Hash("a"))
	require.Equal(t, printer.FileOK, fileState(path, lockedContent, true))
	require.Equal(t, printer.FileModified, fileState(path, lockedEntry(sha256Hash("b")), true))
	require.Equal(t, printer.FileOK, fileState(path, lockedEntry("commit:"+shaA), true))
	require.Equal(t, printer.FileOK, fileState(path, lockedEntry(""), false))
	require.Equal(t, printer.FileMissing, fileState(filepath.Join(dir, "none.lua"), lockedContent, true))
}

func lockedEntry(hash string) lockfile.Entry {
	return lockfile.Entry{Source: "https://example.com/a.lua", Path: "a.lua", Hash: hash}
}
