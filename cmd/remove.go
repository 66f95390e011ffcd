package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nightconcept/almandine/internal/cmd"
	cmdopts "github.com/nightconcept/almandine/internal/cmd/options"
	"github.com/nightconcept/almandine/internal/files"
	"github.com/nightconcept/almandine/internal/manifest"
	"github.com/nightconcept/almandine/internal/printer"
)

// RemoveCmd should be used to represent the 'remove' command.
type RemoveCmd struct {
	*cmd.BaseCmd
	loader manifest.Loader
}

// NewRemoveCmd creates a newly configured (Cobra) command.
func NewRemoveCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &RemoveCmd{
		BaseCmd: baseCmd,
		loader:  opts.ManifestLoader,
	}

	cobraCommand := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Removes a dependency, its lockfile entry and its installed file",
		Long: "Removes a dependency from project.toml and the lockfile and deletes the installed file.\n" +
			"Directories left empty by the deletion are removed up to the project directory.",
		Args: cobra.MaximumNArgs(1),
		RunE: c.run,
	}

	return cobraCommand, nil
}

// run is configured (via NewRemoveCmd) to be called by the Cobra framework when the command is executed.
func (c *RemoveCmd) run(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("dependency name is required and cannot be empty")
	}
	name := strings.TrimSpace(args[0])

	logger := c.Logger()
	stderr := cmd.ErrOrStderr()

	proj, err := loadProject(c.loader, stderr)
	if err != nil {
		return err
	}

	entry, ok := proj.manifest.Dependency(name)
	if !ok {
		// Entries skipped as invalid can still be removed; the lockfile knows where their file went.
		if locked, found := proj.lock.Get(name); found {
			entry = manifest.Entry{Source: locked.Source, Path: locked.Path}
		}
	}

	if err := proj.manifest.RemoveDependency(name); err != nil {
		return err
	}
	if err := proj.manifest.Save(); err != nil {
		return err
	}

	if entry.Path != "" {
		if p, err := manifest.NormalizePath(entry.Path); err == nil {
			c.removeFile(stderr, manifest.Entry{Path: p}.LocalPath(proj.root), proj.root)
		} else {
			printer.Warning(stderr, "not deleting '%s': %v", entry.Path, err)
		}
	}

	if proj.lock.Remove(name) {
		if err := proj.saveLock(); err != nil {
			printer.Warning(stderr, "%s updated but the lockfile was not: %v", proj.manifest.Path(), err)
			return err
		}
	}

	logger.Debug("Dependency removed", "name", name, "path", entry.Path)
	printer.Removed(cmd.OutOrStdout(), name, entry.Path)
	printer.Success(cmd.OutOrStdout(), "Removed '%s'", name)

	return nil
}

func (c *RemoveCmd) removeFile(stderr io.Writer, file, root string) {
	if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		printer.Warning(stderr, "failed to delete '%s': %v", file, err)
		return
	}

	if err := files.RemoveEmptyParents(file, root); err != nil {
		printer.Warning(stderr, "failed to clean up directories: %v", err)
	}
}
