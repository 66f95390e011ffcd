package cmd

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nightconcept/almandine/internal/cmd"
	cmdopts "github.com/nightconcept/almandine/internal/cmd/options"
	"github.com/nightconcept/almandine/internal/manifest"
	"github.com/nightconcept/almandine/internal/printer"
	"github.com/nightconcept/almandine/internal/source"
)

// AddCmd should be used to represent the 'add' command.
type AddCmd struct {
	*cmd.BaseCmd
	loader  manifest.Loader
	builder cmd.ClientBuilder

	name      string
	directory string
}

// NewAddCmd creates a newly configured (Cobra) command.
func NewAddCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &AddCmd{
		BaseCmd: baseCmd,
		loader:  opts.ManifestLoader,
		builder: opts.ClientBuilder,
	}

	cobraCommand := &cobra.Command{
		Use:   "add <source>",
		Short: "Adds a remote file to the project and installs it",
		Long: "Adds a dependency to project.toml and installs it, recording it in the lockfile.\n\n" +
			"<source> is 'github:<owner>/<repo>/<path>@<ref>', a github.com blob URL, " +
			"a raw.githubusercontent.com URL or any other http(s) URL.\n" +
			"The manifest is left untouched when the file cannot be installed.",
		Args: cobra.ExactArgs(1),
		RunE: c.run,
	}

	cobraCommand.Flags().StringVarP(&c.name, "name", "n", "", "Dependency name (defaults to the file name without extension)")
	cobraCommand.Flags().StringVarP(
		&c.directory,
		"directory",
		"d",
		manifest.DefaultLibDir,
		"Project directory the file is installed into",
	)

	return cobraCommand, nil
}

// run is configured (via NewAddCmd) to be called by the Cobra framework when the command is executed.
func (c *AddCmd) run(cmd *cobra.Command, args []string) error {
	logger := c.Logger()

	info, err := source.Parse(args[0])
	if err != nil {
		return err
	}

	name, file, err := dependencyName(info.Filename, c.name)
	if err != nil {
		return err
	}

	proj, err := loadProject(c.loader, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	previous, hadPrevious := proj.manifest.Dependency(name)
	entry := manifest.Entry{
		Source: info.ManifestSource(),
		Path:   path.Join(strings.ReplaceAll(strings.TrimSpace(c.directory), `\`, "/"), file),
	}
	if err := proj.manifest.SetDependency(name, entry); err != nil {
		return err
	}
	entry, _ = proj.manifest.Dependency(name)

	r, err := newReconciler(logger, c.builder, nil)
	if err != nil {
		return err
	}

	res := r.Run(cmd.Context(), map[string]manifest.Entry{name: entry}, proj.lock)
	if err := res.Err(); err != nil {
		logger.Error("Add failed", "name", name, "error", err)
		printer.Failure(cmd.ErrOrStderr(), "Could not add '%s', %s was not changed", name, proj.manifest.Path())
		return err
	}

	if err := proj.manifest.Save(); err != nil {
		return err
	}
	if err := proj.saveLock(); err != nil {
		// Keep the manifest consistent with the lockfile on disk.
		if hadPrevious {
			_ = proj.manifest.SetDependency(name, previous)
		} else {
			_ = proj.manifest.RemoveDependency(name)
		}
		return errors.Join(err, proj.manifest.Save())
	}

	locked, _ := proj.lock.Get(name)
	label := info.Ref
	if label == "" {
		label = locked.Hash
	}

	logger.Debug("Dependency added", "name", name, "source", entry.Source, "path", entry.Path)
	printer.Added(cmd.OutOrStdout(), name, label)
	printer.Success(cmd.OutOrStdout(), "Added '%s' to %s", name, entry.Path)

	return nil
}

// dependencyName derives the manifest name and the file name on disk.
// A custom name keeps the extension of the source file.
func dependencyName(filename, custom string) (name string, file string, err error) {
	ext := path.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	if custom = strings.TrimSpace(custom); custom != "" {
		if strings.ContainsAny(custom, `/\`) {
			return "", "", fmt.Errorf("dependency name '%s' cannot contain path separators", custom)
		}
		return custom, custom + ext, nil
	}

	if base == "" || base == "." {
		return "", "", fmt.Errorf("cannot infer a dependency name from '%s', use --name", filename)
	}

	return base, filename, nil
}
