package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/nightconcept/almandine/internal/cmd"
	cmdopts "github.com/nightconcept/almandine/internal/cmd/options"
	errs "github.com/nightconcept/almandine/internal/errors"
	"github.com/nightconcept/almandine/internal/integrity"
	"github.com/nightconcept/almandine/internal/lockfile"
	"github.com/nightconcept/almandine/internal/manifest"
	"github.com/nightconcept/almandine/internal/printer"
)

// ListCmd should be used to represent the 'list' command.
type ListCmd struct {
	*cmd.BaseCmd
	loader manifest.Loader
	format cmd.OutputFormat
}

// NewListCmd creates a newly configured (Cobra) command.
func NewListCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ListCmd{
		BaseCmd: baseCmd,
		loader:  opts.ManifestLoader,
		format:  cmd.FormatText,
	}

	cobraCommand := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Lists dependencies with their locked hash and file status",
		Args:    cobra.NoArgs,
		RunE:    c.run,
	}

	allowed := cmd.AllowedOutputFormats()
	cobraCommand.Flags().Var(
		&c.format,
		"format",
		fmt.Sprintf("Specify the output format (one of: %s)", allowed.String()),
	)

	return cobraCommand, nil
}

// run is configured (via NewListCmd) to be called by the Cobra framework when the command is executed.
func (c *ListCmd) run(cobraCmd *cobra.Command, _ []string) error {
	out := cobraCmd.OutOrStdout()

	proj, err := loadProject(c.loader, cobraCmd.ErrOrStderr())
	if err != nil {
		return err
	}

	dir, err := filepath.Abs(proj.root)
	if err != nil {
		dir = proj.root
	}

	header := printer.Project{Dir: dir}
	if pkg := proj.manifest.Package; pkg != nil {
		header.Name = pkg.Name
		header.Version = pkg.Version
	}

	handler, err := cmd.NewHandler[printer.DependencyStatus](c.format, out, printer.NewDependencyListPrinter(header))
	if err != nil {
		return err
	}

	statuses := dependencyStatuses(c.Logger(), proj, cobraCmd.ErrOrStderr())
	if len(statuses) == 0 && c.format == cmd.FormatText {
		printer.ProjectHeader(out, header)
		_, _ = fmt.Fprintf(out, "No dependencies found in %s.\n", filepath.Base(proj.manifest.Path()))
		return nil
	}

	return handler.HandleResults(statuses...)
}

// dependencyStatuses joins each manifest dependency with its lockfile entry and the state of its installed file.
func dependencyStatuses(logger hclog.Logger, proj *project, warnings io.Writer) []printer.DependencyStatus {
	names := proj.manifest.DependencyNames()
	out := make([]printer.DependencyStatus, 0, len(names))

	for _, name := range names {
		e, _ := proj.manifest.Dependency(name)
		status := printer.DependencyStatus{
			Name:   name,
			Source: e.Source,
			Path:   e.Path,
		}

		locked, ok := proj.lock.Get(name)
		if ok {
			status.Locked = true
			status.LockedSource = locked.Source
			status.Hash = locked.Hash
		}

		status.File = fileState(e.LocalPath(proj.root), locked, ok)
		if status.File == printer.FileUnknown {
			printer.Warning(warnings, "could not check the installed file of '%s'", name)
		}
		logger.Debug("Dependency status", "name", name, "file", status.File)

		out = append(out, status)
	}

	return out
}

func fileState(path string, locked lockfile.Entry, isLocked bool) printer.FileState {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return printer.FileMissing
		}
		return printer.FileUnknown
	}

	if !isLocked {
		return printer.FileOK
	}

	h, ok := locked.ParsedHash()
	if !ok || !h.IsContent() {
		return printer.FileOK
	}

	err := integrity.Verify(h, path)
	switch {
	case err == nil:
		return printer.FileOK
	case errors.Is(err, errs.ErrIntegrity):
		return printer.FileModified
	default:
		return printer.FileUnknown
	}
}
