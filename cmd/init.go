package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nightconcept/almandine/internal/cmd"
	cmdopts "github.com/nightconcept/almandine/internal/cmd/options"
	"github.com/nightconcept/almandine/internal/flags"
	"github.com/nightconcept/almandine/internal/manifest"
	"github.com/nightconcept/almandine/internal/printer"
)

type InitCmd struct {
	*cmd.BaseCmd
	initializer manifest.Initializer

	name        string
	version     string
	license     string
	description string
}

func NewInitCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &InitCmd{
		BaseCmd:     baseCmd,
		initializer: opts.ManifestInitializer,
	}

	cobraCommand := &cobra.Command{
		Use:   "init",
		Short: "Creates a project.toml in the project directory",
		Long:  c.longDescription(),
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}

	cobraCommand.Flags().StringVar(&c.name, "name", "", "Package name (defaults to the project directory name)")
	cobraCommand.Flags().StringVar(&c.version, "version", "0.1.0", "Package version")
	cobraCommand.Flags().StringVar(&c.license, "license", "", "Package license, e.g. MIT")
	cobraCommand.Flags().StringVar(&c.description, "description", "", "Short package description")

	return cobraCommand, nil
}

func (c *InitCmd) longDescription() string {
	return fmt.Sprintf(
		"Creates a %s manifest with package metadata and an empty dependency table.\n\n"+
			"The manifest path can be overridden using the `--%s` flag or the `%s` environment variable.",
		flags.DefaultManifestFile,
		flags.FlagNameManifestFile,
		flags.EnvVarManifestFile,
	)
}

func (c *InitCmd) run(cmd *cobra.Command, _ []string) error {
	logger := c.Logger()

	name := strings.TrimSpace(c.name)
	if name == "" {
		abs, err := filepath.Abs(flags.ProjectRoot())
		if err != nil {
			return fmt.Errorf("error resolving project directory: %w", err)
		}
		name = filepath.Base(abs)
	}

	path := flags.ManifestPath()
	info := manifest.PackageInfo{
		Name:        name,
		Version:     strings.TrimSpace(c.version),
		License:     strings.TrimSpace(c.license),
		Description: strings.TrimSpace(c.description),
	}

	if err := c.initializer.Init(path, info); err != nil {
		logger.Error("Project initialization failed", "error", err)
		return fmt.Errorf("error initializing project: %w", err)
	}

	logger.Debug("Project initialized", "path", path, "name", name)
	printer.Success(cmd.OutOrStdout(), "Created %s for '%s'", path, name)

	return nil
}
