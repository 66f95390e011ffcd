package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nightconcept/almandine/cmd/self"
	"github.com/nightconcept/almandine/internal/cmd"
	cmdopts "github.com/nightconcept/almandine/internal/cmd/options"
	"github.com/nightconcept/almandine/internal/flags"
)

var version = "dev" // Set at build time using -ldflags

type RootCmd struct {
	*cmd.BaseCmd
}

// Execute runs the root command. Any returned error has already been printed to stderr.
func Execute() error {
	rootCmd, err := NewRootCmd(&RootCmd{BaseCmd: &cmd.BaseCmd{}})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error creating root command: %s\n", err)
		return err
	}

	return rootCmd.Execute()
}

// NewRootCmd creates the 'almd' command with every sub-command attached.
func NewRootCmd(c *RootCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:          "almd <command> [args]",
		Short:        "Pins individual remote files into a project, locked by commit or content hash.",
		Long:         c.longDescription(),
		SilenceUsage: true,
		Version:      version,
	}

	// Global flags
	flags.InitFlags(rootCmd.PersistentFlags())

	// Defaults first so callers can override them.
	opt = append([]cmdopts.CmdOption{
		cmdopts.WithVersion(version),
		cmdopts.WithClientBuilder(c.BaseCmd),
	}, opt...)

	fns := []func(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error){
		NewInitCmd,
		NewAddCmd,
		NewRemoveCmd,
		NewInstallCmd,
		NewUpdateCmd,
		NewListCmd,
		self.NewCmd,
	}

	for _, fn := range fns {
		tempCmd, err := fn(c.BaseCmd, opt...)
		if err != nil {
			return nil, err
		}
		rootCmd.AddCommand(tempCmd)
	}

	return rootCmd, nil
}

func (c *RootCmd) longDescription() string {
	return `'almd' manages single-file dependencies declared in project.toml.

Each dependency is a GitHub file ('github:owner/repo/path@ref') or a direct URL.
Installed files are recorded in almd-lock.toml with the exact source they came
from and a hash: the commit for commit-pinned GitHub files, a sha256 or sha512
digest of the content for everything else.`
}
