// Package self holds the commands that manage the almd installation itself.
package self

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nightconcept/almandine/internal/cmd"
	"github.com/nightconcept/almandine/internal/cmd/options"
	"github.com/nightconcept/almandine/internal/flags"
	"github.com/nightconcept/almandine/internal/selfupdate"
)

// NewCmd creates the parent self command.
func NewCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	cobraCmd := &cobra.Command{
		Use:   "self",
		Short: "Manage the almd installation",
		Long:  "Update almd to the latest release or remove it from this machine",
	}

	// Sub-commands for: almd self.
	fns := []func(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error){
		NewUninstallCmd, // uninstall
		NewUpdateCmd,    // update
	}

	for _, fn := range fns {
		tempCmd, err := fn(baseCmd, opt...)
		if err != nil {
			return nil, err
		}
		cobraCmd.AddCommand(tempCmd)
	}

	return cobraCmd, nil
}

// installFlags are shared by the self sub-commands.
type installFlags struct {
	installDir string
	yes        bool
}

func (f *installFlags) register(c *cobra.Command) {
	c.Flags().StringVar(
		&f.installDir,
		"install-dir",
		strings.TrimSpace(os.Getenv(flags.EnvVarInstallDir)),
		"Directory holding the almd installation (defaults to the user data directory)",
	)
	c.Flags().BoolVarP(&f.yes, "yes", "y", false, "Do not ask for confirmation")
}

func (f *installFlags) options() []selfupdate.Option {
	if strings.TrimSpace(f.installDir) == "" {
		return nil
	}
	return []selfupdate.Option{selfupdate.WithInstallDir(f.installDir)}
}
