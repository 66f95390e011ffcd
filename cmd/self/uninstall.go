package self

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nightconcept/almandine/internal/cmd"
	"github.com/nightconcept/almandine/internal/cmd/options"
	"github.com/nightconcept/almandine/internal/printer"
	"github.com/nightconcept/almandine/internal/selfupdate"
)

// UninstallCmd should be used to represent the 'self uninstall' command.
type UninstallCmd struct {
	*cmd.BaseCmd
	installFlags
	builder cmd.ClientBuilder
}

// NewUninstallCmd creates a newly configured (Cobra) command.
func NewUninstallCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	opts, err := options.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &UninstallCmd{
		BaseCmd: baseCmd,
		builder: opts.ClientBuilder,
	}

	cobraCmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Removes the almd installation",
		Long:  "Removes the almd installation directory. Project files are not touched.",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}

	c.register(cobraCmd)

	return cobraCmd, nil
}

func (c *UninstallCmd) run(cobraCmd *cobra.Command, _ []string) error {
	out := cobraCmd.OutOrStdout()

	gh, err := c.builder.GitHub()
	if err != nil {
		return err
	}
	dl, err := c.builder.Downloader()
	if err != nil {
		return err
	}

	updater, err := selfupdate.New(c.Logger(), gh, dl, c.options()...)
	if err != nil {
		return err
	}

	if !c.yes {
		ok, err := cmd.Confirm(
			cobraCmd.InOrStdin(),
			out,
			fmt.Sprintf("Remove the almd installation at %s?", updater.InstallDir()),
		)
		if err != nil {
			return err
		}
		if !ok {
			_, _ = fmt.Fprintln(out, "Uninstall cancelled")
			return nil
		}
	}

	if err := updater.Uninstall(cobraCmd.Context()); err != nil {
		return err
	}

	printer.Success(out, "Removed %s", updater.InstallDir())

	return nil
}
