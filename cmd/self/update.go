package self

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nightconcept/almandine/internal/cmd"
	"github.com/nightconcept/almandine/internal/cmd/options"
	"github.com/nightconcept/almandine/internal/printer"
	"github.com/nightconcept/almandine/internal/selfupdate"
)

// UpdateCmd should be used to represent the 'self update' command.
type UpdateCmd struct {
	*cmd.BaseCmd
	installFlags
	builder cmd.ClientBuilder
	version string

	check      bool
	repository string
}

// NewUpdateCmd creates a newly configured (Cobra) command.
func NewUpdateCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	opts, err := options.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &UpdateCmd{
		BaseCmd: baseCmd,
		builder: opts.ClientBuilder,
		version: opts.Version,
	}

	cobraCmd := &cobra.Command{
		Use:   "update",
		Short: "Updates almd to the latest release",
		Long: "Replaces the almd installation with the latest release.\n\n" +
			"The current installation is backed up first. If the new installation cannot be " +
			"validated the backup is restored and the command fails.",
		Args: cobra.NoArgs,
		RunE: c.run,
	}

	c.register(cobraCmd)
	cobraCmd.Flags().BoolVar(&c.check, "check", false, "Only report whether a newer release exists")
	cobraCmd.Flags().StringVar(
		&c.repository,
		"source",
		selfupdate.DefaultRepository,
		"GitHub repository ('owner/repo') releases are fetched from",
	)
	cobraCmd.MarkFlagsMutuallyExclusive("check", "yes")

	return cobraCmd, nil
}

func (c *UpdateCmd) run(cobraCmd *cobra.Command, _ []string) error {
	out := cobraCmd.OutOrStdout()
	logger := c.Logger()

	gh, err := c.builder.GitHub()
	if err != nil {
		return err
	}
	dl, err := c.builder.Downloader()
	if err != nil {
		return err
	}

	updater, err := selfupdate.New(
		logger,
		gh,
		dl,
		append(
			c.options(),
			selfupdate.WithRepository(c.repository),
			selfupdate.WithCurrentVersion(c.version),
			selfupdate.WithObserver(func(s selfupdate.State) {
				logger.Info("Self-update", "state", s)
			}),
		)...,
	)
	if err != nil {
		return err
	}

	rel, newer, err := updater.Check(cobraCmd.Context())
	if err != nil {
		return err
	}

	if !newer {
		printer.Success(out, "almd %s is up to date (latest release: %s)", c.version, rel.Tag)
		return nil
	}

	if c.check {
		_, _ = fmt.Fprintf(out, "Update available: %s -> %s\n", c.version, rel.Tag)
		return nil
	}

	if !c.yes {
		ok, err := cmd.Confirm(
			cobraCmd.InOrStdin(),
			out,
			fmt.Sprintf("Update almd in %s from %s to %s?", updater.InstallDir(), c.version, rel.Tag),
		)
		if err != nil {
			return err
		}
		if !ok {
			_, _ = fmt.Fprintln(out, "Update cancelled")
			return nil
		}
	}

	report, err := updater.Install(cobraCmd.Context(), rel)
	if err != nil {
		switch {
		case selfupdate.IsRollbackFailure(err):
			printer.Failure(cobraCmd.ErrOrStderr(), "Update failed and the previous installation could not be restored")
			printer.Failure(cobraCmd.ErrOrStderr(), "Restore it manually from %s", report.Backup)
		case report.RolledBack:
			printer.Warning(cobraCmd.ErrOrStderr(), "Update failed, the previous installation was restored")
		}
		return err
	}

	printer.Success(out, "Updated almd from %s to %s", report.From, report.To)

	return nil
}
