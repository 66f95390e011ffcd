package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nightconcept/almandine/internal/cache"
	"github.com/nightconcept/almandine/internal/cmd"
	cmdopts "github.com/nightconcept/almandine/internal/cmd/options"
	"github.com/nightconcept/almandine/internal/integrity"
	"github.com/nightconcept/almandine/internal/manifest"
	"github.com/nightconcept/almandine/internal/printer"
	"github.com/nightconcept/almandine/internal/reconcile"
)

// InstallCmd should be used to represent the 'install' command.
type InstallCmd struct {
	*cmd.BaseCmd
	loader  manifest.Loader
	builder cmd.ClientBuilder

	force  bool
	hash   string
	dryRun bool
}

// NewInstallCmd creates a newly configured (Cobra) command.
func NewInstallCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &InstallCmd{
		BaseCmd: baseCmd,
		loader:  opts.ManifestLoader,
		builder: opts.ClientBuilder,
	}

	cobraCommand := &cobra.Command{
		Use:   "install [name...]",
		Short: "Installs dependencies so the lockfile and files on disk match project.toml",
		Long: "Installs every dependency in project.toml, or only the named ones.\n\n" +
			"Dependencies whose lockfile entry and installed file already match are skipped. " +
			"A failing dependency does not stop the others; failures are reported together at the end.",
		RunE: c.run,
	}

	cobraCommand.Flags().BoolVarP(&c.force, "force", "f", false, "Download and verify every dependency even when up to date")
	cobraCommand.Flags().StringVar(
		&c.hash,
		"hash",
		string(integrity.DefaultAlgorithm),
		fmt.Sprintf("Digest algorithm for newly content-pinned files (one of: %s)", integrity.JoinAlgorithms(", ")),
	)
	cobraCommand.Flags().BoolVar(&c.dryRun, "dry-run", false, "Show what would be installed without changing anything")

	return cobraCommand, nil
}

// run is configured (via NewInstallCmd) to be called by the Cobra framework when the command is executed.
func (c *InstallCmd) run(cmd *cobra.Command, args []string) error {
	algo, err := integrity.ParseAlgorithm(c.hash)
	if err != nil {
		return err
	}

	proj, err := loadProject(c.loader, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if len(proj.manifest.Dependencies) == 0 {
		printer.Success(cmd.OutOrStdout(), "No dependencies found in %s", proj.manifest.Path())
		return nil
	}

	deps, err := proj.selectDependencies(args, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	// Forced installs fetch commit-pinned files again instead of trusting the cached copy.
	var cacheOpts []cache.Option
	if c.force {
		cacheOpts = append(cacheOpts, cache.WithRefreshCache(true))
	}

	r, err := newReconciler(
		c.Logger(),
		c.builder,
		cacheOpts,
		reconcile.WithForce(c.force),
		reconcile.WithAlgorithm(algo),
	)
	if err != nil {
		return err
	}

	if c.dryRun {
		plan := r.Plan(cmd.Context(), deps, proj.lock)
		printer.Plan(cmd.OutOrStdout(), cmd.ErrOrStderr(), plan)
		return reconcile.Result{Failures: plan.Failures}.Err()
	}

	return reconcileAndSave(cmd, r, proj, deps)
}

// reconcileAndSave installs deps, writes the lockfile when anything changed and reports the outcome.
// A lockfile write failure does not undo installed files.
func reconcileAndSave(cmd *cobra.Command, r *reconcile.Reconciler, proj *project, deps map[string]manifest.Entry) error {
	res := r.Run(cmd.Context(), deps, proj.lock)

	var saveErr error
	if res.Changed() {
		saveErr = proj.saveLock()
	}

	printer.Result(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)

	if err := errors.Join(res.Err(), saveErr); err != nil {
		return err
	}

	if !res.Changed() {
		printer.Success(cmd.OutOrStdout(), "All dependencies are up to date")
	}

	return nil
}
