package cmd

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nightconcept/almandine/internal/cmd"
	cmdopts "github.com/nightconcept/almandine/internal/cmd/options"
	errs "github.com/nightconcept/almandine/internal/errors"
	"github.com/nightconcept/almandine/internal/manifest"
	"github.com/nightconcept/almandine/internal/printer"
	"github.com/nightconcept/almandine/internal/reconcile"
	"github.com/nightconcept/almandine/internal/source"
)

// UpdateCmd should be used to represent the 'update' command.
type UpdateCmd struct {
	*cmd.BaseCmd
	loader  manifest.Loader
	builder cmd.ClientBuilder

	latest bool
}

// NewUpdateCmd creates a newly configured (Cobra) command.
func NewUpdateCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &UpdateCmd{
		BaseCmd: baseCmd,
		loader:  opts.ManifestLoader,
		builder: opts.ClientBuilder,
	}

	cobraCommand := &cobra.Command{
		Use:   "update [name...]",
		Short: "Re-resolves dependencies and refreshes their lockfile entries",
		Long: "Re-resolves branches and tags to their newest commit and re-downloads content-pinned files, " +
			"accepting new content where 'install' would report an integrity error.\n\n" +
			"With --latest, GitHub dependencies pinned to a commit are moved to the newest commit " +
			"of the repository's default branch and project.toml is rewritten.",
		RunE: c.run,
	}

	cobraCommand.Flags().BoolVar(&c.latest, "latest", false, "Move commit-pinned GitHub dependencies to the newest commit")

	return cobraCommand, nil
}

// run is configured (via NewUpdateCmd) to be called by the Cobra framework when the command is executed.
func (c *UpdateCmd) run(cmd *cobra.Command, args []string) error {
	logger := c.Logger()

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

	var repinned map[string]manifest.Entry
	if c.latest {
		gh, err := c.builder.GitHub()
		if err != nil {
			return err
		}
		repinned = c.repin(cmd, gh, deps, len(args) > 0)
		for name, e := range repinned {
			deps[name] = e
		}
	}

	r, err := newReconciler(logger, c.builder, nil, reconcile.WithRelock(true))
	if err != nil {
		return err
	}

	installErr := reconcileAndSave(cmd, r, proj, deps)

	// Only dependencies that installed at their new commit are rewritten in the manifest.
	failed := map[string]bool{}
	var ie *errs.InstallError
	if errors.As(installErr, &ie) {
		for _, f := range ie.Failures {
			failed[f.Name] = true
		}
	}

	changed := false
	for name, e := range repinned {
		if failed[name] {
			continue
		}
		if err := proj.manifest.SetDependency(name, e); err != nil {
			return errors.Join(installErr, err)
		}
		printer.Success(cmd.OutOrStdout(), "Pinned '%s' to %s", name, e.Source)
		changed = true
	}
	if changed {
		if err := proj.manifest.Save(); err != nil {
			return errors.Join(installErr, err)
		}
	}

	return installErr
}

// repin returns the new manifest entries for commit-pinned GitHub dependencies whose default branch has moved.
// Lookup failures are reported and leave the dependency at its current commit.
// When named is set, dependencies that cannot be moved are reported too.
func (c *UpdateCmd) repin(
	cmd *cobra.Command,
	locator cmd.GitHubAPI,
	deps map[string]manifest.Entry,
	named bool,
) map[string]manifest.Entry {
	out := map[string]manifest.Entry{}

	for _, name := range slices.Sorted(maps.Keys(deps)) {
		e := deps[name]
		info, err := source.Parse(e.Source)
		if err != nil {
			continue
		}
		if err := info.RequireGitHub(); err != nil {
			if named {
				printer.Warning(cmd.ErrOrStderr(), "'%s' cannot be moved to a newer commit: %v", name, err)
			}
			continue
		}
		if !info.IsCommitPinned() {
			continue
		}

		sha, err := locator.LatestCommit(cmd.Context(), info.Owner, info.Repo, info.PathInRepo, "")
		if err != nil {
			printer.Warning(cmd.ErrOrStderr(), "%s", fmt.Errorf("could not find the latest commit for '%s': %w", name, err))
			continue
		}
		if strings.EqualFold(sha, info.Ref) {
			continue
		}

		c.Logger().Debug("Moving dependency to latest commit", "name", name, "from", info.Ref, "to", sha)
		out[name] = manifest.Entry{Source: info.WithRef(sha).ManifestSource(), Path: e.Path}
	}

	return out
}
