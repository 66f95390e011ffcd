package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/hashicorp/go-hclog"

	"github.com/nightconcept/almandine/internal/cache"
	"github.com/nightconcept/almandine/internal/cmd"
	"github.com/nightconcept/almandine/internal/flags"
	"github.com/nightconcept/almandine/internal/lockfile"
	"github.com/nightconcept/almandine/internal/manifest"
	"github.com/nightconcept/almandine/internal/printer"
	"github.com/nightconcept/almandine/internal/reconcile"
)

// project is the manifest and lockfile of the project a command operates on.
type project struct {
	manifest   *manifest.Project
	lock       *lockfile.Lockfile
	lockExists bool
	lockPath   string
	root       string
}

// loadProject reads the manifest and the lockfile, failing before anything is changed when either cannot be loaded.
func loadProject(loader manifest.Loader, warnings io.Writer) (*project, error) {
	m, err := loader.Load(flags.ManifestPath())
	if err != nil {
		return nil, err
	}
	for _, w := range m.Warnings {
		printer.Warning(warnings, "%s", w)
	}

	lockPath := flags.LockfilePath()
	lf, exists, err := lockfile.Load(lockPath)
	if err != nil {
		return nil, err
	}

	return &project{
		manifest:   m,
		lock:       lf,
		lockExists: exists,
		lockPath:   lockPath,
		root:       flags.ProjectRoot(),
	}, nil
}

// selectDependencies returns a copy of the manifest dependencies named in names, or of all of them when names is empty.
// Unknown names are reported on warnings and skipped.
func (p *project) selectDependencies(names []string, warnings io.Writer) (map[string]manifest.Entry, error) {
	if len(names) == 0 {
		return maps.Clone(p.manifest.Dependencies), nil
	}

	deps := make(map[string]manifest.Entry, len(names))
	for _, name := range names {
		e, ok := p.manifest.Dependency(name)
		if !ok {
			printer.Warning(warnings, "dependency '%s' not found in %s, skipping", name, flags.ManifestPath())
			continue
		}
		deps[name] = e
	}

	if len(deps) == 0 {
		return nil, fmt.Errorf("none of the named dependencies are in %s", flags.ManifestPath())
	}

	return deps, nil
}

// saveLock writes the lockfile.
func (p *project) saveLock() error {
	if err := lockfile.Save(p.lockPath, p.lock); err != nil {
		return err
	}
	p.lockExists = true
	return nil
}

// newReconciler builds a Reconciler from the command's network collaborators.
// cacheOpts configure the content cache in front of the downloader.
func newReconciler(
	logger hclog.Logger,
	builder cmd.ClientBuilder,
	cacheOpts []cache.Option,
	opts ...reconcile.Option,
) (*reconcile.Reconciler, error) {
	gh, err := builder.GitHub()
	if err != nil {
		return nil, err
	}

	dl, err := builder.Downloader(cacheOpts...)
	if err != nil {
		return nil, err
	}

	opts = slices.Insert(opts, 0, reconcile.WithProjectDir(flags.ProjectRoot()))

	return reconcile.New(logger, gh, dl, opts...)
}
