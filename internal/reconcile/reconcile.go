// Package reconcile brings installed dependency files and the lockfile in line with the manifest.
//
// Reconciliation happens in two steps. Plan resolves every manifest dependency to the source it should be
// installed from and decides which ones need work. Apply downloads those, verifies content pins and records
// the results in the lockfile. Dependencies are processed one at a time in name order; a failing dependency
// is recorded and the rest still run.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/go-hclog"

	"github.com/nightconcept/almandine/internal/download"
	errs "github.com/nightconcept/almandine/internal/errors"
	"github.com/nightconcept/almandine/internal/files"
	"github.com/nightconcept/almandine/internal/integrity"
	"github.com/nightconcept/almandine/internal/lockfile"
	"github.com/nightconcept/almandine/internal/manifest"
	"github.com/nightconcept/almandine/internal/perms"
	"github.com/nightconcept/almandine/internal/source"
)

// CommitLocator finds the newest commit on ref that touches a file.
type CommitLocator interface {
	LatestCommit(ctx context.Context, owner, repo, path, ref string) (string, error)
}

// Reason explains why a dependency is (re)installed.
type Reason string

const (
	ReasonForced          Reason = "forced"
	ReasonNotLocked       Reason = "not in lockfile"
	ReasonSourceChanged   Reason = "source changed"
	ReasonPathChanged     Reason = "path changed"
	ReasonCommitChanged   Reason = "commit changed"
	ReasonNoContentHash   Reason = "no content hash recorded"
	ReasonFileMissing     Reason = "file missing"
	ReasonContentModified Reason = "file content differs from lockfile"
	ReasonRelock          Reason = "refreshing content pin"
)

// Action is a dependency that Apply must download.
type Action struct {
	Name   string
	Reason Reason

	// Manifest is the dependency as declared.
	Manifest manifest.Entry

	// Target is the lockfile entry to record. Hash is empty for content pins until Apply computes it.
	Target lockfile.Entry

	// ContentPinned is true when the dependency is locked by digest rather than commit.
	ContentPinned bool
}

// Plan is the outcome of comparing the manifest with the lockfile and the files on disk.
type Plan struct {
	Actions  []Action
	UpToDate []string
	Failures []errs.DependencyError
}

// Change records a dependency that Apply installed.
type Change struct {
	Name   string
	Reason Reason
	Entry  lockfile.Entry
}

// Result is the outcome of a reconciliation.
type Result struct {
	Installed []Change
	UpToDate  []string
	Failures  []errs.DependencyError
}

// Reconciler computes and applies lockfile changes.
// New should be used to create instances of Reconciler.
type Reconciler struct {
	logger     hclog.Logger
	locator    CommitLocator
	downloader download.Downloader
	projectDir string
	algorithm  integrity.Algorithm
	force      bool
	relock     bool
}

// New creates a Reconciler.
func New(logger hclog.Logger, locator CommitLocator, downloader download.Downloader, opts ...Option) (*Reconciler, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if locator == nil {
		return nil, fmt.Errorf("commit locator cannot be nil")
	}
	if downloader == nil {
		return nil, fmt.Errorf("downloader cannot be nil")
	}

	o, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	return &Reconciler{
		logger:     logger.Named("reconcile"),
		locator:    locator,
		downloader: downloader,
		projectDir: o.projectDir,
		algorithm:  o.algorithm,
		force:      o.force,
		relock:     o.relock,
	}, nil
}

// Err returns an *errs.InstallError aggregating every failure, or nil.
func (r Result) Err() error {
	return errs.NewInstallError(r.Failures)
}

// Changed reports whether any lockfile entry was written.
func (r Result) Changed() bool {
	return len(r.Installed) > 0
}

// Run plans and applies reconciliation of deps against lf, updating lf in memory.
// Lockfile entries for names absent from deps are left alone.
func (r *Reconciler) Run(ctx context.Context, deps map[string]manifest.Entry, lf *lockfile.Lockfile) Result {
	return r.Apply(ctx, r.Plan(ctx, deps, lf), lf)
}

// Plan resolves each dependency and decides whether it needs to be downloaded.
func (r *Reconciler) Plan(ctx context.Context, deps map[string]manifest.Entry, lf *lockfile.Lockfile) Plan {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	slices.Sort(names)

	var plan Plan
	for _, name := range names {
		entry := deps[name]

		action, err := r.target(ctx, name, entry)
		if err != nil {
			r.logger.Warn("Dependency could not be resolved", "name", name, "source", entry.Source, "error", err)
			plan.Failures = append(plan.Failures, errs.DependencyError{Name: name, Err: err})
			continue
		}

		locked, _ := lf.Get(name)
		if reason, ok := r.needsUpdate(action, locked, lf); ok {
			action.Reason = reason
			r.logger.Debug("Dependency needs update", "name", name, "reason", reason)
			plan.Actions = append(plan.Actions, action)
			continue
		}

		r.logger.Debug("Dependency up to date", "name", name)
		plan.UpToDate = append(plan.UpToDate, name)
	}

	return plan
}

// Apply downloads each planned action and records it in lf.
// A failed action leaves its file and lockfile entry exactly as they were.
func (r *Reconciler) Apply(ctx context.Context, plan Plan, lf *lockfile.Lockfile) Result {
	res := Result{
		UpToDate: slices.Clone(plan.UpToDate),
		Failures: slices.Clone(plan.Failures),
	}

	for _, action := range plan.Actions {
		entry, err := r.install(ctx, action, lf)
		if err != nil {
			if errors.Is(err, errs.ErrIntegrity) {
				r.logger.Error("Dependency content does not match its pinned hash", "name", action.Name, "error", err)
			} else {
				r.logger.Warn("Dependency failed", "name", action.Name, "error", err)
			}
			res.Failures = append(res.Failures, errs.DependencyError{Name: action.Name, Err: err})
			continue
		}

		lf.Set(action.Name, entry)
		res.Installed = append(res.Installed, Change{Name: action.Name, Reason: action.Reason, Entry: entry})
		r.logger.Info("Installed dependency", "name", action.Name, "source", entry.Source, "hash", entry.Hash)
	}

	slices.SortFunc(res.Failures, func(a, b errs.DependencyError) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})

	return res
}

// target resolves the source a dependency should be installed from.
func (r *Reconciler) target(ctx context.Context, name string, entry manifest.Entry) (Action, error) {
	info, err := source.Parse(entry.Source)
	if err != nil {
		return Action{}, err
	}

	action := Action{
		Name:     name,
		Manifest: entry,
		Target:   lockfile.Entry{Path: entry.Path},
	}

	switch {
	case info.IsCommitPinned():
		action.Target.Source = info.RawURL
		action.Target.Hash = integrity.Commit(info.Ref).String()
	case info.IsGitHub():
		sha, err := r.locator.LatestCommit(ctx, info.Owner, info.Repo, info.PathInRepo, info.Ref)
		if err != nil {
			if !errors.Is(err, errs.ErrRefNotFound) {
				err = fmt.Errorf("%w: %s: %w", errs.ErrSourceResolution, info.Canonical, err)
			}
			return Action{}, err
		}
		r.logger.Debug("Resolved mutable ref", "name", name, "ref", info.Ref, "commit", sha)
		action.Target.Source = info.WithRef(sha).RawURL
		action.ContentPinned = true
	default:
		action.Target.Source = info.RawURL
		action.ContentPinned = true
	}

	return action, nil
}

// needsUpdate compares the target with the locked entry and the file on disk.
func (r *Reconciler) needsUpdate(action Action, locked lockfile.Entry, lf *lockfile.Lockfile) (Reason, bool) {
	if r.force {
		return ReasonForced, true
	}
	if _, ok := lf.Get(action.Name); !ok {
		return ReasonNotLocked, true
	}
	if locked.Source != action.Target.Source {
		return ReasonSourceChanged, true
	}
	if locked.Path != action.Target.Path {
		return ReasonPathChanged, true
	}

	lockedHash, hasHash := locked.ParsedHash()
	if !action.ContentPinned && (!hasHash || lockedHash.String() != action.Target.Hash) {
		return ReasonCommitChanged, true
	}
	if action.ContentPinned && (!hasHash || !lockedHash.IsContent()) {
		return ReasonNoContentHash, true
	}

	dest := action.Manifest.LocalPath(r.projectDir)
	if ok, err := files.Exists(dest); err != nil || !ok {
		return ReasonFileMissing, true
	}

	if action.ContentPinned {
		if r.relock {
			return ReasonRelock, true
		}
		if err := integrity.Verify(lockedHash, dest); err != nil {
			return ReasonContentModified, true
		}
	}

	return "", false
}

// install downloads one action to a staging file, verifies it and moves it into place.
func (r *Reconciler) install(ctx context.Context, action Action, lf *lockfile.Lockfile) (lockfile.Entry, error) {
	dest := action.Manifest.LocalPath(r.projectDir)
	dir := filepath.Dir(dest)

	createdDir := false
	if ok, _ := files.Exists(dir); !ok {
		createdDir = true
	}
	cleanupDir := func() {
		if createdDir {
			_ = files.RemoveEmptyParents(dest, r.projectDir)
		}
	}

	if err := os.MkdirAll(dir, perms.RegularDir); err != nil {
		return lockfile.Entry{}, fmt.Errorf("%w: could not create '%s': %w", errs.ErrDownload, dir, err)
	}

	staging, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".almd-*")
	if err != nil {
		cleanupDir()
		return lockfile.Entry{}, fmt.Errorf("%w: could not create staging file: %w", errs.ErrDownload, err)
	}
	stagingPath := staging.Name()
	_ = staging.Close()
	defer func() {
		_ = os.Remove(stagingPath) // No-op after a successful rename.
	}()

	r.logger.Debug("Downloading", "name", action.Name, "url", action.Target.Source, "staging", stagingPath)

	if err := r.downloader.Download(ctx, action.Target.Source, stagingPath); err != nil {
		_ = os.Remove(stagingPath)
		cleanupDir()
		if !errors.Is(err, errs.ErrDownload) {
			err = fmt.Errorf("%w: %w", errs.ErrDownload, err)
		}
		return lockfile.Entry{}, err
	}

	entry := action.Target
	if action.ContentPinned {
		digest, err := r.verify(action, lf, stagingPath)
		if err != nil {
			_ = os.Remove(stagingPath)
			cleanupDir()
			return lockfile.Entry{}, err
		}
		entry.Hash = digest.String()
	}

	if err := os.Chmod(stagingPath, perms.RegularFile); err != nil {
		_ = os.Remove(stagingPath)
		cleanupDir()
		return lockfile.Entry{}, fmt.Errorf("could not set permissions on '%s': %w", stagingPath, err)
	}

	if err := os.Rename(stagingPath, dest); err != nil {
		_ = os.Remove(stagingPath)
		cleanupDir()
		return lockfile.Entry{}, fmt.Errorf("could not move download into '%s': %w", dest, err)
	}

	return entry, nil
}

// verify digests the staged file. When the lockfile already pins the content of the same source,
// the digest must match unless relocking.
func (r *Reconciler) verify(action Action, lf *lockfile.Lockfile, stagingPath string) (integrity.Hash, error) {
	algo := r.algorithm

	locked, ok := lf.Get(action.Name)
	lockedHash, hasHash := locked.ParsedHash()
	enforce := ok && hasHash && lockedHash.IsContent() && locked.Source == action.Target.Source && !r.relock
	if ok && hasHash && lockedHash.IsContent() {
		algo = lockedHash.Algorithm
	}

	digest, err := integrity.HashFile(algo, stagingPath)
	if err != nil {
		return integrity.Hash{}, err
	}

	if enforce && digest.Value != lockedHash.Value {
		return integrity.Hash{}, fmt.Errorf(
			"%w: %s: expected %s, got %s",
			errs.ErrIntegrity,
			action.Target.Source,
			lockedHash,
			digest,
		)
	}

	return digest, nil
}
