// Package selfupdate replaces the tool's own install tree with a newer release.
//
// An update moves through the states FetchLatestTag, DownloadArchive, Extract, BackupCurrentInstall,
// ReplaceInstall and ValidateNewInstall, then either Cleanup or Rollback. Nothing in the install directory is
// touched before the backup exists, and the backup is deleted only after the new tree validates.
package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-hclog"

	"github.com/nightconcept/almandine/internal/download"
	errs "github.com/nightconcept/almandine/internal/errors"
	"github.com/nightconcept/almandine/internal/files"
	"github.com/nightconcept/almandine/internal/perms"
)

// TagLister lists the tags of a repository.
type TagLister interface {
	Tags(ctx context.Context, owner, repo string) ([]string, error)
}

// Release is a published version of the tool.
type Release struct {
	Tag      string
	Version  *semver.Version
	AssetURL string
}

// Report describes an update attempt.
type Report struct {
	From       string
	To         string
	States     []State
	UpToDate   bool
	RolledBack bool

	// Backup is set when a rollback failed and the previous install must be restored by hand.
	Backup string
}

// Final returns the last state reached.
func (r Report) Final() State {
	if len(r.States) == 0 {
		return StateFailed
	}
	return r.States[len(r.States)-1]
}

// Updater runs the self-update state machine.
// New should be used to create instances of Updater.
type Updater struct {
	logger     hclog.Logger
	tags       TagLister
	downloader download.Downloader
	opts       Options
}

// New creates an Updater.
func New(logger hclog.Logger, tags TagLister, downloader download.Downloader, opts ...Option) (*Updater, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if tags == nil {
		return nil, fmt.Errorf("tag lister cannot be nil")
	}
	if downloader == nil {
		return nil, fmt.Errorf("downloader cannot be nil")
	}

	o, err := NewOptions(opts...)
	if err != nil {
		return nil, err
	}

	return &Updater{
		logger:     logger.Named("selfupdate"),
		tags:       tags,
		downloader: downloader,
		opts:       o,
	}, nil
}

// InstallDir returns the directory holding the live installation.
func (u *Updater) InstallDir() string {
	return u.opts.installDir
}

// Repository returns the 'owner/repo' releases are fetched from.
func (u *Updater) Repository() string {
	return u.opts.owner + "/" + u.opts.repo
}

// CurrentVersion parses the configured version of the running binary.
func (u *Updater) CurrentVersion() (*semver.Version, error) {
	v, err := semver.NewVersion(u.opts.currentVersion)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: cannot parse current version '%s', expected vX.Y.Z or X.Y.Z",
			errs.ErrSelfUpdate,
			u.opts.currentVersion,
		)
	}
	return v, nil
}

// Latest returns the highest stable semantic version tag of the repository.
func (u *Updater) Latest(ctx context.Context) (Release, error) {
	tags, err := u.tags.Tags(ctx, u.opts.owner, u.opts.repo)
	if err != nil {
		return Release{}, fmt.Errorf("%w: could not list tags of %s: %w", errs.ErrSelfUpdate, u.Repository(), err)
	}

	var best Release
	for _, tag := range tags {
		v, err := semver.NewVersion(tag)
		if err != nil || v.Prerelease() != "" {
			u.logger.Trace("Skipping tag", "tag", tag)
			continue
		}
		if best.Version == nil || v.GreaterThan(best.Version) {
			best = Release{Tag: tag, Version: v}
		}
	}

	if best.Version == nil {
		return Release{}, fmt.Errorf("%w: no release tags found in %s", errs.ErrSelfUpdate, u.Repository())
	}

	best.AssetURL = u.AssetURL(best, runtime.GOOS, runtime.GOARCH)

	return best, nil
}

// Check returns the latest release and whether it is newer than the running version.
func (u *Updater) Check(ctx context.Context) (Release, bool, error) {
	current, err := u.CurrentVersion()
	if err != nil {
		return Release{}, false, err
	}

	rel, err := u.Latest(ctx)
	if err != nil {
		return Release{}, false, err
	}

	return rel, rel.Version.GreaterThan(current), nil
}

// AssetURL expands the asset URL template for rel on the given platform.
// Placeholders: {repo}, {tag}, {version}, {os}, {arch}, {ext}.
func (u *Updater) AssetURL(rel Release, goos, goarch string) string {
	version := strings.TrimPrefix(rel.Tag, "v")
	if rel.Version != nil {
		version = rel.Version.String()
	}

	return strings.NewReplacer(
		"{repo}", u.Repository(),
		"{tag}", rel.Tag,
		"{version}", version,
		"{os}", goos,
		"{arch}", goarch,
		"{ext}", ArchiveExt(goos),
	).Replace(u.opts.assetTemplate)
}

// Update installs the latest release when it is newer than the running version.
func (u *Updater) Update(ctx context.Context) (Report, error) {
	report := Report{From: u.opts.currentVersion}
	u.enter(&report, StateFetchLatestTag)

	rel, newer, err := u.Check(ctx)
	if err != nil {
		u.enter(&report, StateFailed)
		return report, err
	}
	report.To = rel.Version.String()

	if !newer {
		u.logger.Info("Already up to date", "current", u.opts.currentVersion, "latest", rel.Tag)
		report.UpToDate = true
		u.enter(&report, StateDone)
		return report, nil
	}

	return u.install(ctx, rel, report)
}

// Install replaces the install tree with rel regardless of the running version.
func (u *Updater) Install(ctx context.Context, rel Release) (Report, error) {
	if rel.AssetURL == "" {
		rel.AssetURL = u.AssetURL(rel, runtime.GOOS, runtime.GOARCH)
	}

	report := Report{From: u.opts.currentVersion, To: rel.Tag}
	if rel.Version != nil {
		report.To = rel.Version.String()
	}

	return u.install(ctx, rel, report)
}

func (u *Updater) install(ctx context.Context, rel Release, report Report) (Report, error) {
	if err := files.EnsureDir(u.opts.scratchDir, perms.SecureDir); err != nil {
		u.enter(&report, StateFailed)
		return report, fmt.Errorf("%w: could not create scratch directory: %w", errs.ErrSelfUpdate, err)
	}

	scratch, err := os.MkdirTemp(u.opts.scratchDir, "update-*")
	if err != nil {
		u.enter(&report, StateFailed)
		return report, fmt.Errorf("%w: could not create scratch directory: %w", errs.ErrSelfUpdate, err)
	}
	removeScratch := func() {
		if err := os.RemoveAll(scratch); err != nil {
			u.logger.Warn("Failed to remove scratch directory", "path", scratch, "error", err)
		}
	}

	// Until the backup exists a failure only discards scratch space.
	fail := func(state State, err error) (Report, error) {
		removeScratch()
		u.enter(&report, StateFailed)
		return report, fmt.Errorf("%w: %s: %w", errs.ErrSelfUpdate, state, err)
	}

	u.enter(&report, StateDownloadArchive)
	archive := filepath.Join(scratch, path.Base(rel.AssetURL))
	if err := u.downloader.Download(ctx, rel.AssetURL, archive); err != nil {
		return fail(StateDownloadArchive, err)
	}

	u.enter(&report, StateExtract)
	staging := filepath.Join(scratch, "staging")
	if err := extract(archive, staging); err != nil {
		return fail(StateExtract, err)
	}
	root, err := findRoot(staging, u.opts.marker)
	if err != nil {
		return fail(StateExtract, err)
	}

	u.enter(&report, StateBackupCurrentInstall)
	backup := filepath.Join(scratch, "backup")
	hadInstall, err := files.Exists(u.opts.installDir)
	if err != nil {
		return fail(StateBackupCurrentInstall, err)
	}
	if hadInstall {
		if err := files.CopyTree(u.opts.installDir, backup); err != nil {
			return fail(StateBackupCurrentInstall, err)
		}
	}

	u.enter(&report, StateReplaceInstall)
	if err := u.replace(root); err != nil {
		return u.rollback(&report, scratch, backup, hadInstall, StateReplaceInstall, err)
	}

	u.enter(&report, StateValidateNewInstall)
	if err := u.opts.validator.Validate(ctx, u.opts.installDir, rel); err != nil {
		return u.rollback(&report, scratch, backup, hadInstall, StateValidateNewInstall, err)
	}

	u.enter(&report, StateCleanup)
	removeScratch()

	u.enter(&report, StateDone)
	u.logger.Info("Updated", "from", report.From, "to", report.To, "dir", u.opts.installDir)

	return report, nil
}

func (u *Updater) replace(root string) error {
	if err := os.RemoveAll(u.opts.installDir); err != nil {
		return fmt.Errorf("could not remove current install: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(u.opts.installDir), perms.RegularDir); err != nil {
		return err
	}
	return files.CopyTree(root, u.opts.installDir)
}

// rollback restores the backup over a broken replacement. The returned error always wraps errs.ErrSelfUpdate,
// and also errs.ErrRollback when the previous install could not be restored.
func (u *Updater) rollback(
	report *Report,
	scratch string,
	backup string,
	hadInstall bool,
	failed State,
	cause error,
) (Report, error) {
	u.enter(report, StateRollback)
	u.logger.Error("Update failed, rolling back", "state", failed, "error", cause)

	var restoreErr error
	if err := os.RemoveAll(u.opts.installDir); err != nil {
		restoreErr = fmt.Errorf("could not remove broken install: %w", err)
	} else if hadInstall {
		restoreErr = files.CopyTree(backup, u.opts.installDir)
	}

	if restoreErr != nil {
		report.Backup = backup
		u.enter(report, StateFailed)
		u.logger.Error("Rollback failed", "backup", backup, "error", restoreErr)
		return *report, fmt.Errorf(
			"%w: %w: %s: %w; restore manually from '%s': %w",
			errs.ErrSelfUpdate,
			errs.ErrRollback,
			failed,
			cause,
			backup,
			restoreErr,
		)
	}

	if err := os.RemoveAll(scratch); err != nil {
		u.logger.Warn("Failed to remove scratch directory", "path", scratch, "error", err)
	}

	report.RolledBack = true
	u.enter(report, StateFailed)

	return *report, fmt.Errorf("%w: %s: %w (previous install restored)", errs.ErrSelfUpdate, failed, cause)
}

// Uninstall removes the install directory after confirming it holds an installation.
func (u *Updater) Uninstall(ctx context.Context) error {
	dir := u.opts.installDir

	ok, err := files.Exists(dir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("nothing installed at '%s'", dir)
	}

	if err := (MarkerValidator{Marker: u.opts.marker}).Validate(ctx, dir, Release{}); err != nil {
		return fmt.Errorf("refusing to remove '%s': %w", dir, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove '%s': %w", dir, err)
	}

	u.logger.Info("Uninstalled", "dir", dir)

	return nil
}

func (u *Updater) enter(report *Report, s State) {
	report.States = append(report.States, s)
	u.logger.Debug("Self-update state", "state", s)
	if u.opts.observer != nil {
		u.opts.observer(s)
	}
}

// IsRollbackFailure reports whether err means the install directory could not be restored.
func IsRollbackFailure(err error) bool {
	return errors.Is(err, errs.ErrRollback)
}
