package selfupdate

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nightconcept/almandine/internal/files"
)

const (
	// DefaultRepository is the GitHub repository releases are fetched from.
	DefaultRepository = "nightconcept/almandine"

	// DefaultAssetURLTemplate is expanded with the placeholders understood by AssetURL.
	DefaultAssetURLTemplate = "https://github.com/{repo}/releases/download/{tag}/almd_{version}_{os}_{arch}.{ext}"
)

// Option defines a functional option for configuring Updater.
type Option func(*Options) error

// Options contains optional configuration for Updater.
type Options struct {
	owner          string
	repo           string
	installDir     string
	scratchDir     string
	currentVersion string
	marker         string
	assetTemplate  string
	validator      Validator
	observer       func(State)
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) (Options, error) {
	owner, repo, _ := strings.Cut(DefaultRepository, "/")
	o := Options{
		owner:          owner,
		repo:           repo,
		currentVersion: "0.0.0",
		marker:         DefaultMarker(),
		assetTemplate:  DefaultAssetURLTemplate,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&o); err != nil {
			return Options{}, err
		}
	}

	if o.installDir == "" {
		dir, err := files.UserSpecificDataDir()
		if err != nil {
			return Options{}, fmt.Errorf("could not determine install directory: %w", err)
		}
		o.installDir = dir
	}

	if o.scratchDir == "" {
		dir, err := files.UserSpecificCacheDir()
		if err != nil {
			return Options{}, fmt.Errorf("could not determine scratch directory: %w", err)
		}
		o.scratchDir = filepath.Join(dir, "update")
	}

	if o.validator == nil {
		o.validator = MarkerValidator{Marker: o.marker}
	}

	return o, nil
}

// DefaultMarker is the entry point that must exist in a valid install tree.
func DefaultMarker() string {
	if runtime.GOOS == "windows" {
		return "almd.exe"
	}
	return "almd"
}

// WithRepository sets the 'owner/repo' releases are fetched from.
func WithRepository(slug string) Option {
	return func(o *Options) error {
		owner, repo, err := ParseRepository(slug)
		if err != nil {
			return err
		}
		o.owner = owner
		o.repo = repo
		return nil
	}
}

// WithInstallDir sets the directory holding the live installation.
func WithInstallDir(dir string) Option {
	return func(o *Options) error {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			return fmt.Errorf("install directory cannot be empty")
		}
		o.installDir = dir
		return nil
	}
}

// WithScratchDir sets the directory under which downloads, staging and backups are kept during an update.
func WithScratchDir(dir string) Option {
	return func(o *Options) error {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			return fmt.Errorf("scratch directory cannot be empty")
		}
		o.scratchDir = dir
		return nil
	}
}

// WithCurrentVersion sets the version of the running binary.
func WithCurrentVersion(v string) Option {
	return func(o *Options) error {
		v = strings.TrimSpace(v)
		if v == "" {
			return fmt.Errorf("current version cannot be empty")
		}
		o.currentVersion = v
		return nil
	}
}

// WithMarker sets the file that must exist in a valid install tree.
// It also becomes the marker of the default validator.
func WithMarker(name string) Option {
	return func(o *Options) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("marker cannot be empty")
		}
		o.marker = name
		return nil
	}
}

// WithAssetURLTemplate sets the template used to build the release archive URL.
func WithAssetURLTemplate(tmpl string) Option {
	return func(o *Options) error {
		tmpl = strings.TrimSpace(tmpl)
		if tmpl == "" {
			return fmt.Errorf("asset URL template cannot be empty")
		}
		o.assetTemplate = tmpl
		return nil
	}
}

// WithValidator replaces the check run against the new install tree.
func WithValidator(v Validator) Option {
	return func(o *Options) error {
		if v == nil {
			return fmt.Errorf("validator cannot be nil")
		}
		o.validator = v
		return nil
	}
}

// WithObserver registers fn to be called on every state transition.
func WithObserver(fn func(State)) Option {
	return func(o *Options) error {
		o.observer = fn
		return nil
	}
}

// ParseRepository splits an 'owner/repo' slug.
func ParseRepository(slug string) (owner string, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(slug), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository '%s': expected 'owner/repo'", slug)
	}
	return parts[0], parts[1], nil
}
