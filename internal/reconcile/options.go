package reconcile

import (
	"fmt"
	"strings"

	"github.com/nightconcept/almandine/internal/integrity"
)

// Option defines a functional option for configuring Reconciler.
type Option func(*Options) error

// Options contains optional configuration for the reconciler.
type Options struct {
	// projectDir is the directory manifest paths are relative to.
	projectDir string

	// algorithm is used for new content pins.
	algorithm integrity.Algorithm

	// force re-downloads every dependency regardless of lockfile state.
	force bool

	// relock refreshes content-pinned dependencies and accepts new digests for an unchanged source.
	relock bool
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) (Options, error) {
	o := Options{
		projectDir: ".",
		algorithm:  integrity.DefaultAlgorithm,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&o); err != nil {
			return Options{}, err
		}
	}

	return o, nil
}

// WithProjectDir sets the directory that manifest paths are relative to.
func WithProjectDir(dir string) Option {
	return func(o *Options) error {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			return fmt.Errorf("project directory cannot be empty")
		}
		o.projectDir = dir
		return nil
	}
}

// WithAlgorithm sets the digest algorithm for new content pins.
// Existing content pins keep the algorithm they were recorded with.
func WithAlgorithm(a integrity.Algorithm) Option {
	return func(o *Options) error {
		parsed, err := integrity.ParseAlgorithm(string(a))
		if err != nil {
			return err
		}
		o.algorithm = parsed
		return nil
	}
}

// WithForce re-downloads and re-verifies every dependency.
func WithForce(force bool) Option {
	return func(o *Options) error {
		o.force = force
		return nil
	}
}

// WithRelock re-downloads content-pinned dependencies and records whatever digest they now have.
func WithRelock(relock bool) Option {
	return func(o *Options) error {
		o.relock = relock
		return nil
	}
}
