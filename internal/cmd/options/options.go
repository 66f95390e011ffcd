package options

import (
	"fmt"
	"strings"

	"github.com/nightconcept/almandine/internal/cmd"
	"github.com/nightconcept/almandine/internal/manifest"
)

type CmdOption func(*CmdOptions) error

type CmdOptions struct {
	ManifestLoader      manifest.Loader
	ManifestInitializer manifest.Initializer
	ClientBuilder       cmd.ClientBuilder

	// Version is the version of the running binary, compared against releases by 'self update'.
	Version string
}

func defaultOptions() CmdOptions {
	loader := &manifest.DefaultLoader{}
	return CmdOptions{
		ManifestLoader:      loader,
		ManifestInitializer: loader,
		ClientBuilder:       &cmd.BaseCmd{},
		Version:             "dev",
	}
}

func NewOptions(opt ...CmdOption) (CmdOptions, error) {
	opts := defaultOptions()

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return CmdOptions{}, err
		}
	}
	return opts, nil
}

func WithManifestLoader(l manifest.Loader) CmdOption {
	return func(o *CmdOptions) error {
		if l == nil {
			return fmt.Errorf("manifest loader cannot be nil")
		}
		o.ManifestLoader = l
		return nil
	}
}

func WithManifestInitializer(i manifest.Initializer) CmdOption {
	return func(o *CmdOptions) error {
		if i == nil {
			return fmt.Errorf("manifest initializer cannot be nil")
		}
		o.ManifestInitializer = i
		return nil
	}
}

// WithClientBuilder replaces the source of GitHub clients and downloaders, e.g. with fakes in tests.
func WithClientBuilder(b cmd.ClientBuilder) CmdOption {
	return func(o *CmdOptions) error {
		if b == nil {
			return fmt.Errorf("client builder cannot be nil")
		}
		o.ClientBuilder = b
		return nil
	}
}

func WithVersion(v string) CmdOption {
	return func(o *CmdOptions) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("version cannot be empty")
		}
		o.Version = strings.TrimSpace(v)
		return nil
	}
}
