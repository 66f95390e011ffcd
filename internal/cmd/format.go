package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/nightconcept/almandine/internal/cmd/output"
)

// OutputFormat selects how a command renders its results. It implements pflag.Value.
type OutputFormat string

type OutputFormats []OutputFormat

const (
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
	FormatText OutputFormat = "text"
)

// indent is the number of spaces used for nested JSON and YAML nodes.
const indent = 2

func AllowedOutputFormats() OutputFormats {
	formats := []OutputFormat{
		FormatJSON,
		FormatText,
		FormatYAML,
	}

	slices.Sort(formats)

	return formats
}

// String joins the formats with commas.
func (f *OutputFormats) String() string {
	out := make([]string, len(*f))
	for i, format := range *f {
		out[i] = format.String()
	}
	return strings.Join(out, ", ")
}

func (f *OutputFormat) String() string {
	return strings.ToLower(string(*f))
}

func (f *OutputFormat) Set(v string) error {
	v = strings.ToLower(strings.TrimSpace(v))
	allowed := AllowedOutputFormats()

	if !slices.Contains(allowed, OutputFormat(v)) {
		return fmt.Errorf("invalid format '%s', must be one of %v", v, allowed.String())
	}

	*f = OutputFormat(v)
	return nil
}

func (f *OutputFormat) Type() string {
	return "format"
}

// NewHandler returns the output handler for format, writing to w.
// The printer is only used by the text format.
func NewHandler[T any](format OutputFormat, w io.Writer, p output.Printer[T]) (output.Handler[T], error) {
	switch format {
	case FormatJSON:
		return output.NewJSONHandler[T](w, indent), nil
	case FormatYAML:
		return output.NewYAMLHandler[T](w, indent), nil
	case FormatText, "":
		if p == nil {
			return nil, fmt.Errorf("text output requires a printer")
		}
		return output.NewTextHandler[T](w, p), nil
	default:
		return nil, fmt.Errorf("unsupported output format '%s'", format)
	}
}
