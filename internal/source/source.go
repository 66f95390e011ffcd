// Package source parses dependency source strings into a normalized identifier and a download URL.
//
// Supported inputs:
//
//	github:<owner>/<repo>/<path>@<ref>
//	https://github.com/<owner>/<repo>/blob/<ref>/<path>
//	https://github.com/<owner>/<repo>/raw/<ref>/<path>
//	https://github.com/<owner>/<repo>/<path>@<ref>
//	https://raw.githubusercontent.com/<owner>/<repo>/<ref>/<path>
//
// Any other http(s) URL, including Gist raw URLs, is treated as an opaque direct download.
package source

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	errs "github.com/nightconcept/almandine/internal/errors"
)

// Provider identifies where a source is hosted.
type Provider string

const (
	// ProviderGitHub is a file in a GitHub repository at a given ref.
	ProviderGitHub Provider = "github"

	// ProviderURL is an opaque URL with no ref concept.
	ProviderURL Provider = "url"
)

const (
	// Prefix is the scheme of canonical GitHub identifiers.
	Prefix = "github:"

	// RawHost is the host serving raw GitHub file content.
	RawHost = "raw.githubusercontent.com"

	githubHost = "github.com"
	refDelim   = "@"
)

var commitHashPattern = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// Info is the parsed form of a dependency source.
type Info struct {
	// Input is the source string exactly as given.
	Input string

	// Provider is ProviderGitHub or ProviderURL.
	Provider Provider

	// Canonical is 'github:<owner>/<repo>/<path>@<ref>', empty for ProviderURL.
	Canonical string

	Owner      string
	Repo       string
	PathInRepo string
	Ref        string

	// RawURL is the URL to download.
	RawURL string

	// Filename is the last path segment of the file, used to derive a default install path.
	Filename string
}

// IsCommitHash reports whether ref is a full 40 character hexadecimal commit SHA.
func IsCommitHash(ref string) bool {
	return commitHashPattern.MatchString(ref)
}

// Parse resolves s into an Info.
// Errors wrap errs.ErrSourceResolution.
func Parse(s string) (Info, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Info{}, fmt.Errorf("%w: source cannot be empty", errs.ErrSourceResolution)
	}

	if strings.HasPrefix(s, Prefix) {
		return parseShorthand(s)
	}

	u, err := url.Parse(s)
	if err != nil {
		return Info{}, fmt.Errorf("%w: '%s': %w", errs.ErrSourceResolution, s, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return Info{}, fmt.Errorf(
			"%w: '%s': expected 'github:<owner>/<repo>/<path>@<ref>' or an http(s) URL",
			errs.ErrSourceResolution,
			s,
		)
	}
	if u.Host == "" {
		return Info{}, fmt.Errorf("%w: '%s': URL has no host", errs.ErrSourceResolution, s)
	}

	switch strings.ToLower(u.Hostname()) {
	case githubHost, "www." + githubHost:
		return parseGitHubPage(s, u)
	case RawHost:
		return parseRaw(s, u)
	default:
		return parseOpaque(s, u)
	}
}

// IsCommitPinned reports whether the source names a specific GitHub commit.
func (i Info) IsCommitPinned() bool {
	return i.Provider == ProviderGitHub && IsCommitHash(i.Ref)
}

// IsGitHub reports whether the source has a canonical GitHub identifier.
func (i Info) IsGitHub() bool {
	return i.Provider == ProviderGitHub
}

// RequireGitHub returns an error wrapping errs.ErrNotGitHubFile for opaque URLs.
func (i Info) RequireGitHub() error {
	if i.IsGitHub() {
		return nil
	}
	return fmt.Errorf("%w: '%s'", errs.ErrNotGitHubFile, i.Input)
}

// WithRef returns the same file at another ref.
// Opaque URLs are returned unchanged.
func (i Info) WithRef(ref string) Info {
	if !i.IsGitHub() {
		return i
	}

	return newGitHubInfo(i.Input, i.Owner, i.Repo, i.PathInRepo, ref)
}

// ManifestSource is the value written into the manifest for this source:
// the canonical identifier for GitHub files, the input URL otherwise.
func (i Info) ManifestSource() string {
	if i.IsGitHub() {
		return i.Canonical
	}
	return i.Input
}

// Canonical builds 'github:<owner>/<repo>/<path>@<ref>'.
func Canonical(owner, repo, pathInRepo, ref string) string {
	return fmt.Sprintf("%s%s/%s/%s%s%s", Prefix, owner, repo, pathInRepo, refDelim, ref)
}

// RawURL builds the raw.githubusercontent.com URL for a file at a ref.
func RawURL(owner, repo, pathInRepo, ref string) string {
	return (&url.URL{
		Scheme: "https",
		Host:   RawHost,
		Path:   path.Join("/", owner, repo, ref, pathInRepo),
	}).String()
}

func newGitHubInfo(input, owner, repo, pathInRepo, ref string) Info {
	return Info{
		Input:      input,
		Provider:   ProviderGitHub,
		Canonical:  Canonical(owner, repo, pathInRepo, ref),
		Owner:      owner,
		Repo:       repo,
		PathInRepo: pathInRepo,
		Ref:        ref,
		RawURL:     RawURL(owner, repo, pathInRepo, ref),
		Filename:   path.Base(pathInRepo),
	}
}

// parseShorthand handles 'github:<owner>/<repo>/<path>@<ref>'.
func parseShorthand(s string) (Info, error) {
	content := strings.TrimPrefix(s, Prefix)

	idx := strings.LastIndex(content, refDelim)
	if idx == -1 {
		return Info{}, fmt.Errorf("%w: '%s': missing '@<ref>' (e.g. @main or @<commit>)", errs.ErrSourceResolution, s)
	}

	ref := content[idx+len(refDelim):]
	parts := strings.Split(content[:idx], "/")
	if ref == "" || len(parts) < 3 {
		return Info{}, fmt.Errorf(
			"%w: '%s': expected 'github:<owner>/<repo>/<path>@<ref>'",
			errs.ErrSourceResolution,
			s,
		)
	}

	return fromSegments(s, parts[0], parts[1], parts[2:], ref)
}

// parseGitHubPage handles github.com URLs. Only file blobs can be resolved.
func parseGitHubPage(s string, u *url.URL) (Info, error) {
	parts := splitPath(u.Path)
	if len(parts) < 2 {
		return Info{}, fmt.Errorf("%w: '%s': expected at least /<owner>/<repo>", errs.ErrSourceResolution, s)
	}

	owner, repo := parts[0], parts[1]
	if len(parts) == 2 {
		return Info{}, fmt.Errorf("%w: '%s': repository page is not a file", errs.ErrSourceResolution, s)
	}

	switch parts[2] {
	case "blob", "raw":
		if len(parts) < 5 {
			return Info{}, fmt.Errorf(
				"%w: '%s': expected /<owner>/<repo>/%s/<ref>/<path>",
				errs.ErrSourceResolution,
				s,
				parts[2],
			)
		}
		return fromSegments(s, owner, repo, parts[4:], parts[3])
	case "tree":
		return Info{}, fmt.Errorf("%w: '%s': directory trees are not single files", errs.ErrSourceResolution, s)
	}

	rest := strings.Join(parts[2:], "/")
	idx := strings.LastIndex(rest, refDelim)
	if idx <= 0 || idx == len(rest)-len(refDelim) {
		return Info{}, fmt.Errorf(
			"%w: '%s': not a file blob; use a /blob/<ref>/ URL or append '@<ref>'",
			errs.ErrSourceResolution,
			s,
		)
	}

	return fromSegments(s, owner, repo, strings.Split(rest[:idx], "/"), rest[idx+len(refDelim):])
}

// parseRaw handles raw.githubusercontent.com/<owner>/<repo>/<ref>/<path>.
func parseRaw(s string, u *url.URL) (Info, error) {
	parts := splitPath(u.Path)
	if len(parts) < 4 {
		return Info{}, fmt.Errorf(
			"%w: '%s': expected /<owner>/<repo>/<ref>/<path>",
			errs.ErrSourceResolution,
			s,
		)
	}

	return fromSegments(s, parts[0], parts[1], parts[3:], parts[2])
}

// parseOpaque accepts any other URL that appears to name a file.
func parseOpaque(s string, u *url.URL) (Info, error) {
	name := path.Base(strings.TrimRight(u.Path, "/"))
	if name == "." || name == "/" || name == "" {
		return Info{}, fmt.Errorf("%w: '%s': URL does not name a file", errs.ErrSourceResolution, s)
	}

	return Info{
		Input:    s,
		Provider: ProviderURL,
		RawURL:   s,
		Filename: name,
	}, nil
}

func fromSegments(input, owner, repo string, pathSegments []string, ref string) (Info, error) {
	for _, seg := range pathSegments {
		if seg == "" || seg == "." || seg == ".." {
			return Info{}, fmt.Errorf("%w: '%s': invalid path in repository", errs.ErrSourceResolution, input)
		}
	}

	if owner == "" || repo == "" || ref == "" || len(pathSegments) == 0 {
		return Info{}, fmt.Errorf(
			"%w: '%s': owner, repo, path and ref must all be non-empty",
			errs.ErrSourceResolution,
			input,
		)
	}

	return newGitHubInfo(input, owner, repo, strings.Join(pathSegments, "/"), ref), nil
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
