// Package integrity parses, computes and verifies the hash values recorded in the lockfile.
//
// A lockfile hash is tagged: 'commit:<40 hex>' pins a dependency to an immutable Git commit,
// while 'sha256:<64 hex>' and 'sha512:<128 hex>' pin the exact bytes written to disk.
// The tag prefix alone decides how a value is interpreted.
package integrity

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	errs "github.com/nightconcept/almandine/internal/errors"
)

// Kind distinguishes a commit pin from a content pin.
type Kind string

// Algorithm is a supported content digest algorithm.
type Algorithm string

const (
	KindCommit  Kind = "commit"
	KindContent Kind = "content"
)

const (
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"

	// DefaultAlgorithm is used for new content pins unless configured otherwise.
	DefaultAlgorithm = SHA256
)

const separator = ":"

var commitPattern = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// Hash is a parsed lockfile hash value.
// Algorithm is empty for commit pins.
type Hash struct {
	Kind      Kind
	Algorithm Algorithm
	Value     string
}

// Algorithms returns the supported content digest algorithms.
func Algorithms() []Algorithm {
	return []Algorithm{SHA256, SHA512}
}

// ParseAlgorithm parses a case-insensitive algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Algorithms(), a) {
		return "", fmt.Errorf("unsupported hash algorithm '%s' (supported: %s)", s, JoinAlgorithms(", "))
	}
	return a, nil
}

// JoinAlgorithms lists the supported algorithms separated by sep.
func JoinAlgorithms(sep string) string {
	names := make([]string, 0, len(Algorithms()))
	for _, a := range Algorithms() {
		names = append(names, a.String())
	}
	return strings.Join(names, sep)
}

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	return string(a)
}

func (a Algorithm) hexLen() int {
	switch a {
	case SHA256:
		return sha256.Size * 2
	case SHA512:
		return sha512.Size * 2
	default:
		return 0
	}
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm '%s'", a)
	}
}

// Commit returns a commit pin for the given commit SHA.
func Commit(sha string) Hash {
	return Hash{Kind: KindCommit, Value: strings.ToLower(sha)}
}

// ParseHash parses a tagged lockfile hash value.
func ParseHash(s string) (Hash, error) {
	tag, value, ok := strings.Cut(strings.TrimSpace(s), separator)
	if !ok || value == "" {
		return Hash{}, fmt.Errorf("hash '%s' must have the form '<tag>:<value>'", s)
	}

	if tag == string(KindCommit) {
		if !commitPattern.MatchString(value) {
			return Hash{}, fmt.Errorf("commit hash '%s' must be 40 hexadecimal characters", value)
		}
		return Commit(value), nil
	}

	algo, err := ParseAlgorithm(tag)
	if err != nil {
		return Hash{}, fmt.Errorf("hash '%s' has unknown tag '%s'", s, tag)
	}

	value = strings.ToLower(value)
	if len(value) != algo.hexLen() {
		return Hash{}, fmt.Errorf("%s digest must be %d hexadecimal characters, got %d", algo, algo.hexLen(), len(value))
	}
	if _, err := hex.DecodeString(value); err != nil {
		return Hash{}, fmt.Errorf("%s digest is not hexadecimal: %w", algo, err)
	}

	return Hash{Kind: KindContent, Algorithm: algo, Value: value}, nil
}

// IsCommit reports whether h pins a commit.
func (h Hash) IsCommit() bool {
	return h.Kind == KindCommit
}

// IsContent reports whether h pins file content.
func (h Hash) IsContent() bool {
	return h.Kind == KindContent
}

// String returns the tagged representation stored in the lockfile.
func (h Hash) String() string {
	switch h.Kind {
	case KindCommit:
		return string(KindCommit) + separator + h.Value
	case KindContent:
		return string(h.Algorithm) + separator + h.Value
	default:
		return ""
	}
}

// HashReader digests everything read from r.
func HashReader(algo Algorithm, r io.Reader) (Hash, error) {
	hh, err := algo.newHash()
	if err != nil {
		return Hash{}, err
	}

	if _, err := io.Copy(hh, r); err != nil {
		return Hash{}, fmt.Errorf("failed to read content for hashing: %w", err)
	}

	return Hash{Kind: KindContent, Algorithm: algo, Value: hex.EncodeToString(hh.Sum(nil))}, nil
}

// HashFile digests the bytes of path exactly as they are on disk.
func HashFile(algo Algorithm, path string) (Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return Hash{}, fmt.Errorf("failed to open '%s' for hashing: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	return HashReader(algo, f)
}

// Verify recomputes the digest of path with the algorithm of expected and compares it.
// A mismatch returns an error wrapping ErrIntegrity which names both digests.
func Verify(expected Hash, path string) error {
	if !expected.IsContent() {
		return fmt.Errorf("cannot verify file content against '%s'", expected)
	}

	actual, err := HashFile(expected.Algorithm, path)
	if err != nil {
		return err
	}

	if actual.Value != expected.Value {
		return fmt.Errorf("%w: expected %s, got %s", errs.ErrIntegrity, expected, actual)
	}

	return nil
}
