package integrity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	errs "github.com/nightconcept/almandine/internal/errors"
)

const (
	sha256ABC = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	sha512ABC = "ddaf35a193617abacc417349ae20413112e6fa4e89a97ea20a9eeee64b55d39a" +
		"2192992a274fc1a836ba3c23a3feebbd454d4423643ce80e2a9ac94fa54ca49f"
	sha256Empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "dep.lua")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestParseHash(t *testing.T) {
	t.Parallel()

	commit := strings.Repeat("a", 40)

	tests := []struct {
		name    string
		input   string
		want    Hash
		wantErr string
	}{
		{
			name:  "commit",
			input: "commit:" + commit,
			want:  Hash{Kind: KindCommit, Value: commit},
		},
		{
			name:  "commit upper case is normalized",
			input: "commit:" + strings.ToUpper(commit),
			want:  Hash{Kind: KindCommit, Value: commit},
		},
		{
			name:  "sha256",
			input: "sha256:" + sha256ABC,
			want:  Hash{Kind: KindContent, Algorithm: SHA256, Value: sha256ABC},
		},
		{
			name:  "sha512",
			input: "sha512:" + sha512ABC,
			want:  Hash{Kind: KindContent, Algorithm: SHA512, Value: sha512ABC},
		},
		{
			name:    "missing tag",
			input:   sha256ABC,
			wantErr: "must have the form",
		},
		{
			name:    "unknown tag",
			input:   "md5:abc",
			wantErr: "unknown tag 'md5'",
		},
		{
			name:    "short commit",
			input:   "commit:abc123",
			wantErr: "40 hexadecimal characters",
		},
		{
			name:    "sha256 wrong length",
			input:   "sha256:" + sha256ABC[:10],
			wantErr: "must be 64 hexadecimal characters",
		},
		{
			name:    "sha256 with a 40 hex value is not a commit",
			input:   "sha256:" + commit,
			wantErr: "must be 64 hexadecimal characters",
		},
		{
			name:    "non hex digest",
			input:   "sha256:" + strings.Repeat("z", 64),
			wantErr: "not hexadecimal",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseHash(tc.input)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestHash_StringRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{
		"commit:" + strings.Repeat("0", 40),
		"sha256:" + sha256ABC,
		"sha512:" + sha512ABC,
	} {
		h, err := ParseHash(s)
		require.NoError(t, err)
		require.Equal(t, s, h.String())
		require.NotEqual(t, h.IsCommit(), h.IsContent())
	}

	require.Empty(t, Hash{}.String())
}

func TestParseAlgorithm(t *testing.T) {
	t.Parallel()

	a, err := ParseAlgorithm(" SHA512 ")
	require.NoError(t, err)
	require.Equal(t, SHA512, a)

	_, err = ParseAlgorithm("md5")
	require.EqualError(t, err, "unsupported hash algorithm 'md5' (supported: sha256, sha512)")
	require.Equal(t, "sha256|sha512", JoinAlgorithms("|"))
}

func TestHashFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		algo    Algorithm
		content string
		want    string
	}{
		{name: "sha256 abc", algo: SHA256, content: "abc", want: sha256ABC},
		{name: "sha512 abc", algo: SHA512, content: "abc", want: sha512ABC},
		{name: "sha256 empty", algo: SHA256, content: "", want: sha256Empty},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h, err := HashFile(tc.algo, writeFile(t, tc.content))
			require.NoError(t, err)
			require.Equal(t, Hash{Kind: KindContent, Algorithm: tc.algo, Value: tc.want}, h)
		})
	}
}

func TestHashFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := HashFile(SHA256, filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "failed to open")
}

func TestVerify(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "abc")

	require.NoError(t, Verify(Hash{Kind: KindContent, Algorithm: SHA256, Value: sha256ABC}, p))
	require.NoError(t, Verify(Hash{Kind: KindContent, Algorithm: SHA512, Value: sha512ABC}, p))

	err := Verify(Hash{Kind: KindContent, Algorithm: SHA256, Value: sha256Empty}, p)
	require.ErrorIs(t, err, errs.ErrIntegrity)
	require.ErrorContains(t, err, sha256Empty)
	require.ErrorContains(t, err, sha256ABC)

	err = Verify(Commit(strings.Repeat("a", 40)), p)
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrIntegrity)
}
