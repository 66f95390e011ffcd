package github

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/nightconcept/almandine/internal/errors"
	"github.com/nightconcept/almandine/internal/httputil"
)

const sha = "0123456789abcdef0123456789abcdef01234567"

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithBaseURL(srv.URL), WithRetry(3, 0)}, opts...)
	c, err := NewClient(hclog.NewNullLogger(), opts...)
	require.NoError(t, err)

	return c
}

func TestClient_LatestCommit(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/lib/commits", r.URL.Path)
		assert.Equal(t, "src/util.lua", r.URL.Query().Get("path"))
		assert.Equal(t, "main", r.URL.Query().Get("sha"))
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"sha":"` + sha + `"},{"sha":"older"}]`))
	}, WithToken("secret"))

	got, err := c.LatestCommit(context.Background(), "acme", "lib", "src/util.lua", "main")
	require.NoError(t, err)
	require.Equal(t, sha, got)
}

func TestClient_LatestCommit_DefaultBranchOmitsSHA(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["sha"]
		assert.False(t, present)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"sha":"` + sha + `"}]`))
	})

	got, err := c.LatestCommit(context.Background(), "acme", "lib", "util.lua", "")
	require.NoError(t, err)
	require.Equal(t, sha, got)
}

func TestClient_LatestCommit_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		wantRefErr  bool
		wantErrText string
	}{
		{name: "no commits", status: http.StatusOK, body: `[]`, wantRefErr: true, wantErrText: "no commits found"},
		{name: "not found", status: http.StatusNotFound, body: `{"message":"Not Found"}`, wantRefErr: true, wantErrText: "404"},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, body: `{}`, wantRefErr: true, wantErrText: "422"},
		{name: "forbidden", status: http.StatusForbidden, body: `{}`, wantErrText: "403"},
		{name: "malformed json", status: http.StatusOK, body: `{not json`, wantErrText: "malformed response"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := c.LatestCommit(context.Background(), "acme", "lib", "util.lua", "nope")
			require.Error(t, err)
			require.ErrorContains(t, err, tc.wantErrText)
			require.Equal(t, tc.wantRefErr, errors.Is(err, errs.ErrRefNotFound))
		})
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"sha":"` + sha + `"}]`))
	})

	got, err := c.LatestCommit(context.Background(), "acme", "lib", "util.lua", "main")
	require.NoError(t, err)
	require.Equal(t, sha, got)
	require.EqualValues(t, 3, calls.Load())
}

func TestClient_GivesUpAfterAttempts(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Tags(context.Background(), "acme", "lib")
	require.ErrorIs(t, err, ErrAPI)
	require.True(t, httputil.IsRetryable(err))
	require.EqualValues(t, 3, calls.Load())
}

func TestClient_Tags(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/nightconcept/almandine/tags", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`[{"name":"v0.2.0"},{"name":""},{"name":"v0.1.0"}]`))
	})

	tags, err := c.Tags(context.Background(), "nightconcept", "almandine")
	require.NoError(t, err)
	require.Equal(t, []string{"v0.2.0", "v0.1.0"}, tags)
}

func TestNewOptions(t *testing.T) {
	t.Parallel()

	o, err := NewOptions()
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, o.baseURL)
	require.Equal(t, httputil.DefaultAttempts, o.attempts)

	o, err = NewOptions(WithBaseURL("https://ghe.example.com/api/v3/"), nil)
	require.NoError(t, err)
	require.Equal(t, "https://ghe.example.com/api/v3", o.baseURL)

	_, err = NewOptions(WithBaseURL("not a url"))
	require.ErrorContains(t, err, "invalid GitHub API base URL")

	_, err = NewOptions(WithBaseURL(" "))
	require.ErrorContains(t, err, "cannot be empty")

	_, err = NewOptions(WithRetry(0, 0))
	require.ErrorContains(t, err, "at least 1")

	_, err = NewOptions(WithHTTPClient(nil))
	require.ErrorContains(t, err, "cannot be nil")
}

func TestNewClient_NilLogger(t *testing.T) {
	t.Parallel()

	_, err := NewClient(nil)
	require.ErrorContains(t, err, "logger cannot be nil")
}
