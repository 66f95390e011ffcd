package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestYAMLHandler_HandleResults(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	h := NewYAMLHandler[lockedDep](buf, 2)
	require.Equal(t, buf, h.Writer())

	err := h.HandleResults(
		lockedDep{Name: "json", Path: "src/lib/json.lua"},
		lockedDep{Name: "util", Path: "vendor/util.lua"},
	)
	require.NoError(t, err)

	expected := "results:\n" +
		"  - name: json\n" +
		"    path: src/lib/json.lua\n" +
		"  - name: util\n" +
		"    path: vendor/util.lua\n"
	require.Equal(t, expected, buf.String())
}

func TestYAMLHandler_HandleResult(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	h := NewYAMLHandler[lockedDep](buf, 2)

	require.NoError(t, h.HandleResult(lockedDep{Name: "a", Path: "a.lua"}))
	require.Equal(t, "result:\n  name: a\n  path: a.lua\n", buf.String())
}

func TestYAMLHandler_HandleError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  string
		want string
	}{
		{name: "message", msg: "lockfile is corrupt", want: "error: lockfile is corrupt\n"},
		{name: "empty message", msg: "", want: "error: \"\"\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buf := &bytes.Buffer{}
			h := NewYAMLHandler[lockedDep](buf, 4)
			require.NoError(t, h.HandleError(errors.New(tc.msg)))
			require.Equal(t, tc.want, buf.String())
		})
	}
}
