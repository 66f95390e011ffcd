package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDependencyError(t *testing.T) {
	t.Parallel()

	err := DependencyError{Name: "util", Err: fmt.Errorf("%w: status 404", ErrDownload)}

	require.Equal(t, "util: download failed: status 404", err.Error())
	require.ErrorIs(t, err, ErrDownload)
	require.NotErrorIs(t, err, ErrIntegrity)
}

func TestNewInstallError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		failures []DependencyError
		wantNil  bool
		wantMsg  string
		wantIs   []error
	}{
		{
			name:    "no failures",
			wantNil: true,
		},
		{
			name: "single failure",
			failures: []DependencyError{
				{Name: "b", Err: ErrRefNotFound},
			},
			wantMsg: "1 dependency failed: b: ref not found",
			wantIs:  []error{ErrRefNotFound},
		},
		{
			name: "multiple failures",
			failures: []DependencyError{
				{Name: "a", Err: ErrIntegrity},
				{Name: "c", Err: ErrDownload},
			},
			wantMsg: "2 dependencies failed: a: integrity check failed; c: download failed",
			wantIs:  []error{ErrIntegrity, ErrDownload},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := NewInstallError(tc.failures)
			if tc.wantNil {
				require.NoError(t, err)
				return
			}

			require.EqualError(t, err, tc.wantMsg)
			for _, target := range tc.wantIs {
				require.ErrorIs(t, err, target)
			}

			var ie *InstallError
			require.True(t, errors.As(err, &ie))
			require.Len(t, ie.Failures, len(tc.failures))

			var de DependencyError
			require.True(t, errors.As(err, &de))
			require.Equal(t, tc.failures[0].Name, de.Name)
		})
	}
}
