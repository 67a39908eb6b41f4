package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReporterHasErrorsOnlyOnError(t *testing.T) {
	var r Reporter
	require.False(t, r.HasErrors())

	r.Warn(WarnInlineSizeExceedsLimit, "a.fidl", 1, 1, "large")
	require.False(t, r.HasErrors(), "warnings alone must not fail compilation")

	r.Error(ErrUnexpectedToken, "a.fidl", 2, 1, "bad token")
	require.True(t, r.HasErrors())
}

func TestReporterNeverDedupes(t *testing.T) {
	var r Reporter
	r.Error(ErrDuplicateName, "a.fidl", 1, 1, "duplicate Foo")
	r.Error(ErrDuplicateName, "a.fidl", 1, 1, "duplicate Foo")

	require.Len(t, r.Diagnostics(), 2, "identical diagnostics must both be kept")
	require.Len(t, r.Sorted(), 2)
}

func TestReporterSortedOrdersByLocationThenCode(t *testing.T) {
	var r Reporter
	r.Error(ErrDuplicateName, "z.fidl", 2, 3, "z")
	r.Error(ErrUnresolvedIdentifier, "a.fidl", 2, 3, "b")
	r.Error(ErrDuplicateName, "a.fidl", 1, 1, "b")
	r.Error(ErrDuplicateName, "a.fidl", 2, 1, "b")

	got := r.Sorted()
	require.Len(t, got, 4)
	require.Equal(t, "a.fidl", got[0].File)
	require.Equal(t, 1, got[0].Line)
	require.Equal(t, "z.fidl", got[len(got)-1].File)
}

func TestReporterRelated(t *testing.T) {
	var r Reporter
	r.ErrorRelated(ErrDuplicateName, "a.fidl", 5, 1, "duplicate Foo", Related{
		File: "a.fidl", Line: 1, Column: 1, Message: "first declared here",
	})
	got := r.Diagnostics()
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Related)
	require.Equal(t, 1, got[0].Related.Line)
}
