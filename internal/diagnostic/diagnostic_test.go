package diagnostic

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortByLine(t *testing.T) {
	diags := []Diagnostic{
		{Line: 0, RawMessage: "unknown-1"},
		{Line: 7, RawMessage: "seven"},
		{Line: 2, RawMessage: "two-a"},
		{Line: 0, RawMessage: "unknown-2"},
		{Line: 2, RawMessage: "two-b"},
	}
	SortByLine(diags)

	var got []string
	for _, d := range diags {
		got = append(got, d.RawMessage)
	}
	want := []string{"two-a", "two-b", "seven", "unknown-1", "unknown-2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestLineString(t *testing.T) {
	assert.Equal(t, "?", Diagnostic{}.LineString())
	assert.Equal(t, "12", Diagnostic{Line: 12}.LineString())
}

func TestFailedNeverEmpty(t *testing.T) {
	res := Failed()
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, InternalError, res.Diagnostics[0].Kind)
	assert.False(t, res.IsSuccess())
}

func TestFailedCopiesInput(t *testing.T) {
	in := []Diagnostic{{Kind: LintIssue, Line: 1}}
	res := Failed(in...)
	in[0].Line = 99
	assert.Equal(t, 1, res.Diagnostics[0].Line)
}

func TestSuccess(t *testing.T) {
	res := Success("ok")
	assert.True(t, res.IsSuccess())
	assert.Equal(t, "ok", res.Output)
	assert.Empty(t, res.Diagnostics)
}

func TestResultKinds(t *testing.T) {
	res := Failed(
		Diagnostic{Kind: LintIssue},
		Diagnostic{Kind: LintIssue},
		Diagnostic{Kind: InternalError},
	)
	assert.Equal(t, []Kind{LintIssue, InternalError}, res.Kinds())
}
