package mesh

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetRootAttachesPendingInOrder(t *testing.T) {
	tree := NewTree(2, nil)

	for _, id := range []string{"a", "b", "c"} {
		d, err := tree.Add(id)
		require.NoError(t, err)
		require.Empty(t, d)
	}
	require.Equal(t, []string{"a", "b", "c"}, tree.Pending())

	d, err := tree.SetRoot("host")
	require.NoError(t, err)
	require.Equal(t, []Directive{
		{Parent: "host", Child: "a"},
		{Parent: "host", Child: "b"},
		{Parent: "a", Child: "c"},
	}, d)
	require.Empty(t, tree.Pending())
	require.NoError(t, tree.Validate())
}

func TestSetRootTwice(t *testing.T) {
	tree := NewTree(2, nil)
	_, err := tree.SetRoot("host")
	require.NoError(t, err)
	_, err = tree.SetRoot("other")
	require.ErrorIs(t, err, ErrRootOccupied)
}

func TestAddFillsRootThenEarliest(t *testing.T) {
	tree := NewTree(2, nil)
	_, err := tree.SetRoot("host")
	require.NoError(t, err)

	var got []Directive
	for i := 1; i <= 5; i++ {
		d, err := tree.Add(fmt.Sprintf("n%d", i))
		require.NoError(t, err)
		got = append(got, d...)
	}
	require.Equal(t, []Directive{
		{Parent: "host", Child: "n1"},
		{Parent: "host", Child: "n2"},
		{Parent: "n1", Child: "n3"},
		{Parent: "n1", Child: "n4"},
		{Parent: "n2", Child: "n5"},
	}, got)
	require.NoError(t, tree.Validate())
}

func TestAddDuplicate(t *testing.T) {
	tree := NewTree(2, nil)
	_, err := tree.SetRoot("host")
	require.NoError(t, err)
	_, err = tree.Add("host")
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestAddPrefersMeasuredLowLatency(t *testing.T) {
	tree := NewTree(3, nil)
	_, _ = tree.SetRoot("host")
	_, _ = tree.Add("a")
	_, _ = tree.Add("b")
	require.NoError(t, tree.ReportMetrics("a", Metrics{LatencyMs: 80, UploadMbps: 10}))
	require.NoError(t, tree.ReportMetrics("b", Metrics{LatencyMs: 20, UploadMbps: 5}))

	d, err := tree.Add("c")
	require.NoError(t, err)
	require.Equal(t, []Directive{{Parent: "b", Child: "c"}}, d)
}

func TestAddSkipsNodeWithoutUpload(t *testing.T) {
	tree := NewTree(2, nil)
	_, _ = tree.SetRoot("host")
	_, _ = tree.Add("a")
	require.NoError(t, tree.ReportMetrics("a", Metrics{LatencyMs: 5, UploadMbps: 0}))

	d, err := tree.Add("b")
	require.NoError(t, err)
	require.Equal(t, []Directive{{Parent: "host", Child: "b"}}, d)
}

func TestAddTieBreaksOnSpareUpload(t *testing.T) {
	tree := NewTree(3, nil)
	_, _ = tree.SetRoot("host")
	_, _ = tree.Add("a")
	_, _ = tree.Add("b")
	require.NoError(t, tree.ReportMetrics("a", Metrics{LatencyMs: 20, UploadMbps: 4}))
	require.NoError(t, tree.ReportMetrics("b", Metrics{LatencyMs: 20, UploadMbps: 9}))

	d, err := tree.Add("c")
	require.NoError(t, err)
	require.Equal(t, "b", d[0].Parent)
}

func TestRemoveReparentsEachChild(t *testing.T) {
	tree := NewTree(2, nil)
	_, _ = tree.SetRoot("host")
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		_, err := tree.Add(id)
		require.NoError(t, err)
	}
	// host -> a, b ; a -> c, d ; b -> e
	require.Equal(t, []string{"c", "d"}, tree.Children("a"))

	directives, err := tree.Remove("a")
	require.NoError(t, err)
	require.Len(t, directives, 2)
	for _, d := range directives {
		require.NotEqual(t, "a", d.Parent)
		require.NotEqual(t, d.Child, d.Parent)
	}
	require.Equal(t, "c", directives[0].Child)
	require.Equal(t, "d", directives[1].Child)
	require.NoError(t, tree.Validate())
	require.Equal(t, 5, tree.Len())
}

func TestRemoveNeverAttachesIntoOwnSubtree(t *testing.T) {
	tree := NewTree(1, nil)
	_, _ = tree.SetRoot("host")
	for _, id := range []string{"a", "b", "c"} {
		_, _ = tree.Add(id)
	}
	// chain host -> a -> b -> c
	parent, ok := tree.Parent("c")
	require.True(t, ok)
	require.Equal(t, "b", parent)

	directives, err := tree.Remove("a")
	require.NoError(t, err)
	require.Equal(t, []Directive{{Parent: "host", Child: "b"}}, directives)
	require.NoError(t, tree.Validate())
}

func TestRemoveLeafProducesNoDirectives(t *testing.T) {
	tree := NewTree(2, nil)
	_, _ = tree.SetRoot("host")
	_, _ = tree.Add("a")
	d, err := tree.Remove("a")
	require.NoError(t, err)
	require.Empty(t, d)
	require.Empty(t, tree.Children("host"))
}

func TestRemovePendingNode(t *testing.T) {
	tree := NewTree(2, nil)
	_, _ = tree.Add("a")
	_, _ = tree.Add("b")
	_, err := tree.Remove("a")
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, tree.Pending())
}

func TestRemoveRootClearsTree(t *testing.T) {
	tree := NewTree(2, nil)
	_, _ = tree.SetRoot("host")
	_, _ = tree.Add("a")
	d, err := tree.Remove("host")
	require.NoError(t, err)
	require.Empty(t, d)
	require.Equal(t, 0, tree.Len())
	require.Empty(t, tree.Root())
}

func TestRemoveUnknown(t *testing.T) {
	tree := NewTree(2, nil)
	_, err := tree.Remove("ghost")
	require.ErrorIs(t, err, ErrUnknownNode)
}

func TestReroot(t *testing.T) {
	tree := NewTree(2, nil)
	_, _ = tree.SetRoot("provisional")
	_, _ = tree.Add("a")

	d, err := tree.Reroot("verified")
	require.NoError(t, err)
	require.Equal(t, []Directive{{Parent: "verified", Child: "provisional"}}, d)
	require.Equal(t, "verified", tree.Root())
	require.NoError(t, tree.Validate())
}

func TestReportMetricsValidation(t *testing.T) {
	tree := NewTree(2, nil)
	_, _ = tree.SetRoot("host")

	tests := []struct {
		name string
		m    Metrics
		err  error
	}{
		{"valid", Metrics{LatencyMs: 12, UploadMbps: 3}, nil},
		{"zero", Metrics{}, nil},
		{"negative latency", Metrics{LatencyMs: -1}, ErrBadMetrics},
		{"nan upload", Metrics{UploadMbps: math.NaN()}, ErrBadMetrics},
		{"inf latency", Metrics{LatencyMs: math.Inf(1)}, ErrBadMetrics},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tree.ReportMetrics("host", tt.m)
			if tt.err == nil {
				require.NoError(t, err)
				got, ok := tree.Metrics("host")
				require.True(t, ok)
				require.Equal(t, tt.m, got)
				return
			}
			require.ErrorIs(t, err, tt.err)
		})
	}

	require.ErrorIs(t, tree.ReportMetrics("ghost", Metrics{}), ErrUnknownNode)
}

func TestCustomStrategyFallsBackToRoot(t *testing.T) {
	s := StrategyFunc(func(Snapshot, map[string]Metrics, []string) (string, bool) {
		return "nowhere", true
	})
	tree := NewTree(2, s)
	_, _ = tree.SetRoot("host")
	d, err := tree.Add("a")
	require.NoError(t, err)
	require.Equal(t, "host", d[0].Parent)
}

func TestTreeStaysConnectedUnderChurn(t *testing.T) {
	tree := NewTree(2, nil)
	_, _ = tree.SetRoot("host")
	for i := 0; i < 30; i++ {
		_, err := tree.Add(fmt.Sprintf("n%d", i))
		require.NoError(t, err)
		if i%3 == 0 {
			require.NoError(t, tree.ReportMetrics(fmt.Sprintf("n%d", i), Metrics{LatencyMs: float64(i % 7), UploadMbps: float64(i % 5)}))
		}
	}
	for i := 0; i < 30; i += 4 {
		_, err := tree.Remove(fmt.Sprintf("n%d", i))
		require.NoError(t, err)
		require.NoError(t, tree.Validate())
	}
}
