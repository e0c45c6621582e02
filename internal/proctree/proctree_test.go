package proctree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testSnapshot() Snapshot {
	return Snapshot{
		1:   {PID: 1, PPID: 0, Name: "init"},
		100: {PID: 100, PPID: 1, Name: "shell"},
		200: {PID: 200, PPID: 100, Name: "app"},
		201: {PID: 201, PPID: 200, Name: "app-worker"},
		202: {PID: 202, PPID: 200, Name: "app-render"},
		300: {PID: 300, PPID: 1, Name: "unrelated"},
	}
}

func TestDescendantsIncludesRoot(t *testing.T) {
	got := testSnapshot().Descendants(300)
	require.Equal(t, map[int32]struct{}{300: {}}, got)
}

func TestDescendantsWholeSubtree(t *testing.T) {
	got := testSnapshot().Descendants(200)
	require.Equal(t, map[int32]struct{}{200: {}, 201: {}, 202: {}}, got)
}

func TestDescendantsTransitive(t *testing.T) {
	got := testSnapshot().Descendants(100)
	require.Len(t, got, 4)
	require.Contains(t, got, int32(201))
	require.NotContains(t, got, int32(300))
}

func TestDescendantsUnknownRoot(t *testing.T) {
	// A pid missing from the table still counts as its own subtree.
	got := testSnapshot().Descendants(999)
	require.Equal(t, map[int32]struct{}{999: {}}, got)
}

func TestDescendantsParentCycle(t *testing.T) {
	snap := Snapshot{
		10: {PID: 10, PPID: 20, Name: "a"},
		20: {PID: 20, PPID: 10, Name: "b"},
	}
	got := snap.Descendants(10)
	require.Equal(t, map[int32]struct{}{10: {}, 20: {}}, got)
}

func TestAncestryChain(t *testing.T) {
	chain := testSnapshot().Ancestry(201)
	var pids []int32
	for _, p := range chain {
		pids = append(pids, p.PID)
	}
	require.Equal(t, []int32{201, 200, 100, 1}, pids)
}

func TestAncestryUnknownPID(t *testing.T) {
	require.Empty(t, testSnapshot().Ancestry(999))
}

func TestAncestryCycleTerminates(t *testing.T) {
	snap := Snapshot{
		10: {PID: 10, PPID: 20, Name: "a"},
		20: {PID: 20, PPID: 10, Name: "b"},
	}
	chain := snap.Ancestry(10)
	require.Len(t, chain, 2)
}
