package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querystate/internal/ir"
)

func TestSequentialTokens(t *testing.T) {
	g := NewSequentialTokens("")
	assert.Equal(t, "nav-1", g.Generate())
	assert.Equal(t, "nav-2", g.Generate())
	assert.Equal(t, 2, g.Issued())

	g.Reset()
	assert.Equal(t, "nav-1", g.Generate())

	assert.Equal(t, "flow-1", NewSequentialTokens("flow").Generate())
}

func TestRecordingNavigator(t *testing.T) {
	n := &RecordingNavigator{}
	_, ok := n.Last()
	assert.False(t, ok)

	require.NoError(t, n.Navigate(context.Background(), ir.NavigationRequest{Token: "a", Target: "/x"}))
	require.NoError(t, n.Navigate(context.Background(), ir.NavigationRequest{Token: "b", Target: "/y"}))

	last, ok := n.Last()
	require.True(t, ok)
	assert.Equal(t, "/y", last.Target)
	assert.Len(t, n.Take(), 2)
	assert.Empty(t, n.Requests())

	n.Err = errors.New("navigation blocked")
	assert.Error(t, n.Navigate(context.Background(), ir.NavigationRequest{}))
}

func TestMemoryJournal(t *testing.T) {
	j := &MemoryJournal{}
	require.NoError(t, j.WriteCycle(context.Background(), ir.CycleRecord{Seq: 1, Outcome: ir.CycleRedirect}))
	require.NoError(t, j.WriteCycle(context.Background(), ir.CycleRecord{Seq: 2, Outcome: ir.CycleReconciled}))

	assert.Equal(t, []string{ir.CycleRedirect, ir.CycleReconciled}, j.Outcomes())
	assert.Len(t, j.Records(), 2)
}

func TestDemoChain(t *testing.T) {
	root := DemoChain("")
	require.Len(t, root, 1)
	assert.Equal(t, "/", ir.RoutePath(root))

	users := DemoChain("users")
	require.Len(t, users, 2)
	assert.Equal(t, "/users", ir.RoutePath(users))
	assert.True(t, users[1].Config.RemoveUnknown())
}
