package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleDetector_NewCycleDetector(t *testing.T) {
	cd := NewCycleDetector()
	require.NotNil(t, cd)
	assert.Equal(t, 0, cd.HistorySize())
}

func TestCycleDetector_WouldCycle_FirstOccurrence(t *testing.T) {
	cd := NewCycleDetector()
	assert.False(t, cd.WouldCycle("nav-1", "/?page=1"))
}

func TestCycleDetector_WouldCycle_AfterRecord(t *testing.T) {
	cd := NewCycleDetector()
	cd.Record("nav-1", "/?page=1")

	assert.True(t, cd.WouldCycle("nav-1", "/?page=1"))
	assert.False(t, cd.WouldCycle("nav-1", "/?page=2"), "different target is not a cycle")
	assert.False(t, cd.WouldCycle("nav-2", "/?page=1"), "different navigation is not a cycle")
}

func TestCycleDetector_Clear(t *testing.T) {
	cd := NewCycleDetector()
	cd.Record("nav-1", "/a")
	cd.Record("nav-1", "/b")
	cd.Record("nav-2", "/a")

	assert.Equal(t, 2, cd.HistorySize())
	assert.Equal(t, 2, cd.ChainSize("nav-1"))

	cd.Clear("nav-1")

	assert.False(t, cd.WouldCycle("nav-1", "/a"))
	assert.True(t, cd.WouldCycle("nav-2", "/a"), "clear must not touch other navigations")
	assert.Equal(t, 1, cd.HistorySize())
	assert.Equal(t, 0, cd.ChainSize("nav-1"))
}

func TestNewCycleError(t *testing.T) {
	err := NewCycleError("nav-1", "/?page=x", "/?page=1")

	assert.Equal(t, ErrCodeRedirectCycle, err.Code)
	assert.Equal(t, "/?page=1", err.Details["target"])
	assert.Contains(t, err.Error(), "REDIRECT_CYCLE")
	assert.Contains(t, err.Error(), "navigation=nav-1")
	assert.True(t, IsRedirectCycle(err))
	assert.False(t, IsQuotaError(err))
}
