package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querystate/internal/guard"
)

func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(3)

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Check("nav-1"))
	}
	assert.Equal(t, 3, q.Current())
	assert.Equal(t, 3, q.MaxHops())
}

func TestQuotaEnforcer_ExceedsLimit(t *testing.T) {
	q := NewQuotaEnforcer(1)

	require.NoError(t, q.Check("nav-1"))
	err := q.Check("nav-1")
	require.Error(t, err)

	var he *HopsExceededError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "nav-1", he.Token)
	assert.Equal(t, 2, he.Hops)
	assert.Equal(t, 1, he.Limit)
	assert.Equal(t, "navigation nav-1 exceeded redirect quota: 2 hops > 1 limit", err.Error())
}

func TestQuota_ZeroLimit(t *testing.T) {
	q := NewQuotaEnforcer(0)
	assert.True(t, IsHopsExceededError(q.Check("nav-1")))
}

func TestIsQuotaError(t *testing.T) {
	he := &HopsExceededError{Token: "nav-1", Hops: 9, Limit: 8}

	assert.True(t, IsQuotaError(he))
	assert.True(t, IsQuotaError(NewQuotaError("nav-1", "/", he)))
	assert.True(t, IsQuotaError(fmt.Errorf("wrapped: %w", he)))
	assert.False(t, IsQuotaError(NewNoRouteError("/")))
	assert.False(t, IsQuotaError(errors.New("other")))
}

func TestRuntimeError_Unwrap(t *testing.T) {
	err := NewGuardLoopError("/users", fmt.Errorf("activate guard: %w", guard.ErrLoop))

	assert.True(t, IsGuardLoop(err))
	assert.True(t, errors.Is(err, guard.ErrLoop))
	assert.Contains(t, err.Error(), "GUARD_LOOP")
	assert.Contains(t, err.Error(), "url=/users")
}

func TestNewQuotaError_Details(t *testing.T) {
	err := NewQuotaError("nav-1", "/a", &HopsExceededError{Token: "nav-1", Hops: 9, Limit: 8})

	assert.Equal(t, ErrCodeRedirectQuota, err.Code)
	assert.Equal(t, "9", err.Details["hops"])
	assert.Equal(t, "8", err.Details["max_hops"])
	assert.True(t, IsHopsExceededError(err))
}
