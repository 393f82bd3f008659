package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts the corrective redirects issued for one navigation.
//
// Cycle detection catches a chain that revisits a target; the quota catches
// a chain that keeps producing new ones (A -> B -> C -> ...). A healthy
// chain is one hop long, since a canonical target reconciles cleanly.
type QuotaEnforcer struct {
	maxHops int
	current int
}

// NewQuotaEnforcer creates a quota enforcer with the given limit.
func NewQuotaEnforcer(maxHops int) *QuotaEnforcer {
	return &QuotaEnforcer{maxHops: maxHops}
}

// Check counts one hop and fails once the limit is exceeded.
func (q *QuotaEnforcer) Check(token string) error {
	q.current++
	if q.current > q.maxHops {
		return &HopsExceededError{
			Token: token,
			Hops:  q.current,
			Limit: q.maxHops,
		}
	}
	return nil
}

// Current returns the number of hops counted so far.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxHops returns the limit.
func (q *QuotaEnforcer) MaxHops() int {
	return q.maxHops
}

// HopsExceededError is returned when a redirect chain exceeds its quota.
type HopsExceededError struct {
	Token string
	Hops  int
	Limit int
}

func (e *HopsExceededError) Error() string {
	return fmt.Sprintf("navigation %s exceeded redirect quota: %d hops > %d limit",
		e.Token, e.Hops, e.Limit)
}

// IsHopsExceededError reports whether err is a HopsExceededError.
func IsHopsExceededError(err error) bool {
	var he *HopsExceededError
	return errors.As(err, &he)
}
