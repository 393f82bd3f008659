package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a navigation-cycle failure the engine cannot absorb
// through a corrective redirect.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Token identifies the affected navigation.
	Token string

	// URL is the location being processed.
	URL string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeGuardLoop indicates a guard fallback equal to the in-flight target.
	ErrCodeGuardLoop RuntimeErrorCode = "GUARD_LOOP"

	// ErrCodeRedirectCycle indicates a redirect chain revisited a target.
	ErrCodeRedirectCycle RuntimeErrorCode = "REDIRECT_CYCLE"

	// ErrCodeRedirectQuota indicates a redirect chain exceeded its hop limit.
	ErrCodeRedirectQuota RuntimeErrorCode = "REDIRECT_QUOTA"

	// ErrCodeNoRoute indicates a navigation event without route nodes.
	ErrCodeNoRoute RuntimeErrorCode = "NO_ROUTE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Token != "" && e.URL != "":
		msg += fmt.Sprintf(" (navigation=%s, url=%s)", e.Token, e.URL)
	case e.URL != "":
		msg += fmt.Sprintf(" (url=%s)", e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsGuardLoop reports whether err is a guard self-navigation failure.
func IsGuardLoop(err error) bool {
	return hasCode(err, ErrCodeGuardLoop)
}

// IsRedirectCycle reports whether err is a redirect cycle failure.
func IsRedirectCycle(err error) bool {
	return hasCode(err, ErrCodeRedirectCycle)
}

// IsQuotaError reports whether err is a redirect quota failure.
// Matches both RuntimeError with ErrCodeRedirectQuota and HopsExceededError.
func IsQuotaError(err error) bool {
	if hasCode(err, ErrCodeRedirectQuota) {
		return true
	}
	return IsHopsExceededError(err)
}

// IsNoRoute reports whether err is a missing route failure.
func IsNoRoute(err error) bool {
	return hasCode(err, ErrCodeNoRoute)
}

// NewGuardLoopError wraps a guard loop failure.
func NewGuardLoopError(url string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeGuardLoop,
		Message: "guard fallback targets the navigation in flight",
		URL:     url,
		Err:     cause,
	}
}

// NewCycleError creates a RuntimeError for a repeated redirect target.
func NewCycleError(token, url, target string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeRedirectCycle,
		Message: "redirect chain requested the same target twice",
		Token:   token,
		URL:     url,
		Details: map[string]string{"target": target},
	}
}

// NewQuotaError creates a RuntimeError for an exceeded hop quota.
func NewQuotaError(token, url string, cause *HopsExceededError) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeRedirectQuota,
		Message: fmt.Sprintf("redirect chain exceeded max hops (%d > %d)", cause.Hops, cause.Limit),
		Token:   token,
		URL:     url,
		Details: map[string]string{
			"hops":     fmt.Sprintf("%d", cause.Hops),
			"max_hops": fmt.Sprintf("%d", cause.Limit),
		},
		Err: cause,
	}
}

// NewNoRouteError creates a RuntimeError for an event without route nodes.
func NewNoRouteError(url string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNoRoute,
		Message: "navigation event carries no route nodes",
		URL:     url,
	}
}
