package sync

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when the API has no record for the requested id.
	// It is the expected result for a record that has never been imported.
	ErrNotFound = errors.New("not found")

	// ErrSkipRecord marks a source record the mappers chose not to import.
	ErrSkipRecord = errors.New("record skipped")

	ErrUnknownCategory  = fmt.Errorf("unknown category: %w", ErrSkipRecord)
	ErrExcludedCategory = fmt.Errorf("excluded category: %w", ErrSkipRecord)
	ErrMissingEmail     = fmt.Errorf("missing email: %w", ErrSkipRecord)
	ErrBounced          = fmt.Errorf("bounced email: %w", ErrSkipRecord)
)

// ValidationError is returned when the API rejects a write with 422.
// Issues holds the per-field messages, e.g. {"path": "value '/foo' is not unique"}.
type ValidationError struct {
	Resource string
	Issues   map[string]interface{}
}

func (e *ValidationError) Error() string {
	var parts []string
	for k, v := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %v", k, v))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s: validation error", e.Resource)
	}
	return fmt.Sprintf("%s: validation error (%s)", e.Resource, strings.Join(parts, "; "))
}

// ConcurrencyError is returned when a patch is sent with a stale etag (412).
type ConcurrencyError struct {
	Resource string
	ID       string
	Etag     string
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("%s/%s: precondition failed for etag %q", e.Resource, e.ID, e.Etag)
}

// RateLimitPause describes a pause imposed by a low remaining quota.
// It is logged rather than returned to callers.
type RateLimitPause struct {
	Remaining int
	Delay     time.Duration
}

func (e *RateLimitPause) Error() string {
	return fmt.Sprintf("rate limit: %d requests remaining, pausing for %s", e.Remaining, e.Delay)
}

// PageFetchError aborts a whole pass.
type PageFetchError struct {
	Source string
	Path   string
	Err    error
}

func (e *PageFetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s page %s: %v", e.Source, e.Path, e.Err)
}

func (e *PageFetchError) Unwrap() error {
	return e.Err
}

// MailingRejectedError is returned when the mailing platform permanently
// refuses an address (any 4xx response).
type MailingRejectedError struct {
	Email      string
	StatusCode int
	Body       string
}

func (e *MailingRejectedError) Error() string {
	return fmt.Sprintf("mailing rejected %s with status %d: %s", e.Email, e.StatusCode, e.Body)
}

// APIError covers any other unexpected status code.
type APIError struct {
	Resource   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Resource, e.StatusCode, e.Body)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsConcurrencyConflict(err error) bool {
	var c *ConcurrencyError
	return errors.As(err, &c)
}

func IsSkip(err error) bool {
	return errors.Is(err, ErrSkipRecord)
}

func IsMailingRejected(err error) bool {
	var m *MailingRejectedError
	return errors.As(err, &m)
}
