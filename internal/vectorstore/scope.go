package vectorstore

import "fmt"

// Scope identifies whose data a request may touch.
//
// TenantID is the owning user or organization; Key is the retrieval
// partition value recorded on every record and filtered on every search.
// They are distinct fields on purpose: authentication identity and data
// partitioning are different concerns even when deployments set them to the
// same value.
type Scope struct {
	TenantID string
	Key      string
}

// Validate checks that both fields are present. Fail closed: a search with
// an incomplete scope is rejected, never silently broadened.
func (s Scope) Validate() error {
	if s.TenantID == "" {
		return &ScopeError{Reason: "tenant id required"}
	}
	if s.Key == "" {
		return &ScopeError{Reason: "scope key required"}
	}
	return nil
}

// payloadScopeKey is the payload/metadata field searched on.
const payloadScopeKey = "scope_key"

// Filter returns the metadata filter enforcing this scope.
func (s Scope) Filter() map[string]string {
	return map[string]string{payloadScopeKey: s.Key}
}

// ScopeError wraps ErrInvalidScope with a reason.
type ScopeError struct {
	Reason string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidScope, e.Reason)
}

func (e *ScopeError) Unwrap() error { return ErrInvalidScope }

// DimensionError wraps ErrDimensionMismatch with batch position detail.
type DimensionError struct {
	Index int
	Got   int
	Want  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: record %d has %d dimensions, index expects %d", ErrDimensionMismatch, e.Index, e.Got, e.Want)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }
