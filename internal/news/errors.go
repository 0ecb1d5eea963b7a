package news

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an extraction failure for retry purposes.
type ErrorKind string

// Extraction error kinds. Transient failures (timeouts, rate limits) are
// retry-eligible on a later pipeline pass; structural failures (no
// extractable content) require an explicit operator re-trigger.
const (
	KindTransient  ErrorKind = "transient"
	KindStructural ErrorKind = "structural"
)

// ErrNotFound is returned by stores when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ExtractionError is returned by a single strategy attempt.
type ExtractionError struct {
	Method string
	Kind   ErrorKind
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Method, e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Transient reports whether the failure is retry-eligible.
func (e *ExtractionError) Transient() bool { return e.Kind == KindTransient }

// NewTransientError wraps err as a retry-eligible strategy failure.
func NewTransientError(method string, err error) *ExtractionError {
	return &ExtractionError{Method: method, Kind: KindTransient, Err: err}
}

// NewStructuralError wraps err as a non-retryable strategy failure.
func NewStructuralError(method string, err error) *ExtractionError {
	return &ExtractionError{Method: method, Kind: KindStructural, Err: err}
}

// ChainError is the terminal failure returned when every strategy in the
// chain has been exhausted. It carries the full attempt trail.
type ChainError struct {
	Ref   ArticleReference
	Trail []MethodAttempt
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("all %d extraction strategies failed for %s", len(e.Trail), e.Ref.URL)
}

// Retryable reports whether a later pipeline pass may re-run the whole
// chain: true when any attempt in this pass failed transiently, since a
// transient failure may have masked a strategy that would have succeeded.
func (e *ChainError) Retryable() bool {
	for _, a := range e.Trail {
		if a.ErrorKind == KindTransient {
			return true
		}
	}
	return false
}

// AdapterError is a vector-store call failure. Retry-eligible up to the
// configured sync attempt ceiling.
type AdapterError struct {
	Store string
	Op    string
	Err   error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("vector store %s: %s: %v", e.Store, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// ConsistencyError indicates the dedup store, article store, and sync
// status store disagree about what exists. It is corrupted state, not an
// external failure: callers must abort the current operation and never
// convert it into a ledger or sync-status entry.
type ConsistencyError struct {
	ArticleID string
	Detail    string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation for article %s: %s", e.ArticleID, e.Detail)
}

// IsConsistency reports whether err is (or wraps) a ConsistencyError.
func IsConsistency(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
