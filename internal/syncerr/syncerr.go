// Package syncerr defines the error taxonomy for the sync engine. Every
// failure inside a cycle is classified here so that the engine can decide
// between aborting the cycle (source unavailable), enqueueing a retry
// (delivery failures) and silently dropping (validation rejections) — nothing
// is ever allowed to crash the scheduler.
package syncerr

import (
	"errors"
	"fmt"
)

// SourceError wraps a ReceiptSource failure (database/adapter unreachable).
// It aborts the whole cycle without touching the cursor; the next scheduler
// tick retries naturally.
type SourceError struct {
	Op  string // "fetch_recent", "fetch_items", "fetch_single"
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("receipt source %s: %v", e.Op, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// NewSourceError wraps err as a cycle-aborting source failure.
func NewSourceError(op string, err error) *SourceError {
	return &SourceError{Op: op, Err: err}
}

// IsSourceError reports whether err is (or wraps) a SourceError.
func IsSourceError(err error) bool {
	var se *SourceError
	return errors.As(err, &se)
}

// DeliveryClass classifies a failed delivery attempt.
type DeliveryClass string

const (
	// DeliveryNetwork — no response received (connection refused, timeout).
	DeliveryNetwork DeliveryClass = "network"
	// DeliveryHTTP — the ledger answered with a non-2xx status.
	DeliveryHTTP DeliveryClass = "http"
	// DeliveryRequest — the request could not be constructed client-side.
	DeliveryRequest DeliveryClass = "request"
)

// DeliveryError is a classified delivery failure. Always retryable via the
// retry queue, up to the configured attempt ceiling.
type DeliveryError struct {
	Class  DeliveryClass
	Status int    // HTTP status, when Class == DeliveryHTTP
	Body   string // response body excerpt, when available
	Err    error
}

func (e *DeliveryError) Error() string {
	switch e.Class {
	case DeliveryHTTP:
		return fmt.Sprintf("delivery http error: status %d: %s", e.Status, e.Body)
	case DeliveryNetwork:
		return fmt.Sprintf("delivery network error: %v", e.Err)
	default:
		return fmt.Sprintf("delivery request error: %v", e.Err)
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// AsDeliveryError extracts a DeliveryError from err, if present.
func AsDeliveryError(err error) (*DeliveryError, bool) {
	var de *DeliveryError
	ok := errors.As(err, &de)
	return de, ok
}

// RejectReason names why the filter dropped a receipt group. Rejections are
// logged, not errors: they never abort a cycle and never enter the retry queue.
type RejectReason string

const (
	ReasonInvalidPrefix      RejectReason = "invalid-prefix"
	ReasonBeforeCutoff       RejectReason = "before-cutoff"
	ReasonDedupCheckFailed   RejectReason = "dedup-check-failed"
	ReasonMalformedReceiptNo RejectReason = "malformed-receipt-no"
)
