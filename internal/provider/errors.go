// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider implements clients for the external bibliographic search
// and citation-metrics services.
// Implements: prd010-orchestration (R2.1-R2.5);
//
//	docs/ARCHITECTURE § Provider Contracts.
package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// TransientError marks a provider failure worth retrying: network errors,
// rate limiting, and server-side errors.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient provider error: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a rejected query (e.g. malformed syntax). The query
// is failed immediately and surfaced to the caller for correction.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return fmt.Sprintf("permanent provider error: %v", e.Err) }
func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// statusError classifies an HTTP status into the error taxonomy. Client
// errors other than 429 are permanent; everything else is transient.
func statusError(status int, body string) error {
	err := fmt.Errorf("provider returned HTTP %d: %s", status, body)
	if status == http.StatusTooManyRequests || status >= 500 {
		return &TransientError{Err: err}
	}
	if status >= 400 {
		return &PermanentError{Err: err}
	}
	return &TransientError{Err: err}
}
