// Package rca orchestrates root-cause analysis generation for closed
// correlation groups: historical-context retrieval, prompt assembly, bounded
// model invocation, structured-output parsing and confidence scoring.
package rca

import (
	"errors"
	"fmt"
)

// ErrGenerationInProgress rejects a second concurrent generation request for
// the same group. The caller may retry once the in-flight generation
// finishes; this is a concurrency guard, not a failure.
var ErrGenerationInProgress = errors.New("RCA generation already in progress for this group")

// ErrRCANotFound reports that no RCA exists for a referenced UUID
var ErrRCANotFound = errors.New("RCA not found")

// InvalidStateError reports an operation against a group or RCA in the wrong
// lifecycle state
type InvalidStateError struct {
	GroupUUID string
	Reason    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state for group %s: %s", e.GroupUUID, e.Reason)
}

// GenerationTimeoutError reports that all model attempts exceeded the
// generation deadline
type GenerationTimeoutError struct {
	Cause error
}

func (e *GenerationTimeoutError) Error() string {
	return fmt.Sprintf("RCA generation timed out: %v", e.Cause)
}

func (e *GenerationTimeoutError) Unwrap() error { return e.Cause }

// ModelUnavailableError reports that the model endpoint stayed unreachable
// through all retries
type ModelUnavailableError struct {
	Cause error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable: %v", e.Cause)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Cause }

// MalformedResponseError reports that the model output did not parse into
// the required narrative structure even after the strict retry. RawResponse
// preserves the model's text for operator inspection.
type MalformedResponseError struct {
	RawResponse string
	Cause       error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("model response did not parse into RCA narrative: %v", e.Cause)
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }
