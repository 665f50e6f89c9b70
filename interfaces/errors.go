package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionBusy is returned when a signing flow is started while another
	// flow of the same session is still unresolved.
	ErrSessionBusy = errors.New("signing session already has a flow in progress")

	// ErrDIDNotFound is returned when the chain has no document for a DID.
	ErrDIDNotFound = errors.New("did document not found")

	// ErrRoomNotFound is returned when a room alias does not resolve.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNotRoomMember is returned when the server refuses a room query
	// because the user has not joined the room.
	ErrNotRoomMember = errors.New("not a member of the room")

	// ErrEventNotFound is returned when a transaction did not emit the
	// requested event attribute.
	ErrEventNotFound = errors.New("event attribute not found")
)

// ConfigurationError reports a missing precondition, such as a required
// setting or the output of a step that has not run. It is always a caller bug
// and is never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration error: %s is required", e.Field)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError creates a ConfigurationError for a missing field.
func NewConfigurationError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// ConflictError reports that a resource already exists.
type ConflictError struct {
	Resource string
	ID       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Resource, e.ID)
}

// RemoteSigningReason tells callers why a remote signing flow ended.
type RemoteSigningReason int

const (
	// ReasonChannelFailure covers transport and server side failures.
	ReasonChannelFailure RemoteSigningReason = iota
	// ReasonUserDeclined means the human rejected the request on the device.
	ReasonUserDeclined
	// ReasonCancelled means the caller cancelled the wait.
	ReasonCancelled
)

func (r RemoteSigningReason) String() string {
	switch r {
	case ReasonUserDeclined:
		return "user declined"
	case ReasonCancelled:
		return "cancelled"
	default:
		return "channel failure"
	}
}

// RemoteSigningError reports a failed login or transact flow.
type RemoteSigningError struct {
	Op     string
	Reason RemoteSigningReason
	Err    error
}

func (e *RemoteSigningError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("remote signing %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("remote signing %s: %s: %v", e.Op, e.Reason, e.Err)
}

func (e *RemoteSigningError) Unwrap() error {
	return e.Err
}

// Retryable reports whether retrying the flow can help. A user decline is
// final.
func (e *RemoteSigningError) Retryable() bool {
	return e.Reason == ReasonChannelFailure
}

// ConfirmationTimeoutError reports that a created resource could not be
// observed by the post-creation check. Retrying the whole step is safe.
type ConfirmationTimeoutError struct {
	Resource string
	ID       string
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("%s %s was not found after creation", e.Resource, e.ID)
}

// UploadError reports a failed upload to messaging storage.
type UploadError struct {
	Name       string
	StatusCode int
	Err        error
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload of %s failed with status %d: %v", e.Name, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upload of %s failed: %v", e.Name, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// StepError tags a fatal error with the provisioning step that produced it.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
