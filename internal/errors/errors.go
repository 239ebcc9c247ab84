package errors

import (
	"errors"
	"fmt"
)

// RateLimitExhaustedError represents a GET request that stayed rate limited
// through its entire retry budget. Callers treat it as "no data for this
// request", never as a fatal condition.
type RateLimitExhaustedError struct {
	Attempts int
}

func (e *RateLimitExhaustedError) Error() string {
	return fmt.Sprintf("rate limit still in effect after %d attempts", e.Attempts)
}

// RequestFailedError represents any non-2xx, non-429 platform response
type RequestFailedError struct {
	Status int
	Body   string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("request failed: status=%d body=%s", e.Status, e.Body)
}

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

// Is enables errors.Is() comparison for NotFoundError
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	if !ok {
		return false
	}
	return e.Entity == t.Entity
}

// MalformedResponseError represents a response missing an expected field
type MalformedResponseError struct {
	Field string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: missing %s", e.Field)
}

// ConfigurationError represents configuration-related errors
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// Entity Not Found Errors
var (
	ErrUserNotFound     = &NotFoundError{Entity: "user"}
	ErrTeamNotFound     = &NotFoundError{Entity: "team"}
	ErrScheduleNotFound = &NotFoundError{Entity: "schedule"}
	ErrRotationNotFound = &NotFoundError{Entity: "rotation"}
)

// Configuration Errors
var (
	ErrAPIKeyMissing = &ConfigurationError{Message: "API_KEY environment variable not set"}
)

// Helper Functions

// IsRateLimitExhausted checks if an error is a RateLimitExhaustedError
func IsRateLimitExhausted(err error) bool {
	var rlErr *RateLimitExhaustedError
	return errors.As(err, &rlErr)
}

// IsRequestFailed checks if an error is a RequestFailedError
func IsRequestFailed(err error) bool {
	var reqErr *RequestFailedError
	return errors.As(err, &reqErr)
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// IsMalformedResponse checks if an error is a MalformedResponseError
func IsMalformedResponse(err error) bool {
	var malformedErr *MalformedResponseError
	return errors.As(err, &malformedErr)
}

// IsConfiguration checks if an error is a ConfigurationError
func IsConfiguration(err error) bool {
	var configErr *ConfigurationError
	return errors.As(err, &configErr)
}

// RequestStatus returns the HTTP status carried by a RequestFailedError,
// or 0 when err is of another kind.
func RequestStatus(err error) int {
	var reqErr *RequestFailedError
	if errors.As(err, &reqErr) {
		return reqErr.Status
	}
	return 0
}

// NewNotFoundError creates a new NotFoundError for a custom entity
func NewNotFoundError(entity string) error {
	return &NotFoundError{Entity: entity}
}

// NewMalformedResponseError creates a new MalformedResponseError
func NewMalformedResponseError(field string) error {
	return &MalformedResponseError{Field: field}
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(message string) error {
	return &ConfigurationError{Message: message}
}
