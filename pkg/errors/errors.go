package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness. Details carries
// machine-readable fields specific to the code (distances, thresholds, times)
// and is rendered verbatim in the response envelope.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// WithDetails returns a copy of the error carrying the given detail fields.
// The receiver is never mutated so predeclared errors stay safe to share.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Details = details
	return &clone
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Check-in rejection reasons. Each admission stage owns a subset; codes are
// part of the public API contract and must stay stable.
var (
	ErrInvalidPayload   = New("INVALID_PAYLOAD", http.StatusBadRequest, "request payload failed validation")
	ErrMissingDeviceID  = New("MISSING_DEVICE_ID", http.StatusBadRequest, "device identifier is required")
	ErrMissingUserAgent = New("MISSING_USER_AGENT", http.StatusBadRequest, "user agent is required")
	ErrSessionNotFound  = New("SESSION_NOT_FOUND", http.StatusNotFound, "session not found")
	ErrNotAssigned      = New("NOT_ASSIGNED", http.StatusForbidden, "you are not assigned to this session")

	ErrNotScheduledToday = New("NOT_SCHEDULED_TODAY", http.StatusConflict, "session does not occur today")
	ErrTooEarly          = New("TOO_EARLY", http.StatusConflict, "check-in window has not opened yet")
	ErrTooLate           = New("TOO_LATE", http.StatusConflict, "check-in window has closed")
	ErrAlreadyCheckedIn  = New("ALREADY_CHECKED_IN", http.StatusConflict, "attendance already recorded for this session")

	ErrInvalidLocationCoords = New("INVALID_LOCATION_COORDS", http.StatusBadRequest, "latitude or longitude out of range")
	ErrInvalidLocationZero   = New("INVALID_LOCATION_ZERO", http.StatusBadRequest, "location coordinates are missing or zero")
	ErrMissingAccuracy       = New("MISSING_ACCURACY", http.StatusBadRequest, "location accuracy radius is required")
	ErrInvalidAccuracy       = New("INVALID_ACCURACY", http.StatusBadRequest, "location accuracy radius is out of range")
	ErrAccuracyTooLow        = New("ACCURACY_TOO_LOW", http.StatusForbidden, "location reading is not precise enough")

	ErrSessionLocationNotConfigured = New("SESSION_LOCATION_NOT_CONFIGURED", http.StatusForbidden, "session has no verifiable location configured")
	ErrLocationTooFar               = New("LOCATION_TOO_FAR", http.StatusForbidden, "you are too far from the session location")
	ErrOutsideGeofence              = New("OUTSIDE_GEOFENCE", http.StatusForbidden, "you are outside the session boundary")
	ErrLowConfidence                = New("LOW_CONFIDENCE", http.StatusForbidden, "location could not be verified with enough confidence")
	ErrCityMismatch                 = New("CITY_MISMATCH", http.StatusForbidden, "reported location is in a different city")
	ErrStateMismatch                = New("STATE_MISMATCH", http.StatusForbidden, "reported location is in a different state")
	ErrVerifierNotConfigured        = New("VERIFIER_NOT_CONFIGURED", http.StatusServiceUnavailable, "location verification is not configured")
	ErrVerifierUnavailable          = New("VERIFIER_UNAVAILABLE", http.StatusServiceUnavailable, "location verification service is unavailable")
	ErrVerifierBadResponse          = New("VERIFIER_BAD_RESPONSE", http.StatusBadGateway, "location verification service returned an invalid response")
	ErrVerificationInconsistent     = New("VERIFICATION_INCONSISTENT", http.StatusInternalServerError, "location verification result is incomplete")

	ErrDeviceMismatch      = New("DEVICE_MISMATCH", http.StatusForbidden, "check-in must be made from your registered device")
	ErrDeviceCloneSuspect  = New("DEVICE_CLONE_SUSPECTED", http.StatusForbidden, "device fingerprint does not match the registered device")
	ErrReportNotReady      = New("REPORT_NOT_READY", http.StatusConflict, "report is not ready for download")
	ErrDownloadLinkInvalid = New("DOWNLOAD_LINK_INVALID", http.StatusForbidden, "download link is invalid or expired")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err carries the same code as target, regardless of
// message or details. Lets callers branch on reason codes cleanly.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
