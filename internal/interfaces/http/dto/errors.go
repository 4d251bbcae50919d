package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeInvalidIdentifier is used when a client id or project id is malformed
	ErrCodeInvalidIdentifier = "ERR_INVALID_IDENTIFIER"
)

// Resource error codes
const (
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeConsistency is used when stored data breaks a single-active precondition
	ErrCodeConsistency = "ERR_CONSISTENCY"
	// ErrCodeSweepInProgress is used when a sweep trigger overlaps a running batch
	ErrCodeSweepInProgress = "ERR_SWEEP_IN_PROGRESS"
)

// Dependency error codes
const (
	// ErrCodeStoreUnavailable is used when the persistence store timed out or failed
	ErrCodeStoreUnavailable = "ERR_STORE_UNAVAILABLE"
	// ErrCodeJobControl is used when the job control service rejected a halt
	ErrCodeJobControl = "ERR_JOB_CONTROL"
	// ErrCodeSchedulerStopped is used when the sweep scheduler is not running
	ErrCodeSchedulerStopped = "ERR_SCHEDULER_STOPPED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeInvalidInput:      http.StatusBadRequest,
	ErrCodeInvalidJSON:       http.StatusBadRequest,
	ErrCodeInvalidIdentifier: http.StatusBadRequest,

	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeInvalidState:    http.StatusUnprocessableEntity,
	ErrCodeConsistency:     http.StatusConflict,
	ErrCodeSweepInProgress: http.StatusConflict,

	ErrCodeStoreUnavailable: http.StatusServiceUnavailable,
	ErrCodeJobControl:       http.StatusBadGateway,
	ErrCodeSchedulerStopped: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":               ErrCodeNotFound,
	"INVALID_INPUT":           ErrCodeInvalidInput,
	"INVALID_IDENTIFIER":      ErrCodeInvalidIdentifier,
	"INVALID_STATE":           ErrCodeInvalidState,
	"TRANSIENT_STORE_FAILURE": ErrCodeStoreUnavailable,
	"CONSISTENCY_WARNING":     ErrCodeConsistency,
	"JOB_CONTROL_FAILURE":     ErrCodeJobControl,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
