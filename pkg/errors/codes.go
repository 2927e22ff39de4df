package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeMessageQueue       ErrorCode = "COMMON_015"
	ErrCodeSearchError        ErrorCode = "COMMON_016"
	ErrCodeNotImplemented     ErrorCode = "COMMON_017"

	// CodeOK is the zero code carried by a nil error.
	CodeOK ErrorCode = "OK"
)

// License module error codes
const (
	ErrCodeLicenseNotFound      ErrorCode = "LIC_001"
	ErrCodeLicenseAlreadyExists ErrorCode = "LIC_002"
	ErrCodeUnsupportedSchema    ErrorCode = "LIC_003"
	ErrCodeMalformedRecord      ErrorCode = "LIC_004"
	ErrCodeInvalidDate          ErrorCode = "LIC_005"
	ErrCodeUnknownUpdateType    ErrorCode = "LIC_006"
	ErrCodePrivilegeNotFound    ErrorCode = "LIC_007"
)

// Provider (licensee) module error codes
const (
	ErrCodeProviderNotFound ErrorCode = "PRV_001"
	ErrCodeNoHomeLicense    ErrorCode = "PRV_002"
)

// Ingest pipeline error codes
const (
	ErrCodeIngestDecodeFailed ErrorCode = "ING_001"
	ErrCodeIngestStale        ErrorCode = "ING_002"
	ErrCodeIndexingFailed     ErrorCode = "ING_003"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeMessageQueue:       http.StatusInternalServerError,
	ErrCodeSearchError:        http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeLicenseNotFound:      http.StatusNotFound,
	ErrCodeLicenseAlreadyExists: http.StatusConflict,
	ErrCodeUnsupportedSchema:    http.StatusUnprocessableEntity,
	ErrCodeMalformedRecord:      http.StatusUnprocessableEntity,
	ErrCodeInvalidDate:          http.StatusUnprocessableEntity,
	ErrCodeUnknownUpdateType:    http.StatusUnprocessableEntity,
	ErrCodePrivilegeNotFound:    http.StatusNotFound,

	ErrCodeProviderNotFound: http.StatusNotFound,
	ErrCodeNoHomeLicense:    http.StatusNotFound,

	ErrCodeIngestDecodeFailed: http.StatusUnprocessableEntity,
	ErrCodeIngestStale:        http.StatusConflict,
	ErrCodeIndexingFailed:     http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeMessageQueue:       "message queue error",
	ErrCodeSearchError:        "search error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeLicenseNotFound:      "license not found",
	ErrCodeLicenseAlreadyExists: "license already exists",
	ErrCodeUnsupportedSchema:    "unsupported upstream record schema",
	ErrCodeMalformedRecord:      "malformed upstream record",
	ErrCodeInvalidDate:          "invalid date value",
	ErrCodeUnknownUpdateType:    "unknown history update type",
	ErrCodePrivilegeNotFound:    "privilege not found",

	ErrCodeProviderNotFound: "provider not found",
	ErrCodeNoHomeLicense:    "provider has no home-jurisdiction license",

	ErrCodeIngestDecodeFailed: "failed to decode ingest record",
	ErrCodeIngestStale:        "ingest record is older than the stored revision",
	ErrCodeIndexingFailed:     "failed to index record",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
