// Package errors provides the structured errors shared by the API and the
// process workers, and their mapping to BPMN errors and HTTP statuses.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Request and form errors
const (
	ErrCodeInvalidRequest              ErrorCode = "INVALID_REQUEST"
	ErrCodeInvalidField                ErrorCode = "INVALID_FIELD"
	ErrCodeUnknownCertificateType      ErrorCode = "UNKNOWN_CERTIFICATE_TYPE"
	ErrCodeCertificateNotFound         ErrorCode = "CERTIFICATE_NOT_FOUND"
	ErrCodeSessionNotFound             ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeStepValidationFailed        ErrorCode = "STEP_VALIDATION_FAILED"
	ErrCodeApplicationValidationFailed ErrorCode = "APPLICATION_VALIDATION_FAILED"
	ErrCodeUnknownPaymentOption        ErrorCode = "UNKNOWN_PAYMENT_OPTION"
	ErrCodeDocumentRejected            ErrorCode = "DOCUMENT_REJECTED"
)

// Phone verification errors
const (
	ErrCodeOTPInvalid          ErrorCode = "OTP_INVALID"
	ErrCodeOTPExpired          ErrorCode = "OTP_EXPIRED"
	ErrCodeOTPAttemptsExceeded ErrorCode = "OTP_ATTEMPTS_EXCEEDED"
	ErrCodeOTPResendTooSoon    ErrorCode = "OTP_RESEND_TOO_SOON"
	ErrCodePhoneMismatch       ErrorCode = "PHONE_MISMATCH"
)

// Infrastructure errors
const (
	ErrCodeSessionStoreFailed            ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeStorageFailed                 ErrorCode = "STORAGE_FAILED"
	ErrCodeProcessStartFailed            ErrorCode = "PROCESS_START_FAILED"
	ErrCodeDatabaseConnectionFailed      ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseInsertFailed          ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeApplicationNotFound           ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodePaymentGatewayFailed          ErrorCode = "PAYMENT_GATEWAY_FAILED"
	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeIndexingFailed                ErrorCode = "INDEXING_FAILED"
	ErrCodeNotificationSendFailed        ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// Generic errors
const (
	ErrCodeBusinessRule     ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeExternalService  ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout          ErrorCode = "TIMEOUT_ERROR"
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeAuthentication   ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error { return e.cause }

// WithMetadata returns the error with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// New builds a StandardError whose retryability follows the code.
func New(code ErrorCode, message, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: IsRetryableErrorCode(code),
		Timestamp: time.Now().UTC(),
	}
}

// Wrap is New with err kept as the cause and used for the details.
func Wrap(code ErrorCode, message string, err error) *StandardError {
	e := New(code, message, err.Error())
	e.cause = err
	return e
}

// As extracts a StandardError from anywhere in err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func NewApplicationValidationFailedError(err error) *StandardError {
	return Wrap(ErrCodeApplicationValidationFailed, "Application validation failed", err)
}

func NewSessionNotFoundError(err error) *StandardError {
	return Wrap(ErrCodeSessionNotFound, "Application session not found or expired", err)
}

func NewSessionStoreFailedError(err error) *StandardError {
	return Wrap(ErrCodeSessionStoreFailed, "Session storage is unavailable", err)
}

func NewDocumentRejectedError(err error) *StandardError {
	return Wrap(ErrCodeDocumentRejected, "Document rejected", err)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return Wrap(ErrCodeDatabaseConnectionFailed, "Database connection error", err)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return Wrap(ErrCodeDatabaseInsertFailed, "Database insert operation failed", err)
}

func NewApplicationNotFoundError(applicationID string) *StandardError {
	return New(ErrCodeApplicationNotFound, "Application record not found", fmt.Sprintf("applicationId: %s", applicationID))
}

func NewPaymentGatewayFailedError(err error) *StandardError {
	return Wrap(ErrCodePaymentGatewayFailed, "Payment gateway request failed", err)
}

func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return Wrap(ErrCodeElasticsearchConnectionFailed, "Elasticsearch connection error", err)
}

func NewIndexingFailedError(indexName string, err error) *StandardError {
	e := Wrap(ErrCodeIndexingFailed, "Elasticsearch indexing failed", err)
	return e.WithMetadata("index", indexName)
}

func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	e := New(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()))
	e.cause = err
	return e
}

func NewBusinessRuleError(message, details string) *StandardError {
	return New(ErrCodeBusinessRule, message, details)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return Wrap(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return Wrap(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return New(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), details)
}

func NewAuthenticationError(details string) *StandardError {
	return New(ErrCodeAuthentication, "Authentication failed", details)
}

// BPMNErrorMapping maps internal error codes to the error codes caught by
// boundary events in the certificate-application process. Codes not listed
// are thrown as is.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeApplicationValidationFailed: "APPLICATION_VALIDATION_FAILED",
	ErrCodeApplicationNotFound:         "APPLICATION_NOT_FOUND",
	ErrCodeDatabaseInsertFailed:        "DATABASE_INSERT_FAILED",
	ErrCodePaymentGatewayFailed:        "PAYMENT_FAILED",
	ErrCodeIndexingFailed:              "INDEXING_FAILED",
	ErrCodeNotificationSendFailed:      "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeIndexingFailed,
		ErrCodeNotificationSendFailed,
		ErrCodePaymentGatewayFailed,
		ErrCodeSessionStoreFailed,
		ErrCodeStorageFailed,
		ErrCodeProcessStartFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// HTTPStatus maps an error code to the status the API responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeInvalidField, ErrCodeUnknownCertificateType:
		return http.StatusBadRequest
	case ErrCodeCertificateNotFound, ErrCodeSessionNotFound, ErrCodeResourceNotFound, ErrCodeApplicationNotFound:
		return http.StatusNotFound
	case ErrCodeStepValidationFailed, ErrCodeApplicationValidationFailed,
		ErrCodeUnknownPaymentOption, ErrCodeDocumentRejected, ErrCodeOTPInvalid, ErrCodeBusinessRule:
		return http.StatusUnprocessableEntity
	case ErrCodeOTPExpired:
		return http.StatusGone
	case ErrCodeOTPAttemptsExceeded, ErrCodeOTPResendTooSoon:
		return http.StatusTooManyRequests
	case ErrCodePhoneMismatch:
		return http.StatusConflict
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodeSessionStoreFailed, ErrCodeDatabaseConnectionFailed, ErrCodeElasticsearchConnectionFailed:
		return http.StatusServiceUnavailable
	case ErrCodeStorageFailed, ErrCodeProcessStartFailed, ErrCodeExternalService,
		ErrCodePaymentGatewayFailed, ErrCodeNotificationSendFailed:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "OTP") || strings.Contains(codeStr, "PHONE"):
		return "VERIFICATION"
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "APPLICATION_NOT_FOUND"):
		return "DATABASE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "PAYMENT"):
		return "PAYMENT"
	case strings.Contains(codeStr, "STORAGE") || strings.Contains(codeStr, "DOCUMENT"):
		return "STORAGE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") ||
		strings.Contains(codeStr, "UNKNOWN"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
