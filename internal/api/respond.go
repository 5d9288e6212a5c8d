package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "medcert-apply/internal/common/errors"
	"medcert-apply/internal/common/logger"
	"medcert-apply/internal/form"
	"medcert-apply/internal/otp"
	"medcert-apply/internal/session"
	"medcert-apply/internal/uploads"
)

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Details interface{}         `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// writeFailure answers with a code, a message and structured details such
// as per-field validation errors.
func writeFailure(w http.ResponseWriter, code apperrors.ErrorCode, message string, details interface{}) {
	writeJSON(w, apperrors.HTTPStatus(code), errorBody{Error: errorPayload{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// writeError maps err to a StandardError and answers with its status.
// Server-side failures are logged; their details are not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	se := toStandardError(err)
	status := apperrors.HTTPStatus(se.Code)

	payload := errorPayload{Code: se.Code, Message: se.Message}
	if status < http.StatusInternalServerError {
		if se.Details != "" {
			payload.Details = se.Details
		}
	} else {
		logger.FromContext(r.Context(), log).Error("request failed", map[string]interface{}{
			"code":    string(se.Code),
			"details": se.Details,
		})
	}
	writeJSON(w, status, errorBody{Error: payload})
}

// toStandardError maps the sentinels of the domain packages to error codes.
func toStandardError(err error) *apperrors.StandardError {
	if se, ok := apperrors.As(err); ok {
		return se
	}

	var code apperrors.ErrorCode
	var message string
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return apperrors.NewSessionNotFoundError(err)
	case errors.Is(err, session.ErrStoreFailed), errors.Is(err, otp.ErrStoreFailed):
		return apperrors.NewSessionStoreFailedError(err)
	case errors.Is(err, form.ErrUnknownCertificateType):
		code, message = apperrors.ErrCodeUnknownCertificateType, "Unknown certificate type"
	case errors.Is(err, form.ErrUnknownPaymentOption):
		code, message = apperrors.ErrCodeUnknownPaymentOption, "Please select a valid payment option"
	case errors.Is(err, form.ErrPhoneMismatch):
		code, message = apperrors.ErrCodePhoneMismatch, "Phone number does not match the application"
	case errors.Is(err, form.ErrUnknownField), errors.Is(err, form.ErrInvalidOption),
		errors.Is(err, form.ErrInvalidValue), errors.Is(err, form.ErrOverrideNotAllowed),
		errors.Is(err, form.ErrDocumentField), errors.Is(err, form.ErrNotADocumentField),
		errors.Is(err, otp.ErrInvalidPhone):
		code, message = apperrors.ErrCodeInvalidField, "Invalid field value"
	case errors.Is(err, uploads.ErrDocumentRejected):
		return apperrors.NewDocumentRejectedError(err)
	case errors.Is(err, uploads.ErrPresignFailed):
		code, message = apperrors.ErrCodeStorageFailed, "Document storage is unavailable"
	case errors.Is(err, otp.ErrCodeInvalid):
		code, message = apperrors.ErrCodeOTPInvalid, "Incorrect verification code"
	case errors.Is(err, otp.ErrCodeExpired):
		code, message = apperrors.ErrCodeOTPExpired, "Verification code expired, request a new one"
	case errors.Is(err, otp.ErrAttemptsExceeded):
		code, message = apperrors.ErrCodeOTPAttemptsExceeded, "Too many incorrect attempts, request a new code"
	case errors.Is(err, otp.ErrResendTooSoon):
		code, message = apperrors.ErrCodeOTPResendTooSoon, "Please wait before requesting another code"
	case errors.Is(err, otp.ErrSendFailed):
		code, message = apperrors.ErrCodeNotificationSendFailed, "Could not send the verification code"
	default:
		code, message = apperrors.ErrCodeInternal, "Internal server error"
	}
	return apperrors.Wrap(code, message, err)
}
