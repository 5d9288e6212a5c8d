package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RetryableFollowsCode(t *testing.T) {
	assert.True(t, New(ErrCodeDatabaseInsertFailed, "insert", "").Retryable)
	assert.True(t, New(ErrCodeTimeout, "slow", "").Retryable)
	assert.False(t, New(ErrCodeApplicationValidationFailed, "bad", "").Retryable)
}

func TestWrap_Unwraps(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("save session: %w", NewSessionStoreFailedError(cause))

	assert.ErrorIs(t, err, cause)
	stdErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeSessionStoreFailed, stdErr.Code)
	assert.Equal(t, "connection refused", stdErr.Details)

	_, ok = As(cause)
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	stdErr := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.False(t, stdErr.Retryable)

	original := NewPaymentGatewayFailedError(stderrors.New("502"))
	assert.Same(t, original, Normalize(fmt.Errorf("wrapped: %w", original)))
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewPaymentGatewayFailedError(stderrors.New("gateway down")))
	assert.Equal(t, "PAYMENT_FAILED", bpmn.Code)
	assert.Equal(t, 3, bpmn.Retries)
	assert.Equal(t, "PAYMENT_GATEWAY_FAILED", bpmn.ErrorVariables["originalErrorCode"])

	bpmn = ConvertToBPMNError(NewIndexingFailedError("certificate-applications", stderrors.New("400")))
	assert.Equal(t, "certificate-applications", bpmn.ErrorVariables["index"])

	bpmn = ConvertToBPMNError(NewBusinessRuleError("rule", "details"))
	assert.Equal(t, "BUSINESS_RULE_VIOLATION", bpmn.Code)
	assert.Zero(t, bpmn.Retries)

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "BUSINESS_RULE_VIOLATION", vars["errorCode"])
	assert.Equal(t, false, vars["retryable"])
}

func TestConvertToBPMNError_NonRetryableOverride(t *testing.T) {
	stdErr := NewDatabaseInsertFailedError(stderrors.New("constraint"))
	stdErr.Retryable = false
	assert.Zero(t, ConvertToBPMNError(stdErr).Retries)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidRequest, http.StatusBadRequest},
		{ErrCodeSessionNotFound, http.StatusNotFound},
		{ErrCodeCertificateNotFound, http.StatusNotFound},
		{ErrCodeStepValidationFailed, http.StatusUnprocessableEntity},
		{ErrCodeApplicationValidationFailed, http.StatusUnprocessableEntity},
		{ErrCodeUnknownPaymentOption, http.StatusUnprocessableEntity},
		{ErrCodeDocumentRejected, http.StatusUnprocessableEntity},
		{ErrCodeOTPExpired, http.StatusGone},
		{ErrCodeOTPAttemptsExceeded, http.StatusTooManyRequests},
		{ErrCodePhoneMismatch, http.StatusConflict},
		{ErrCodeSessionStoreFailed, http.StatusServiceUnavailable},
		{ErrCodeProcessStartFailed, http.StatusBadGateway},
		{ErrCodeTimeout, http.StatusGatewayTimeout},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VERIFICATION", GetErrorCategory(ErrCodeOTPInvalid))
	assert.Equal(t, "SESSION", GetErrorCategory(ErrCodeSessionNotFound))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDatabaseConnectionFailed))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeIndexingFailed))
	assert.Equal(t, "PAYMENT", GetErrorCategory(ErrCodePaymentGatewayFailed))
	assert.Equal(t, "STORAGE", GetErrorCategory(ErrCodeDocumentRejected))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeApplicationValidationFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestRemainingRetries(t *testing.T) {
	job := func(retries int32) entities.Job {
		return entities.Job{ActivatedJob: &pb.ActivatedJob{Retries: retries}}
	}
	assert.Equal(t, int32(3), remainingRetries(job(10), 3))
	assert.Equal(t, int32(1), remainingRetries(job(2), 3))
}
