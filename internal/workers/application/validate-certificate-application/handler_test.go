package validatecertificateapplication

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"medcert-apply/internal/common/config"
	apperrors "medcert-apply/internal/common/errors"
	"medcert-apply/internal/common/logger"
	"medcert-apply/internal/form"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submission(t *testing.T, certificateType string) *form.Submission {
	t.Helper()
	c, err := form.NewController(certificateType)
	require.NoError(t, err)
	require.NoError(t, c.SetFields(map[form.FieldName]string{
		form.FieldFirstName:             "Asha",
		form.FieldLastName:              "Verma",
		form.FieldPhone:                 "9876543210",
		form.FieldEmail:                 "asha@example.in",
		form.FieldGender:                "Female",
		form.FieldDateOfBirth:           "1992-04-18",
		form.FieldOrganizationName:      "Acme Textiles",
		form.FieldCity:                  "Pune",
		form.FieldState:                 "Maharashtra",
		form.FieldPostalCode:            "411001",
		form.FieldMedicalProblem:        "Viral Fever",
		form.FieldLeaveDuration:         "3 days",
		form.FieldCertificateStartDate:  "2026-10-19",
		form.FieldSelectedPaymentOption: "digital-rx",
		form.FieldSpecialFormat:         "true",
		form.FieldTermsAccepted:         "true",
	}))
	require.NoError(t, c.SetDocument(form.FieldGovtIDProof, &form.Document{
		Key: "applications/s/govtIdProof/a.pdf", FileName: "a.pdf", ContentType: "application/pdf", Size: 1024,
	}))
	sub, err := c.Submit(time.Date(2026, 10, 19, 10, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	return sub
}

func rawSubmission(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func newTestHandler(t *testing.T) *Handler {
	h := NewHandler(LoadConfig(config.WorkerConfig{}), logger.NewTestLogger(t))
	h.now = func() time.Time { return time.Date(2026, 10, 19, 10, 31, 0, 0, time.UTC) }
	return h
}

func assertValidationFailed(t *testing.T, err error) *apperrors.StandardError {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrApplicationValidationFailed))
	se, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeApplicationValidationFailed, se.Code)
	assert.False(t, se.Retryable)
	return se
}

func TestHandler_Execute_Valid(t *testing.T) {
	h := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{
		SessionID:  "session-1",
		Submission: rawSubmission(t, submission(t, "sick-leave")),
	})

	require.NoError(t, err)
	assert.True(t, out.IsValid)
	assert.Equal(t, "sick-leave", out.CertificateType)
	assert.Equal(t, "Asha Verma", out.ApplicantName)
	assert.Equal(t, 1049, out.TotalAmount)
	assert.Equal(t, "2026-10-19T10:31:00Z", out.ValidatedAt)
}

func TestHandler_Execute_MissingSubmission(t *testing.T) {
	h := newTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{SessionID: "session-1"})
	assertValidationFailed(t, err)

	_, err = h.Execute(context.Background(), &Input{Submission: json.RawMessage("null")})
	assertValidationFailed(t, err)
}

func TestHandler_Execute_SchemaViolation(t *testing.T) {
	h := newTestHandler(t)

	sub := submission(t, "sick-leave")
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rawSubmission(t, sub), &doc))
	delete(doc, "personal")
	doc["currency"] = "USD"

	_, err := h.Execute(context.Background(), &Input{Submission: rawSubmission(t, doc)})
	se := assertValidationFailed(t, err)
	assert.Contains(t, se.Details, "personal")
}

func TestHandler_Execute_FormRulesReportSteps(t *testing.T) {
	h := newTestHandler(t)

	sub := submission(t, "sick-leave")
	sub.Medical.CertificateStartDate = "19/10/2026"

	_, err := h.Execute(context.Background(), &Input{Submission: rawSubmission(t, sub)})
	se := assertValidationFailed(t, err)
	assert.Equal(t, []int{2}, se.Metadata["invalidSteps"])
}

func TestHandler_Execute_RejectsUnlistedAndBareOther(t *testing.T) {
	h := newTestHandler(t)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(rawSubmission(t, submission(t, "sick-leave")), &doc))
	doc["personal"].(map[string]interface{})["gender"] = "Robot"
	medical := doc["medical"].(map[string]interface{})
	medical["medicalProblem"] = map[string]interface{}{"value": "Other", "other": false}
	medical["leaveDuration"] = map[string]interface{}{"value": "forever and ever", "other": false}

	out, err := h.Execute(context.Background(), &Input{Submission: rawSubmission(t, doc)})

	assert.Nil(t, out)
	se := assertValidationFailed(t, err)
	assert.Equal(t, []int{1, 2}, se.Metadata["invalidSteps"])
}

func TestHandler_Execute_CaretakerRequiresCaretakerStep(t *testing.T) {
	h := newTestHandler(t)

	sub := submission(t, "sick-leave")
	sub.CertificateType = "caretaker"

	_, err := h.Execute(context.Background(), &Input{Submission: rawSubmission(t, sub)})
	se := assertValidationFailed(t, err)
	assert.Equal(t, []int{3}, se.Metadata["invalidSteps"])
}

func TestHandler_Execute_AmountMismatch(t *testing.T) {
	h := newTestHandler(t)

	sub := submission(t, "sick-leave")
	sub.TotalAmount = 1

	_, err := h.Execute(context.Background(), &Input{Submission: rawSubmission(t, sub)})
	se := assertValidationFailed(t, err)
	assert.Contains(t, se.Details, "does not match price 1049")
}

func TestBPMNErrorCode(t *testing.T) {
	bpmn := apperrors.ConvertToBPMNError(invalid("x", []int{2}))
	assert.Equal(t, "APPLICATION_VALIDATION_FAILED", bpmn.Code)
	assert.Equal(t, 0, bpmn.Retries)
	assert.Equal(t, []int{2}, bpmn.ErrorVariables["invalidSteps"])
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 10*time.Second, LoadConfig(config.WorkerConfig{}).Timeout)
	assert.Equal(t, 2500*time.Millisecond, LoadConfig(config.WorkerConfig{Timeout: 2500}).Timeout)
}
