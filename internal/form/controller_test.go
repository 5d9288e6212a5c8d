package form

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T, certificateType string) *Controller {
	t.Helper()
	c, err := NewController(certificateType)
	require.NoError(t, err)
	return c
}

func TestNewController(t *testing.T) {
	c := newTestController(t, "fitness")
	assert.Equal(t, 1, c.Step())
	assert.Equal(t, 3, c.TotalSteps())
	assert.Equal(t, StepPersonal, c.StepKind())
	assert.Equal(t, "India", c.State().Personal.Address.Country)
	assert.Equal(t, "India", c.State().Personal.OrganizationLocation)

	_, err := NewController("astrology")
	assert.ErrorIs(t, err, ErrUnknownCertificateType)
}

func TestController_NextBlockedByErrors(t *testing.T) {
	c := newTestController(t, "sick-leave")

	assert.False(t, c.Next())
	assert.Equal(t, 1, c.Step())
	assert.Contains(t, c.Errors(), FieldFirstName)

	require.NoError(t, c.Set(FieldFirstName, "Asha"))
	assert.NotContains(t, c.Errors(), FieldFirstName)
	assert.Contains(t, c.Errors(), FieldLastName)
}

func TestController_WalkThrough(t *testing.T) {
	c := newTestController(t, "caretaker")

	require.NoError(t, c.SetFields(personalValues()))
	assert.True(t, c.Next())
	assert.Equal(t, 2, c.Step())

	require.NoError(t, c.SetFields(medicalValues()))
	require.NoError(t, c.SetDocument(FieldGovtIDProof, testDocument("id.pdf")))
	assert.True(t, c.Next())
	assert.Equal(t, StepCaretaker, c.StepKind())

	require.NoError(t, c.SetFields(caretakerValues()))
	require.NoError(t, c.SetDocument(FieldCaretakerGovtIDProof, testDocument("c.pdf")))
	assert.True(t, c.Next())
	assert.Equal(t, 4, c.Step())

	require.NoError(t, c.SetFields(paymentValues()))
	assert.True(t, c.Next())
	assert.Equal(t, 4, c.Step(), "advance is clamped at the last step")
	assert.Equal(t, 1049, c.Total())

	sub, err := c.Submit(submittedAt)
	require.NoError(t, err)
	assert.Equal(t, 1049, sub.TotalAmount)
	assert.NotNil(t, sub.Caretaker)
}

func TestController_Back(t *testing.T) {
	c := newTestController(t, "sick-leave")
	c.Back()
	assert.Equal(t, 1, c.Step())

	require.NoError(t, c.SetFields(personalValues()))
	require.True(t, c.Next())
	c.Back()
	assert.Equal(t, 1, c.Step())
	assert.Empty(t, c.Errors())
}

func TestController_OverrideErrorClearedOnSwitch(t *testing.T) {
	c := newTestController(t, "sick-leave")
	require.NoError(t, c.SetFields(personalValues()))
	require.True(t, c.Next())

	require.NoError(t, c.Set(FieldMedicalProblem, "Other"))
	assert.False(t, c.Next())
	assert.Contains(t, c.Errors(), FieldMedicalProblemOther)
	assert.NotContains(t, c.Errors(), FieldMedicalProblem)

	require.NoError(t, c.Set(FieldMedicalProblem, "Cold"))
	assert.NotContains(t, c.Errors(), FieldMedicalProblemOther)
}

func TestController_SetFieldsOrdersOverrides(t *testing.T) {
	c := newTestController(t, "sick-leave")
	err := c.SetFields(map[FieldName]string{
		FieldLeaveDurationOther: "12 days",
		FieldLeaveDuration:      "Other",
	})
	require.NoError(t, err)
	assert.Equal(t, "12 days", c.State().Medical.LeaveDuration.Value())
}

func TestController_SetFieldsAllOrNothing(t *testing.T) {
	c := newTestController(t, "sick-leave")
	err := c.SetFields(map[FieldName]string{
		FieldFirstName: "Asha",
		FieldGender:    "Robot",
	})
	assert.ErrorIs(t, err, ErrInvalidOption)
	assert.Empty(t, c.State().Personal.FirstName)
}

func TestController_SetRejections(t *testing.T) {
	c := newTestController(t, "sick-leave")

	assert.ErrorIs(t, c.Set("favouriteColour", "blue"), ErrUnknownField)
	assert.ErrorIs(t, c.Set(FieldMedicalProblem, "Toothache"), ErrInvalidOption)
	assert.ErrorIs(t, c.Set(FieldMedicalProblemOther, "text"), ErrOverrideNotAllowed)
	assert.ErrorIs(t, c.Set(FieldTermsAccepted, "maybe"), ErrInvalidValue)
	assert.ErrorIs(t, c.Set(FieldGovtIDProof, "id.pdf"), ErrDocumentField)
	assert.ErrorIs(t, c.SetDocument(FieldEmail, testDocument("x.pdf")), ErrNotADocumentField)
}

func TestController_SanitisesText(t *testing.T) {
	c := newTestController(t, "sick-leave")
	require.NoError(t, c.Set(FieldOrganizationName, "  <b>O'Neil & Sons</b> "))
	assert.Equal(t, "O'Neil & Sons", c.State().Personal.OrganizationName)

	require.NoError(t, c.Set(FieldMedicalProblem, "Other"))
	require.NoError(t, c.Set(FieldMedicalProblemOther, "<script>alert(1)</script>Sprain"))
	assert.Equal(t, "Sprain", c.State().Medical.MedicalProblem.Value())
}

func TestController_SanitisesEncodedText(t *testing.T) {
	tests := []struct {
		name  string
		field FieldName
		value string
		want  string
	}{
		{"encoded script", FieldOrganizationName, "&lt;script&gt;alert(1)&lt;/script&gt;Acme", "Acme"},
		{"double encoded tag", FieldOrganizationName, "&amp;lt;b&amp;gt;Acme&amp;lt;/b&amp;gt;", "Acme"},
		{"stray brackets", FieldCity, "Pune <> ", "Pune"},
		{"ampersand kept", FieldCity, "Pune &amp; Co", "Pune & Co"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t, "sick-leave")
			require.NoError(t, c.Set(tt.field, tt.value))
			assert.Equal(t, tt.want, c.State().Value(tt.field))
		})
	}

	c := newTestController(t, "sick-leave")
	require.NoError(t, c.Set(FieldMedicalProblem, "Other"))
	require.NoError(t, c.Set(FieldMedicalProblemOther, "&lt;img src=x onerror=alert(1)&gt;Sprain"))
	got := c.State().Medical.MedicalProblem.Value()
	assert.Equal(t, "Sprain", got)
	assert.NotContains(t, got, "<")
}

func TestController_SetCertificateType(t *testing.T) {
	c := newTestController(t, "caretaker")
	require.NoError(t, c.SetFields(personalValues()))
	require.True(t, c.Next())
	require.NoError(t, c.SetFields(medicalValues()))
	require.NoError(t, c.SetDocument(FieldGovtIDProof, testDocument("id.pdf")))
	require.True(t, c.Next())
	require.False(t, c.Next())
	require.NoError(t, c.Set(FieldCaretakerFirstName, "Ravi"))

	// payment step for sick leave is 3; the step stays in range
	require.NoError(t, c.SetCertificateType("sick-leave"))
	assert.Equal(t, 3, c.TotalSteps())
	assert.Equal(t, StepPayment, c.StepKind())

	require.NoError(t, c.SetFields(paymentValues()))
	sub, err := c.Submit(submittedAt)
	require.NoError(t, err)
	assert.Nil(t, sub.Caretaker)

	assert.ErrorIs(t, c.SetCertificateType("nope"), ErrUnknownCertificateType)
}

func TestController_SetCertificateTypeClampsStep(t *testing.T) {
	c, err := Restore(Snapshot{Step: 4, State: NewState("caretaker")})
	require.NoError(t, err)
	require.NoError(t, c.SetCertificateType("fitness"))
	assert.Equal(t, 3, c.Step())
}

func TestController_SubmitRecordsCurrentStepErrors(t *testing.T) {
	c := newTestController(t, "sick-leave")
	_, err := c.Submit(submittedAt)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []int{1, 2, 3}, verr.InvalidSteps())
	assert.Equal(t, verr.Steps[1], c.Errors())
}

func TestController_PhoneVerification(t *testing.T) {
	c := newTestController(t, "sick-leave")
	require.NoError(t, c.Set(FieldPhone, "9876543210"))

	assert.ErrorIs(t, c.MarkPhoneVerified("9999999999"), ErrPhoneMismatch)
	require.NoError(t, c.MarkPhoneVerified("+91 98765 43210"))
	assert.True(t, c.State().PhoneVerified)

	require.NoError(t, c.Set(FieldPhone, "9123456789"))
	assert.False(t, c.State().PhoneVerified)
}

func TestController_SnapshotRestore(t *testing.T) {
	c := newTestController(t, "sick-leave")
	require.NoError(t, c.SetFields(personalValues()))
	require.NoError(t, c.Set(FieldLeaveDuration, "Other"))
	require.NoError(t, c.Set(FieldLeaveDurationOther, "9 days"))
	require.True(t, c.Next())
	assert.False(t, c.Next())

	data, err := json.Marshal(c.Snapshot())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	restored, err := Restore(snap)
	require.NoError(t, err)

	assert.Equal(t, c.Step(), restored.Step())
	assert.Equal(t, c.Errors(), restored.Errors())
	assert.Equal(t, c.State(), restored.State())
	assert.True(t, restored.State().Medical.LeaveDuration.IsOther())

	_, err = Restore(Snapshot{Step: 1, State: State{CertificateType: "bogus"}})
	assert.ErrorIs(t, err, ErrUnknownCertificateType)
}

func TestController_SnapshotIsolation(t *testing.T) {
	c := newTestController(t, "sick-leave")
	assert.False(t, c.Next())

	snap := c.Snapshot()
	snap.Errors[FieldFirstName] = "tampered"
	assert.Equal(t, "First name is required", c.Errors()[FieldFirstName])
}
