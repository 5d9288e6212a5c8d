package form

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testDocument(name string) *Document {
	return &Document{
		Key:         "uploads/test/" + name,
		FileName:    name,
		ContentType: "application/pdf",
		Size:        1024,
	}
}

func mustWith(t *testing.T, s State, fields map[FieldName]string) State {
	t.Helper()
	var err error
	// selections before overrides
	for _, f := range []FieldName{FieldMedicalProblem, FieldLeaveDuration} {
		if v, ok := fields[f]; ok {
			s, err = s.With(f, v)
			require.NoError(t, err)
		}
	}
	for f, v := range fields {
		if f == FieldMedicalProblem || f == FieldLeaveDuration {
			continue
		}
		s, err = s.With(f, v)
		require.NoError(t, err, "field %s", f)
	}
	return s
}

func personalValues() map[FieldName]string {
	return map[FieldName]string{
		FieldFirstName:        "Asha",
		FieldLastName:         "Verma",
		FieldPhone:            "9876543210",
		FieldEmail:            "asha@example.in",
		FieldGender:           "Female",
		FieldDateOfBirth:      "1992-04-18",
		FieldOrganizationName: "Acme Textiles",
		FieldCity:             "Pune",
		FieldState:            "Maharashtra",
		FieldPostalCode:       "411001",
	}
}

func medicalValues() map[FieldName]string {
	return map[FieldName]string{
		FieldMedicalProblem:       "Viral Fever",
		FieldLeaveDuration:        "3 days",
		FieldCertificateStartDate: "2026-10-19",
	}
}

func caretakerValues() map[FieldName]string {
	return map[FieldName]string{
		FieldCaretakerFirstName:    "Ravi",
		FieldCaretakerLastName:     "Verma",
		FieldCaretakerDob:          "1960-01-02",
		FieldCaretakerRelationship: "Parent",
		FieldCaretakerCity:         "Pune",
		FieldCaretakerState:        "Maharashtra",
		FieldCaretakerPostalCode:   "411001",
	}
}

func paymentValues() map[FieldName]string {
	return map[FieldName]string{
		FieldSelectedPaymentOption: "digital-rx",
		FieldSpecialFormat:         "true",
		FieldTermsAccepted:         "true",
	}
}

// validState returns a state that passes every step for the certificate type.
func validState(t *testing.T, certificateType string) State {
	t.Helper()
	s := NewState(certificateType)
	s = mustWith(t, s, personalValues())
	s = mustWith(t, s, medicalValues())
	s = mustWith(t, s, paymentValues())

	var err error
	s, err = s.WithDocument(FieldGovtIDProof, testDocument("aadhaar.pdf"))
	require.NoError(t, err)

	if certificateType == "caretaker" {
		s = mustWith(t, s, caretakerValues())
		s, err = s.WithDocument(FieldCaretakerGovtIDProof, testDocument("caretaker.pdf"))
		require.NoError(t, err)
	}
	return s
}
