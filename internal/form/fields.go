package form

import "errors"

// FieldName is the wire name of a form field. Names match the browser form.
type FieldName string

const (
	FieldFirstName            FieldName = "firstName"
	FieldLastName             FieldName = "lastName"
	FieldPhone                FieldName = "phone"
	FieldEmail                FieldName = "email"
	FieldGender               FieldName = "gender"
	FieldDateOfBirth          FieldName = "dateOfBirth"
	FieldGuardianRelationship FieldName = "guardianRelationship"
	FieldGuardianName         FieldName = "guardianName"
	FieldAddress              FieldName = "address"
	FieldCity                 FieldName = "city"
	FieldState                FieldName = "state"
	FieldPostalCode           FieldName = "postalCode"
	FieldCountry              FieldName = "country"
	FieldOrganizationName     FieldName = "organizationName"
	FieldOrganizationLocation FieldName = "organizationLocation"

	FieldMedicalProblem       FieldName = "medicalProblem"
	FieldMedicalProblemOther  FieldName = "medicalProblemOther"
	FieldLeaveDuration        FieldName = "leaveDuration"
	FieldLeaveDurationOther   FieldName = "leaveDurationOther"
	FieldCertificateStartDate FieldName = "certificateStartDate"
	FieldGovtIDProof          FieldName = "govtIdProof"

	FieldCaretakerFirstName    FieldName = "caretakerFirstName"
	FieldCaretakerLastName     FieldName = "caretakerLastName"
	FieldCaretakerDob          FieldName = "caretakerDob"
	FieldCaretakerRelationship FieldName = "caretakerRelationship"
	FieldCaretakerAddress      FieldName = "caretakerAddress"
	FieldCaretakerCity         FieldName = "caretakerCity"
	FieldCaretakerState        FieldName = "caretakerState"
	FieldCaretakerPostalCode   FieldName = "caretakerPostalCode"
	FieldCaretakerCountry      FieldName = "caretakerCountry"
	FieldCaretakerGovtIDProof  FieldName = "caretakerGovtIdProof"

	FieldSelectedPaymentOption FieldName = "selectedPaymentOption"
	FieldSpecialFormat         FieldName = "specialFormat"
	FieldSpecialFormatFile     FieldName = "specialFormatFile"
	FieldTermsAccepted         FieldName = "termsAccepted"
)

var (
	ErrUnknownField       = errors.New("UNKNOWN_FIELD")
	ErrInvalidOption      = errors.New("INVALID_OPTION")
	ErrInvalidValue       = errors.New("INVALID_VALUE")
	ErrOverrideNotAllowed = errors.New("OVERRIDE_NOT_ALLOWED")
	ErrNotADocumentField  = errors.New("NOT_A_DOCUMENT_FIELD")
	ErrDocumentField      = errors.New("DOCUMENT_FIELD")
)

// overrides pairs each selection field with its free-text field.
var overrides = map[FieldName]FieldName{
	FieldMedicalProblem: FieldMedicalProblemOther,
	FieldLeaveDuration:  FieldLeaveDurationOther,
}

func overrideOf(field FieldName) (FieldName, bool) {
	o, ok := overrides[field]
	return o, ok
}

func selectionOf(override FieldName) (FieldName, bool) {
	for sel, o := range overrides {
		if o == override {
			return sel, true
		}
	}
	return "", false
}

// IsDocumentField reports whether the field holds an uploaded file reference.
func IsDocumentField(field FieldName) bool {
	switch field {
	case FieldGovtIDProof, FieldCaretakerGovtIDProof, FieldSpecialFormatFile:
		return true
	}
	return false
}

var requiredMessages = map[FieldName]string{
	FieldFirstName:             "First name is required",
	FieldLastName:              "Last name is required",
	FieldPhone:                 "Phone number is required",
	FieldEmail:                 "Email is required",
	FieldGender:                "Gender is required",
	FieldDateOfBirth:           "Date of birth is required",
	FieldOrganizationName:      "Organization name is required",
	FieldCity:                  "City is required",
	FieldState:                 "State is required",
	FieldPostalCode:            "Postal code is required",
	FieldMedicalProblem:        "Medical problem is required",
	FieldMedicalProblemOther:   "Please specify the medical problem",
	FieldLeaveDuration:         "Leave duration is required",
	FieldLeaveDurationOther:    "Please specify the duration",
	FieldCertificateStartDate:  "Certificate start date is required",
	FieldGovtIDProof:           "Government ID proof is required",
	FieldCaretakerFirstName:    "Caretaker first name is required",
	FieldCaretakerLastName:     "Caretaker last name is required",
	FieldCaretakerDob:          "Caretaker date of birth is required",
	FieldCaretakerRelationship: "Relationship is required",
	FieldCaretakerCity:         "City is required",
	FieldCaretakerState:        "State is required",
	FieldCaretakerPostalCode:   "Postal code is required",
	FieldCaretakerGovtIDProof:  "Caretaker ID proof is required",
	FieldSelectedPaymentOption: "Please select a payment option",
	FieldTermsAccepted:         "You must accept the terms and conditions",
}

const (
	msgInvalidEmail         = "Please enter a valid email address"
	msgInvalidPhone         = "Please enter a valid phone number"
	msgInvalidDate          = "Please enter a valid date (YYYY-MM-DD)"
	msgInvalidPaymentOption = "Please select a valid payment option"
	msgInvalidOption        = "Please select an option from the list"
)
