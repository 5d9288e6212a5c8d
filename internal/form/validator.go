package form

import (
	"strings"
	"time"

	"medcert-apply/internal/catalog"
	"medcert-apply/internal/common/validation"
)

const dateLayout = "2006-01-02"

var (
	personalFields = []FieldName{
		FieldFirstName, FieldLastName, FieldPhone, FieldEmail, FieldGender,
		FieldDateOfBirth, FieldOrganizationName, FieldCity, FieldState, FieldPostalCode,
	}
	caretakerFields = []FieldName{
		FieldCaretakerFirstName, FieldCaretakerLastName, FieldCaretakerDob,
		FieldCaretakerRelationship, FieldCaretakerCity, FieldCaretakerState,
		FieldCaretakerPostalCode, FieldCaretakerGovtIDProof,
	}
	paymentFields = []FieldName{FieldSelectedPaymentOption, FieldTermsAccepted}
)

// RequiredFieldsFor lists the fields that must be non-empty at a step. The
// result depends on the current values only through the "Other" selections.
func RequiredFieldsFor(step int, certificateType string, s State) []FieldName {
	kind, ok := StepKindFor(step, certificateType)
	if !ok {
		return nil
	}

	switch kind {
	case StepPersonal:
		return append([]FieldName(nil), personalFields...)
	case StepMedical:
		fields := []FieldName{FieldMedicalProblem}
		if s.Medical.MedicalProblem.IsOther() {
			fields = append(fields, FieldMedicalProblemOther)
		}
		fields = append(fields, FieldLeaveDuration)
		if s.Medical.LeaveDuration.IsOther() {
			fields = append(fields, FieldLeaveDurationOther)
		}
		return append(fields, FieldCertificateStartDate, FieldGovtIDProof)
	case StepCaretaker:
		return append([]FieldName(nil), caretakerFields...)
	default:
		return append([]FieldName(nil), paymentFields...)
	}
}

// ValidateStep returns field -> message for every rule the step violates.
// An empty map means the step is valid. It performs no I/O.
func ValidateStep(step int, certificateType string, s State) map[FieldName]string {
	errs := make(map[FieldName]string)

	for _, f := range RequiredFieldsFor(step, certificateType, s) {
		if strings.TrimSpace(s.Value(f)) == "" {
			errs[f] = requiredMessages[f]
		}
	}

	kind, _ := StepKindFor(step, certificateType)
	switch kind {
	case StepPersonal:
		if _, missing := errs[FieldEmail]; !missing && !validation.ValidateEmail(s.Personal.Email) {
			errs[FieldEmail] = msgInvalidEmail
		}
		if _, missing := errs[FieldPhone]; !missing && !validation.ValidatePhone(s.Personal.Phone) {
			errs[FieldPhone] = msgInvalidPhone
		}
		checkDate(errs, FieldDateOfBirth, s.Personal.DateOfBirth)
		checkListed(errs, FieldGender, s.Personal.Gender, catalog.Genders)
		checkListed(errs, FieldGuardianRelationship, s.Personal.GuardianRelationship, catalog.GuardianRelationships)
	case StepMedical:
		checkDate(errs, FieldCertificateStartDate, s.Medical.CertificateStartDate)
		checkSelection(errs, FieldMedicalProblem, s.Medical.MedicalProblem, catalog.MedicalProblems)
		checkSelection(errs, FieldLeaveDuration, s.Medical.LeaveDuration, catalog.LeaveDurations)
	case StepCaretaker:
		checkDate(errs, FieldCaretakerDob, s.Caretaker.DateOfBirth)
		checkListed(errs, FieldCaretakerRelationship, s.Caretaker.Relationship, catalog.CaretakerRelationships)
	case StepPayment:
		if _, missing := errs[FieldSelectedPaymentOption]; !missing && !catalog.IsPaymentOption(s.Payment.SelectedOption) {
			errs[FieldSelectedPaymentOption] = msgInvalidPaymentOption
		}
	}

	return errs
}

func checkDate(errs map[FieldName]string, field FieldName, v string) {
	if _, missing := errs[field]; missing {
		return
	}
	if _, err := time.Parse(dateLayout, v); err != nil {
		errs[field] = msgInvalidDate
	}
}

// checkListed flags a non-empty value that is not one of options.
func checkListed(errs map[FieldName]string, field FieldName, v string, options []string) {
	if _, missing := errs[field]; missing || v == "" {
		return
	}
	if !catalog.Contains(options, v) {
		errs[field] = msgInvalidOption
	}
}

func checkSelection(errs map[FieldName]string, field FieldName, sel Selection, options []string) {
	if sel.IsOther() {
		return
	}
	checkListed(errs, field, sel.Choice(), options)
}

// ValidateAll checks every step of the state's certificate type and returns
// the failing steps only.
func ValidateAll(s State) map[int]map[FieldName]string {
	out := make(map[int]map[FieldName]string)
	for step := 1; step <= TotalSteps(s.CertificateType); step++ {
		if errs := ValidateStep(step, s.CertificateType, s); len(errs) > 0 {
			out[step] = errs
		}
	}
	return out
}
