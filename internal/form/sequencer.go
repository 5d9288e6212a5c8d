package form

import "medcert-apply/internal/catalog"

type StepKind string

const (
	StepPersonal  StepKind = "personal"
	StepMedical   StepKind = "medical"
	StepCaretaker StepKind = "caretaker"
	StepPayment   StepKind = "payment"
)

// TotalSteps is 4 for the caretaker certificate (Personal, Medical,
// Caretaker, Payment) and 3 for every other type.
func TotalSteps(certificateType string) int {
	if catalog.IsCaretaker(certificateType) {
		return 4
	}
	return 3
}

// StepKindFor maps a 1-based step number to its kind for a certificate type.
func StepKindFor(step int, certificateType string) (StepKind, bool) {
	total := TotalSteps(certificateType)
	switch {
	case step < 1 || step > total:
		return "", false
	case step == 1:
		return StepPersonal, true
	case step == 2:
		return StepMedical, true
	case step == total:
		return StepPayment, true
	default:
		return StepCaretaker, true
	}
}

// Advance moves one step forward, never past total. Callers must validate
// the current step first.
func Advance(step, total int) int {
	if step+1 > total {
		return total
	}
	return step + 1
}

// Retreat moves one step back, never below 1.
func Retreat(step int) int {
	if step-1 < 1 {
		return 1
	}
	return step - 1
}
