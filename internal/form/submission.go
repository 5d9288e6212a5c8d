package form

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"medcert-apply/internal/catalog"
)

var ErrValidationFailed = errors.New("APPLICATION_VALIDATION_FAILED")

// ValidationError lists every step that still has outstanding errors.
type ValidationError struct {
	Steps map[int]map[FieldName]string `json:"steps"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for steps %v", e.InvalidSteps())
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

func (e *ValidationError) InvalidSteps() []int {
	steps := make([]int, 0, len(e.Steps))
	for s := range e.Steps {
		steps = append(steps, s)
	}
	sort.Ints(steps)
	return steps
}

// Submission is the hand-off record produced from a fully valid form.
type Submission struct {
	CertificateType string     `json:"certificateType"`
	Personal        Personal   `json:"personal"`
	Medical         Medical    `json:"medical"`
	Caretaker       *Caretaker `json:"caretaker,omitempty"`
	Payment         Payment    `json:"payment"`
	PhoneVerified   bool       `json:"phoneVerified"`
	TotalAmount     int        `json:"totalAmount"`
	Currency        string     `json:"currency"`
	SubmittedAt     string     `json:"submittedAt"`
}

// Assemble re-validates every step and builds the submission record.
// Caretaker details are included only for the caretaker certificate.
func Assemble(s State, now time.Time) (*Submission, error) {
	if invalid := ValidateAll(s); len(invalid) > 0 {
		return nil, &ValidationError{Steps: invalid}
	}

	sub := &Submission{
		CertificateType: s.CertificateType,
		Personal:        s.Personal,
		Medical:         s.Medical,
		Payment:         s.Payment,
		PhoneVerified:   s.PhoneVerified,
		TotalAmount:     CalculateTotal(s.Payment.SelectedOption, s.Payment.SpecialFormat),
		Currency:        catalog.Currency,
		SubmittedAt:     now.UTC().Format(time.RFC3339),
	}
	if catalog.IsCaretaker(s.CertificateType) {
		c := s.Caretaker
		sub.Caretaker = &c
	}
	return sub, nil
}

// State rebuilds the form state a submission was assembled from, so a
// consumer can re-run validation.
func (sub *Submission) State() State {
	s := State{
		CertificateType: sub.CertificateType,
		Personal:        sub.Personal,
		Medical:         sub.Medical,
		Payment:         sub.Payment,
		PhoneVerified:   sub.PhoneVerified,
	}
	if sub.Caretaker != nil {
		s.Caretaker = *sub.Caretaker
	}
	return s
}

// ApplicantName is the display name used in notifications.
func (sub *Submission) ApplicantName() string {
	return sub.Personal.FirstName + " " + sub.Personal.LastName
}
