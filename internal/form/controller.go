package form

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"medcert-apply/internal/catalog"
	"medcert-apply/internal/common/validation"
)

var (
	ErrUnknownCertificateType = errors.New("UNKNOWN_CERTIFICATE_TYPE")
	ErrPhoneMismatch          = errors.New("PHONE_MISMATCH")
)

// Snapshot is the serialisable form of a controller.
type Snapshot struct {
	Step   int                  `json:"step"`
	State  State                `json:"state"`
	Errors map[FieldName]string `json:"errors,omitempty"`
}

// Controller drives one application form. Every update replaces the state
// value wholesale. A controller is owned by a single request and is not safe
// for concurrent use.
type Controller struct {
	state  State
	step   int
	errors map[FieldName]string
}

func NewController(certificateType string) (*Controller, error) {
	if !catalog.IsCertificateType(certificateType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCertificateType, certificateType)
	}
	return &Controller{state: NewState(certificateType), step: 1}, nil
}

// Restore rebuilds a controller from a stored snapshot. The step is clamped
// into range for the snapshot's certificate type.
func Restore(snap Snapshot) (*Controller, error) {
	if !catalog.IsCertificateType(snap.State.CertificateType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCertificateType, snap.State.CertificateType)
	}
	c := &Controller{state: snap.State, step: snap.Step, errors: copyErrors(snap.Errors)}
	c.step = clampStep(c.step, TotalSteps(c.state.CertificateType))
	return c, nil
}

func (c *Controller) Snapshot() Snapshot {
	return Snapshot{Step: c.step, State: c.state, Errors: copyErrors(c.errors)}
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Step() int { return c.step }

func (c *Controller) TotalSteps() int { return TotalSteps(c.state.CertificateType) }

func (c *Controller) StepKind() StepKind {
	kind, _ := StepKindFor(c.step, c.state.CertificateType)
	return kind
}

// Errors returns the errors recorded by the last Next, minus fields edited
// since.
func (c *Controller) Errors() map[FieldName]string { return copyErrors(c.errors) }

func (c *Controller) RequiredFields() []FieldName {
	return RequiredFieldsFor(c.step, c.state.CertificateType, c.state)
}

// Set applies one field update. The field's error is cleared, as is the
// error of its paired selection or override.
func (c *Controller) Set(field FieldName, value string) error {
	next, err := c.state.With(field, value)
	if err != nil {
		return err
	}
	c.state = next
	c.clearErrors(field)
	return nil
}

// SetFields applies a batch of updates. Selections are applied before their
// free-text overrides. The batch is all or nothing.
func (c *Controller) SetFields(fields map[FieldName]string) error {
	names := make([]FieldName, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Slice(names, func(i, j int) bool {
		_, oi := selectionOf(names[i])
		_, oj := selectionOf(names[j])
		if oi != oj {
			return !oi
		}
		return names[i] < names[j]
	})

	next := *c
	for _, f := range names {
		if err := next.Set(f, fields[f]); err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
	}
	*c = next
	return nil
}

func (c *Controller) SetDocument(field FieldName, doc *Document) error {
	next, err := c.state.WithDocument(field, doc)
	if err != nil {
		return err
	}
	c.state = next
	c.clearErrors(field)
	return nil
}

// SetCertificateType switches the form to another certificate type. Values
// already entered are kept; the step is clamped to the new total.
func (c *Controller) SetCertificateType(id string) error {
	if !catalog.IsCertificateType(id) {
		return fmt.Errorf("%w: %q", ErrUnknownCertificateType, id)
	}
	next := c.state
	next.CertificateType = id
	c.state = next
	c.step = clampStep(c.step, TotalSteps(id))
	c.errors = nil
	return nil
}

// MarkPhoneVerified records a successful OTP check for the current phone.
// Numbers are compared in E.164 form.
func (c *Controller) MarkPhoneVerified(phone string) error {
	current := c.state.Personal.Phone
	if current == "" || validation.NormalizePhone(phone) != validation.NormalizePhone(current) {
		return ErrPhoneMismatch
	}
	next := c.state
	next.PhoneVerified = true
	c.state = next
	return nil
}

// Validate checks one step without recording the result.
func (c *Controller) Validate(step int) map[FieldName]string {
	return ValidateStep(step, c.state.CertificateType, c.state)
}

// Next validates the current step and advances when it is valid. The
// errors are recorded either way.
func (c *Controller) Next() bool {
	errs := c.Validate(c.step)
	c.errors = errs
	if len(errs) > 0 {
		return false
	}
	c.step = Advance(c.step, c.TotalSteps())
	return true
}

// Back retreats one step without validating.
func (c *Controller) Back() {
	c.step = Retreat(c.step)
	c.errors = nil
}

func (c *Controller) Total() int {
	return CalculateTotal(c.state.Payment.SelectedOption, c.state.Payment.SpecialFormat)
}

func (c *Controller) Quote() (*PriceQuote, error) {
	return Quote(c.state.Payment.SelectedOption, c.state.Payment.SpecialFormat)
}

// Submit assembles the submission. On failure the errors of the current
// step are recorded so the client can show them.
func (c *Controller) Submit(now time.Time) (*Submission, error) {
	sub, err := Assemble(c.state, now)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			c.errors = copyErrors(verr.Steps[c.step])
		}
		return nil, err
	}
	c.errors = nil
	return sub, nil
}

func (c *Controller) clearErrors(field FieldName) {
	if len(c.errors) == 0 {
		return
	}
	next := copyErrors(c.errors)
	delete(next, field)
	if o, ok := overrideOf(field); ok {
		delete(next, o)
	}
	if sel, ok := selectionOf(field); ok {
		delete(next, sel)
	}
	c.errors = next
}

func copyErrors(in map[FieldName]string) map[FieldName]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[FieldName]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func clampStep(step, total int) int {
	if step < 1 {
		return 1
	}
	if step > total {
		return total
	}
	return step
}
