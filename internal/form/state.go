package form

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"medcert-apply/internal/catalog"
)

var sanitizer = bluemonday.StrictPolicy()

// Document references an uploaded file in object storage.
type Document struct {
	Key         string `json:"key"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type Personal struct {
	FirstName            string  `json:"firstName"`
	LastName             string  `json:"lastName"`
	Phone                string  `json:"phone"`
	Email                string  `json:"email"`
	Gender               string  `json:"gender"`
	DateOfBirth          string  `json:"dateOfBirth"`
	GuardianRelationship string  `json:"guardianRelationship,omitempty"`
	GuardianName         string  `json:"guardianName,omitempty"`
	Address              Address `json:"address"`
	OrganizationName     string  `json:"organizationName"`
	OrganizationLocation string  `json:"organizationLocation"`
}

type Medical struct {
	MedicalProblem       Selection `json:"medicalProblem"`
	LeaveDuration        Selection `json:"leaveDuration"`
	CertificateStartDate string    `json:"certificateStartDate"`
	GovtIDProof          *Document `json:"govtIdProof,omitempty"`
}

type Caretaker struct {
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	DateOfBirth  string    `json:"dateOfBirth"`
	Relationship string    `json:"relationship"`
	Address      Address   `json:"address"`
	GovtIDProof  *Document `json:"govtIdProof,omitempty"`
}

type Payment struct {
	SelectedOption    string    `json:"selectedPaymentOption"`
	SpecialFormat     bool      `json:"specialFormat"`
	SpecialFormatFile *Document `json:"specialFormatFile,omitempty"`
	TermsAccepted     bool      `json:"termsAccepted"`
}

// State is the application form. It is a value: every update returns a new
// State and leaves the receiver untouched. Document pointers are never
// written through.
type State struct {
	CertificateType string    `json:"certificateType"`
	Personal        Personal  `json:"personal"`
	Medical         Medical   `json:"medical"`
	Caretaker       Caretaker `json:"caretaker"`
	Payment         Payment   `json:"payment"`
	PhoneVerified   bool      `json:"phoneVerified"`
}

// NewState returns an empty form for a certificate type with the site
// defaults applied.
func NewState(certificateType string) State {
	return State{
		CertificateType: certificateType,
		Personal: Personal{
			Address:              Address{Country: catalog.DefaultCountry},
			OrganizationLocation: catalog.DefaultCountry,
		},
		Caretaker: Caretaker{
			Address: Address{Country: catalog.DefaultCountry},
		},
	}
}

var angleStripper = strings.NewReplacer("<", "", ">", "")

// clean reduces v to plain text. Entity-encoded markup is decoded before
// sanitising, repeatedly, so nested encodings cannot survive as live tags.
func clean(v string) string {
	for i := 0; i < 4; i++ {
		next := html.UnescapeString(sanitizer.Sanitize(html.UnescapeString(v)))
		if next == v {
			break
		}
		v = next
	}
	return strings.TrimSpace(angleStripper.Replace(v))
}

func checkOption(options []string, v string) error {
	if v != "" && !catalog.Contains(options, v) {
		return fmt.Errorf("%w: %q", ErrInvalidOption, v)
	}
	return nil
}

// With returns a copy of s with one field set from its wire value.
func (s State) With(field FieldName, value string) (State, error) {
	v := clean(value)

	switch field {
	case FieldFirstName:
		s.Personal.FirstName = v
	case FieldLastName:
		s.Personal.LastName = v
	case FieldPhone:
		if v != s.Personal.Phone {
			s.PhoneVerified = false
		}
		s.Personal.Phone = v
	case FieldEmail:
		s.Personal.Email = v
	case FieldGender:
		if err := checkOption(catalog.Genders, v); err != nil {
			return s, err
		}
		s.Personal.Gender = v
	case FieldDateOfBirth:
		s.Personal.DateOfBirth = v
	case FieldGuardianRelationship:
		if err := checkOption(catalog.GuardianRelationships, v); err != nil {
			return s, err
		}
		s.Personal.GuardianRelationship = v
	case FieldGuardianName:
		s.Personal.GuardianName = v
	case FieldAddress:
		s.Personal.Address.Street = v
	case FieldCity:
		s.Personal.Address.City = v
	case FieldState:
		s.Personal.Address.State = v
	case FieldPostalCode:
		s.Personal.Address.PostalCode = v
	case FieldCountry:
		s.Personal.Address.Country = v
	case FieldOrganizationName:
		s.Personal.OrganizationName = v
	case FieldOrganizationLocation:
		s.Personal.OrganizationLocation = v

	case FieldMedicalProblem:
		sel, err := pick(s.Medical.MedicalProblem, catalog.MedicalProblems, v)
		if err != nil {
			return s, err
		}
		s.Medical.MedicalProblem = sel
	case FieldMedicalProblemOther:
		sel, err := override(s.Medical.MedicalProblem, field, v)
		if err != nil {
			return s, err
		}
		s.Medical.MedicalProblem = sel
	case FieldLeaveDuration:
		sel, err := pick(s.Medical.LeaveDuration, catalog.LeaveDurations, v)
		if err != nil {
			return s, err
		}
		s.Medical.LeaveDuration = sel
	case FieldLeaveDurationOther:
		sel, err := override(s.Medical.LeaveDuration, field, v)
		if err != nil {
			return s, err
		}
		s.Medical.LeaveDuration = sel
	case FieldCertificateStartDate:
		s.Medical.CertificateStartDate = v

	case FieldCaretakerFirstName:
		s.Caretaker.FirstName = v
	case FieldCaretakerLastName:
		s.Caretaker.LastName = v
	case FieldCaretakerDob:
		s.Caretaker.DateOfBirth = v
	case FieldCaretakerRelationship:
		if err := checkOption(catalog.CaretakerRelationships, v); err != nil {
			return s, err
		}
		s.Caretaker.Relationship = v
	case FieldCaretakerAddress:
		s.Caretaker.Address.Street = v
	case FieldCaretakerCity:
		s.Caretaker.Address.City = v
	case FieldCaretakerState:
		s.Caretaker.Address.State = v
	case FieldCaretakerPostalCode:
		s.Caretaker.Address.PostalCode = v
	case FieldCaretakerCountry:
		s.Caretaker.Address.Country = v

	case FieldSelectedPaymentOption:
		s.Payment.SelectedOption = v
	case FieldSpecialFormat:
		b, err := parseBool(field, v)
		if err != nil {
			return s, err
		}
		s.Payment.SpecialFormat = b
	case FieldTermsAccepted:
		b, err := parseBool(field, v)
		if err != nil {
			return s, err
		}
		s.Payment.TermsAccepted = b

	case FieldGovtIDProof, FieldCaretakerGovtIDProof, FieldSpecialFormatFile:
		return s, fmt.Errorf("%w: %s is set through an upload", ErrDocumentField, field)
	default:
		return s, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return s, nil
}

// WithDocument returns a copy of s with an uploaded file attached. A nil
// document detaches the file.
func (s State) WithDocument(field FieldName, doc *Document) (State, error) {
	var d *Document
	if doc != nil {
		cp := *doc
		d = &cp
	}

	switch field {
	case FieldGovtIDProof:
		s.Medical.GovtIDProof = d
	case FieldCaretakerGovtIDProof:
		s.Caretaker.GovtIDProof = d
	case FieldSpecialFormatFile:
		s.Payment.SpecialFormatFile = d
	default:
		return s, fmt.Errorf("%w: %s", ErrNotADocumentField, field)
	}
	return s, nil
}

func pick(current Selection, options []string, v string) (Selection, error) {
	switch {
	case v == "":
		return Selection{}, nil
	case v == catalog.OtherOption:
		if current.IsOther() {
			return current, nil
		}
		return Other(""), nil
	case catalog.Contains(options, v):
		return Known(v), nil
	}
	return current, fmt.Errorf("%w: %q", ErrInvalidOption, v)
}

func override(current Selection, field FieldName, v string) (Selection, error) {
	if !current.IsOther() {
		return current, fmt.Errorf("%w: %s requires %q to be selected", ErrOverrideNotAllowed, field, catalog.OtherOption)
	}
	return Other(v), nil
}

func parseBool(field FieldName, v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false", ErrInvalidValue, field)
	}
	return b, nil
}

// Value returns the wire value of a field for presence checks. Selections
// report their choice, overrides their free text, documents their key.
func (s State) Value(field FieldName) string {
	switch field {
	case FieldFirstName:
		return s.Personal.FirstName
	case FieldLastName:
		return s.Personal.LastName
	case FieldPhone:
		return s.Personal.Phone
	case FieldEmail:
		return s.Personal.Email
	case FieldGender:
		return s.Personal.Gender
	case FieldDateOfBirth:
		return s.Personal.DateOfBirth
	case FieldGuardianRelationship:
		return s.Personal.GuardianRelationship
	case FieldGuardianName:
		return s.Personal.GuardianName
	case FieldAddress:
		return s.Personal.Address.Street
	case FieldCity:
		return s.Personal.Address.City
	case FieldState:
		return s.Personal.Address.State
	case FieldPostalCode:
		return s.Personal.Address.PostalCode
	case FieldCountry:
		return s.Personal.Address.Country
	case FieldOrganizationName:
		return s.Personal.OrganizationName
	case FieldOrganizationLocation:
		return s.Personal.OrganizationLocation
	case FieldMedicalProblem:
		return s.Medical.MedicalProblem.Choice()
	case FieldMedicalProblemOther:
		return s.Medical.MedicalProblem.Override()
	case FieldLeaveDuration:
		return s.Medical.LeaveDuration.Choice()
	case FieldLeaveDurationOther:
		return s.Medical.LeaveDuration.Override()
	case FieldCertificateStartDate:
		return s.Medical.CertificateStartDate
	case FieldGovtIDProof:
		return docKey(s.Medical.GovtIDProof)
	case FieldCaretakerFirstName:
		return s.Caretaker.FirstName
	case FieldCaretakerLastName:
		return s.Caretaker.LastName
	case FieldCaretakerDob:
		return s.Caretaker.DateOfBirth
	case FieldCaretakerRelationship:
		return s.Caretaker.Relationship
	case FieldCaretakerAddress:
		return s.Caretaker.Address.Street
	case FieldCaretakerCity:
		return s.Caretaker.Address.City
	case FieldCaretakerState:
		return s.Caretaker.Address.State
	case FieldCaretakerPostalCode:
		return s.Caretaker.Address.PostalCode
	case FieldCaretakerCountry:
		return s.Caretaker.Address.Country
	case FieldCaretakerGovtIDProof:
		return docKey(s.Caretaker.GovtIDProof)
	case FieldSelectedPaymentOption:
		return s.Payment.SelectedOption
	case FieldSpecialFormat:
		return boolValue(s.Payment.SpecialFormat)
	case FieldSpecialFormatFile:
		return docKey(s.Payment.SpecialFormatFile)
	case FieldTermsAccepted:
		return boolValue(s.Payment.TermsAccepted)
	}
	return ""
}

func docKey(d *Document) string {
	if d == nil {
		return ""
	}
	return d.Key
}

// boolValue maps false to "" so an unchecked box reads as missing.
func boolValue(b bool) string {
	if b {
		return "true"
	}
	return ""
}
