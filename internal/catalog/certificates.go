// Package catalog holds the static certificate and payment tables offered by
// the service. Everything here is read-only at runtime.
package catalog

import "errors"

const CaretakerCertificateID = "caretaker"

const (
	CategoryLeave   = "leave"
	CategoryFitness = "fitness"
	CategoryMedical = "medical"
)

var ErrCertificateTypeNotFound = errors.New("CERTIFICATE_TYPE_NOT_FOUND")

type CertificateType struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	LongDescription string `json:"longDescription"`
	Icon            string `json:"icon"`
	Category        string `json:"category"`
	FormTemplate    string `json:"formTemplate"`
	BasePrice       int    `json:"basePrice"`
	Duration        string `json:"duration"`
}

var certificateTypes = []CertificateType{
	{
		ID:              "sick-leave",
		Name:            "Sick Leave Certificate",
		Description:     "Medical certificate for sick leave from work or school",
		LongDescription: "Get a valid sick leave certificate from a registered medical practitioner after an online consultation.",
		Icon:            "thermometer",
		Category:        CategoryLeave,
		FormTemplate:    "sick-leave",
		BasePrice:       599,
		Duration:        "1-3 days",
	},
	{
		ID:              "fitness",
		Name:            "Fitness Certificate",
		Description:     "Certificate confirming physical fitness for work or activity",
		LongDescription: "A fitness certificate confirming that you are medically fit to join work, sport or an academic programme.",
		Icon:            "activity",
		Category:        CategoryFitness,
		FormTemplate:    "fitness",
		BasePrice:       599,
		Duration:        "Valid for 1 year",
	},
	{
		ID:              "work-from-home",
		Name:            "Work From Home Certificate",
		Description:     "Medical recommendation to work from home",
		LongDescription: "A doctor's recommendation that you work from home while recovering from an illness or condition.",
		Icon:            "home",
		Category:        CategoryLeave,
		FormTemplate:    "work-from-home",
		BasePrice:       599,
		Duration:        "As recommended",
	},
	{
		ID:              "unfit-to-travel",
		Name:            "Unfit to Travel Certificate",
		Description:     "Certificate stating you are medically unfit to travel",
		LongDescription: "Use for travel cancellations, refunds or insurance claims when you cannot travel for medical reasons.",
		Icon:            "plane-off",
		Category:        CategoryFitness,
		FormTemplate:    "unfit-to-travel",
		BasePrice:       599,
		Duration:        "As needed",
	},
	{
		ID:              "unfit-to-work",
		Name:            "Unfit to Work Certificate",
		Description:     "Certificate stating you are medically unfit to work",
		LongDescription: "Confirms that a medical condition prevents you from performing your duties for a period of time.",
		Icon:            "briefcase",
		Category:        CategoryFitness,
		FormTemplate:    "unfit-to-work",
		BasePrice:       599,
		Duration:        "As needed",
	},
	{
		ID:              "medical-diagnosis",
		Name:            "Medical Diagnosis Certificate",
		Description:     "Certificate documenting a medical diagnosis",
		LongDescription: "A certificate recording the diagnosis made during your consultation for official or insurance use.",
		Icon:            "stethoscope",
		Category:        CategoryMedical,
		FormTemplate:    "medical-diagnosis",
		BasePrice:       599,
		Duration:        "As required",
	},
	{
		ID:              CaretakerCertificateID,
		Name:            "Caretaker Certificate",
		Description:     "Leave certificate for caring for an ill family member",
		LongDescription: "Certifies that you need leave to look after a family member who is unwell. Requires the caretaker's details.",
		Icon:            "heart-handshake",
		Category:        CategoryLeave,
		FormTemplate:    "caretaker",
		BasePrice:       599,
		Duration:        "As needed",
	},
	{
		ID:              "recovery",
		Name:            "Recovery Certificate",
		Description:     "Certificate confirming recovery from an illness",
		LongDescription: "Confirms that you have recovered and are fit to resume work or studies after an illness.",
		Icon:            "heart-pulse",
		Category:        CategoryLeave,
		FormTemplate:    "recovery",
		BasePrice:       599,
		Duration:        "Post-illness",
	},
	{
		ID:              "fit-to-fly",
		Name:            "Fit to Fly Certificate",
		Description:     "Certificate confirming you are fit to travel by air",
		LongDescription: "Required by some airlines for passengers who are pregnant, recovering from surgery or living with a condition.",
		Icon:            "plane",
		Category:        CategoryFitness,
		FormTemplate:    "fit-to-fly",
		BasePrice:       599,
		Duration:        "As required",
	},
}

var certificateIndex = func() map[string]CertificateType {
	idx := make(map[string]CertificateType, len(certificateTypes))
	for _, c := range certificateTypes {
		idx[c.ID] = c
	}
	return idx
}()

// CertificateTypes returns a copy of the catalog in display order.
func CertificateTypes() []CertificateType {
	out := make([]CertificateType, len(certificateTypes))
	copy(out, certificateTypes)
	return out
}

func FindCertificateType(id string) (CertificateType, error) {
	c, ok := certificateIndex[id]
	if !ok {
		return CertificateType{}, ErrCertificateTypeNotFound
	}
	return c, nil
}

func IsCertificateType(id string) bool {
	_, ok := certificateIndex[id]
	return ok
}

func IsCaretaker(id string) bool {
	return id == CaretakerCertificateID
}
