package indexcertificatesubmission

import "medcert-apply/internal/form"

type Input struct {
	ApplicationID     string           `json:"applicationId"`
	ApplicationStatus string           `json:"applicationStatus,omitempty"`
	PaymentIntentID   string           `json:"paymentIntentId,omitempty"`
	SessionID         string           `json:"sessionId"`
	Submission        *form.Submission `json:"submission"`
}

type Output struct {
	Indexed    bool   `json:"indexed"`
	IndexName  string `json:"indexName"`
	DocumentID string `json:"documentId"`
	Result     string `json:"indexResult"` // created or updated
}

// SearchDocument is what support staff search on.
type SearchDocument struct {
	ApplicationID   string `json:"applicationId"`
	SessionID       string `json:"sessionId"`
	Status          string `json:"status"`
	CertificateType string `json:"certificateType"`
	CertificateName string `json:"certificateName"`
	ApplicantName   string `json:"applicantName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	City            string `json:"city"`
	State           string `json:"state"`
	Organization    string `json:"organization"`
	PaymentOption   string `json:"paymentOption"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
	TotalAmount     int    `json:"totalAmount"`
	SubmittedAt     string `json:"submittedAt"`
	IndexedAt       string `json:"indexedAt"`
}

// IndexMapping is applied when the index is created at startup.
const IndexMapping = `{
	"mappings": {
		"properties": {
			"applicationId":   {"type": "keyword"},
			"sessionId":       {"type": "keyword"},
			"status":          {"type": "keyword"},
			"certificateType": {"type": "keyword"},
			"certificateName": {"type": "text"},
			"applicantName":   {"type": "text", "fields": {"raw": {"type": "keyword"}}},
			"email":           {"type": "keyword"},
			"phone":           {"type": "keyword"},
			"city":            {"type": "keyword"},
			"state":           {"type": "keyword"},
			"organization":    {"type": "text"},
			"paymentOption":   {"type": "keyword"},
			"paymentIntentId": {"type": "keyword"},
			"totalAmount":     {"type": "integer"},
			"submittedAt":     {"type": "date"},
			"indexedAt":       {"type": "date"}
		}
	}
}`
