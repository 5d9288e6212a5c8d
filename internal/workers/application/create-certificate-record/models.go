package createcertificaterecord

import "medcert-apply/internal/form"

type Input struct {
	SessionID  string           `json:"sessionId"`
	Submission *form.Submission `json:"submission"`
}

type Output struct {
	ApplicationID     string `json:"applicationId"`
	ApplicationStatus string `json:"applicationStatus"`
	CreatedAt         string `json:"createdAt"` // ISO 8601
}

// StatusSubmitted is the status of a freshly recorded application.
const StatusSubmitted = "submitted"
