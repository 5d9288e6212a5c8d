package validatecertificateapplication

import "encoding/json"

type Input struct {
	SessionID  string          `json:"sessionId"`
	Submission json.RawMessage `json:"submission"`
}

type Output struct {
	IsValid         bool   `json:"isValid"`
	CertificateType string `json:"certificateType"`
	ApplicantName   string `json:"applicantName"`
	TotalAmount     int    `json:"totalAmount"`
	ValidatedAt     string `json:"validatedAt"` // ISO 8601
}
