package sendapplicationnotification

import (
	"text/template"

	"medcert-apply/internal/form"
)

const (
	StatusSent     = "sent"
	StatusDisabled = "disabled"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

type Input struct {
	ApplicationID   string           `json:"applicationId"`
	PaymentIntentID string           `json:"paymentIntentId,omitempty"`
	Email           string           `json:"email"`
	Phone           string           `json:"phone"`
	TotalAmount     int              `json:"totalAmount"`
	Submission      *form.Submission `json:"submission"`
}

type Output struct {
	NotificationID     string   `json:"notificationId"`
	NotificationStatus string   `json:"notificationStatus"`
	Channels           []string `json:"notificationChannels"`
	SentAt             string   `json:"notificationSentAt"`
}

type messageTemplates struct {
	Subject *template.Template
	Body    *template.Template
	SMS     *template.Template
}

// Missing keys render as empty text.
func newTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Option("missingkey=zero").Parse(text))
}

var confirmationTemplate = messageTemplates{
	Subject: newTemplate("subject", "We have received your {{.certificateName}} application"),
	Body: newTemplate("body", "Dear {{.applicantName}},\n\n"+
		"Thank you for applying for a {{.certificateName}}. Your application reference is {{.applicationId}}.\n"+
		"Amount payable: {{.totalDisplay}} (payment reference {{.paymentIntentId}}).\n\n"+
		"A registered doctor will review your details and contact you on {{.phoneDisplay}} if anything else is needed.\n"),
	SMS: newTemplate("sms", "Application {{.applicationId}} for {{.certificateName}} received. Amount {{.totalDisplay}}. We will contact you shortly."),
}
