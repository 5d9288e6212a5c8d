package sendapplicationnotification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"medcert-apply/internal/catalog"
	apperrors "medcert-apply/internal/common/errors"
	"medcert-apply/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-application-notification"
)

var (
	ErrInvalidInput           = errors.New("INVALID_INPUT")
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config    *Config
	logger    logger.Logger
	errors    *apperrors.ErrorHandler
	sesClient SESService
	snsClient SNSService
	now       func() time.Time
	newID     func() string
}

func NewHandler(config *Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		logger:    l,
		errors:    apperrors.NewErrorHandler(l),
		sesClient: sesClient,
		snsClient: snsClient,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(ctx, client, job, apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "parse input", err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, toStandardError(err))
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// execute sends the confirmation on every enabled channel the applicant has
// a contact for. A failed SMS after a delivered email is logged only, so a
// retry does not mail the applicant twice.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" {
		return nil, fmt.Errorf("%w: applicationId is required", ErrInvalidInput)
	}

	data := h.templateData(input)
	subject, err := renderTemplate(confirmationTemplate.Subject, data)
	if err != nil {
		return nil, err
	}
	body, err := renderTemplate(confirmationTemplate.Body, data)
	if err != nil {
		return nil, err
	}
	sms, err := renderTemplate(confirmationTemplate.SMS, data)
	if err != nil {
		return nil, err
	}

	channels := []string{}

	if h.config.EmailEnabled && input.Email != "" {
		if err := h.sendEmail(ctx, input.Email, subject, body); err != nil {
			return nil, fmt.Errorf("%w: email: %v", ErrNotificationSendFailed, err)
		}
		channels = append(channels, ChannelEmail)
	}

	if h.config.SMSEnabled && input.Phone != "" {
		err := h.sendSMS(ctx, toE164(input.Phone), sms)
		switch {
		case err != nil && len(channels) == 0:
			return nil, fmt.Errorf("%w: sms: %v", ErrNotificationSendFailed, err)
		case err != nil:
			h.logger.Warn("sms send failed", map[string]interface{}{
				"error":         err.Error(),
				"applicationId": input.ApplicationID,
			})
		default:
			channels = append(channels, ChannelSMS)
		}
	}

	status := StatusDisabled
	if len(channels) > 0 {
		status = StatusSent
	}

	h.logger.Info("confirmation processed", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"status":        status,
		"channels":      strings.Join(channels, ","),
	})

	return &Output{
		NotificationID:     h.newID(),
		NotificationStatus: status,
		Channels:           channels,
		SentAt:             h.now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) templateData(input *Input) map[string]string {
	data := map[string]string{
		"applicationId":   input.ApplicationID,
		"paymentIntentId": input.PaymentIntentID,
		"totalDisplay":    catalog.FormatINR(input.TotalAmount),
		"phoneDisplay":    catalog.FormatPhone(input.Phone),
		"certificateName": "medical certificate",
		"applicantName":   "Applicant",
	}
	if sub := input.Submission; sub != nil {
		if ct, err := catalog.FindCertificateType(sub.CertificateType); err == nil {
			data["certificateName"] = ct.Name
		}
		if name := sub.ApplicantName(); strings.TrimSpace(name) != "" {
			data["applicantName"] = name
		}
	}
	return data
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}
	if h.config.SenderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(h.config.SenderID),
		}
	}
	_, err := h.snsClient.Publish(ctx, input)
	return err
}

// toE164 prefixes bare 10 digit Indian numbers with +91.
func toE164(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if len(digits) == 10 {
		return "+91" + digits
	}
	if strings.HasPrefix(phone, "+") {
		return "+" + digits
	}
	return digits
}

// renderTemplate executes tmpl once over data. Values are inserted as text
// and never parsed as template actions.
func renderTemplate(tmpl *template.Template, data map[string]string) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}

func toStandardError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "Invalid notification input", err)
	case errors.Is(err, ErrNotificationSendFailed):
		return apperrors.NewNotificationSendFailedError("confirmation", err)
	default:
		return err
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
