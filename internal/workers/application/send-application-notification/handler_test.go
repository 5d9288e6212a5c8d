package sendapplicationnotification

import (
	"context"
	"errors"
	"testing"
	"time"

	"medcert-apply/internal/common/config"
	apperrors "medcert-apply/internal/common/errors"
	"medcert-apply/internal/common/logger"
	"medcert-apply/internal/form"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 10, 34, 0, 0, time.UTC)

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	calls         []*ses.SendEmailInput
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls = append(m.calls, params)
	if m.SendEmailFunc == nil {
		return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
	}
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	calls       []*sns.PublishInput
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.calls = append(m.calls, params)
	if m.PublishFunc == nil {
		return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
	}
	return m.PublishFunc(ctx, params, optFns...)
}

func createTestConfig() *Config {
	return &Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "noreply@medcert.example.in",
		SenderID:     "MEDCRT",
		Timeout:      10 * time.Second,
	}
}

func createTestInput() *Input {
	return &Input{
		ApplicationID:   "app-001",
		PaymentIntentID: "order_QWE123",
		Email:           "asha@example.in",
		Phone:           "9876543210",
		TotalAmount:     1049,
		Submission: &form.Submission{
			CertificateType: "sick-leave",
			Personal:        form.Personal{FirstName: "Asha", LastName: "Verma"},
		},
	}
}

func newTestHandler(t *testing.T, cfg *Config, sesClient *MockSESService, snsClient *MockSNSService) *Handler {
	h := NewHandler(cfg, sesClient, snsClient, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	h.newID = func() string { return "notif-1" }
	return h
}

func TestHandler_Execute_EmailAndSMS(t *testing.T) {
	sesClient, snsClient := &MockSESService{}, &MockSNSService{}
	h := newTestHandler(t, createTestConfig(), sesClient, snsClient)

	out, err := h.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, &Output{
		NotificationID:     "notif-1",
		NotificationStatus: StatusSent,
		Channels:           []string{ChannelEmail, ChannelSMS},
		SentAt:             "2026-10-19T10:34:00Z",
	}, out)

	require.Len(t, sesClient.calls, 1)
	email := sesClient.calls[0]
	assert.Equal(t, []string{"asha@example.in"}, email.Destination.ToAddresses)
	assert.Equal(t, "noreply@medcert.example.in", aws.ToString(email.Source))
	body := aws.ToString(email.Message.Body.Text.Data)
	assert.Contains(t, body, "Dear Asha Verma")
	assert.Contains(t, body, "app-001")
	assert.Contains(t, body, "₹1,049")
	assert.Contains(t, body, "+91 98765 43210")
	assert.NotContains(t, aws.ToString(email.Message.Subject.Data), "{{")

	require.Len(t, snsClient.calls, 1)
	sms := snsClient.calls[0]
	assert.Equal(t, "+919876543210", aws.ToString(sms.PhoneNumber))
	assert.Equal(t, "MEDCRT", aws.ToString(sms.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
}

func TestHandler_Execute_ChannelsDisabled(t *testing.T) {
	cfg := createTestConfig()
	cfg.EmailEnabled = false
	cfg.SMSEnabled = false
	sesClient, snsClient := &MockSESService{}, &MockSNSService{}
	h := newTestHandler(t, cfg, sesClient, snsClient)

	out, err := h.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, out.NotificationStatus)
	assert.Empty(t, out.Channels)
	assert.Empty(t, sesClient.calls)
	assert.Empty(t, snsClient.calls)
}

func TestHandler_Execute_EmailFailureIsRetryable(t *testing.T) {
	sesClient := &MockSESService{
		SendEmailFunc: func(context.Context, *ses.SendEmailInput, ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttling: maximum sending rate exceeded")
		},
	}
	snsClient := &MockSNSService{}
	h := newTestHandler(t, createTestConfig(), sesClient, snsClient)

	_, err := h.Execute(context.Background(), createTestInput())

	assert.ErrorIs(t, err, ErrNotificationSendFailed)
	assert.Empty(t, snsClient.calls)

	se, ok := apperrors.As(toStandardError(err))
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, se.Code)
	assert.True(t, se.Retryable)
}

func TestHandler_Execute_SMSFailureAfterEmail(t *testing.T) {
	snsClient := &MockSNSService{
		PublishFunc: func(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("opted out")
		},
	}
	h := newTestHandler(t, createTestConfig(), &MockSESService{}, snsClient)

	out, err := h.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.NotificationStatus)
	assert.Equal(t, []string{ChannelEmail}, out.Channels)
}

func TestHandler_Execute_SMSOnlyFailure(t *testing.T) {
	cfg := createTestConfig()
	cfg.EmailEnabled = false
	snsClient := &MockSNSService{
		PublishFunc: func(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("endpoint unreachable")
		},
	}
	h := newTestHandler(t, cfg, &MockSESService{}, snsClient)

	_, err := h.Execute(context.Background(), createTestInput())

	assert.ErrorIs(t, err, ErrNotificationSendFailed)
}

func TestHandler_Execute_InvalidInput(t *testing.T) {
	h := newTestHandler(t, createTestConfig(), &MockSESService{}, &MockSNSService{})

	_, err := h.Execute(context.Background(), &Input{Email: "asha@example.in"})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		data map[string]string
		want string
	}{
		{"substitutes", "Hi {{.name}}", map[string]string{"name": "Asha"}, "Hi Asha"},
		{"drops unknown", "Ref {{.missing}}.", nil, "Ref ."},
		{"values are not expanded", "Hi {{.name}}, ref {{.id}}", map[string]string{"name": "{{.id}}", "id": "app-1"}, "Hi {{.id}}, ref app-1"},
		{"braces in values kept", "Org: {{.org}}!", map[string]string{"org": "Acme {{ Labs"}, "Org: Acme {{ Labs!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := renderTemplate(newTemplate(tt.name, tt.tmpl), tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandler_Execute_ApplicantTextIsNotExpanded(t *testing.T) {
	sesClient := &MockSESService{}
	h := newTestHandler(t, createTestConfig(), sesClient, &MockSNSService{})

	in := createTestInput()
	in.Submission.Personal.FirstName = "{{.applicationId}}"
	in.Submission.Personal.LastName = "{{ Verma"
	_, err := h.Execute(context.Background(), in)

	require.NoError(t, err)
	require.Len(t, sesClient.calls, 1)
	assert.Contains(t, aws.ToString(sesClient.calls[0].Message.Body.Text.Data), "Dear {{.applicationId}} {{ Verma,")
}

func TestToE164(t *testing.T) {
	assert.Equal(t, "+919876543210", toE164("98765 43210"))
	assert.Equal(t, "+919876543210", toE164("+91 98765 43210"))
	assert.Equal(t, "12345", toE164("12345"))
}

func TestLoadConfig(t *testing.T) {
	var integrations config.IntegrationConfig
	integrations.AWS.SES.Enabled = true
	integrations.AWS.SES.FromEmail = "noreply@medcert.example.in"
	integrations.AWS.SNS.DefaultSMSSenderID = "MEDCRT"

	cfg := LoadConfig(config.WorkerConfig{Timeout: 3000}, integrations)

	assert.True(t, cfg.EmailEnabled)
	assert.False(t, cfg.SMSEnabled)
	assert.Equal(t, "noreply@medcert.example.in", cfg.FromEmail)
	assert.Equal(t, "MEDCRT", cfg.SenderID)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
}
