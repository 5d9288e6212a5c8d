package sendapplicationnotification

import (
	"time"

	"medcert-apply/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	SenderID     string
	Timeout      time.Duration
}

func LoadConfig(w config.WorkerConfig, integrations config.IntegrationConfig) *Config {
	cfg := &Config{
		EmailEnabled: integrations.AWS.SES.Enabled,
		SMSEnabled:   integrations.AWS.SNS.Enabled,
		FromEmail:    integrations.AWS.SES.FromEmail,
		SenderID:     integrations.AWS.SNS.DefaultSMSSenderID,
		Timeout:      10 * time.Second,
	}
	if w.Timeout > 0 {
		cfg.Timeout = config.GetDuration(w.Timeout)
	}
	return cfg
}
