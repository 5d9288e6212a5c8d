package createpaymentintent

import (
	"time"

	"medcert-apply/internal/common/config"
)

type Config struct {
	Timeout  time.Duration
	Currency string
}

func LoadConfig(w config.WorkerConfig) *Config {
	cfg := &Config{Timeout: 15 * time.Second, Currency: "INR"}
	if w.Timeout > 0 {
		cfg.Timeout = config.GetDuration(w.Timeout)
	}
	return cfg
}
