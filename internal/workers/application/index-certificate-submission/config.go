package indexcertificatesubmission

import (
	"time"

	"medcert-apply/internal/common/config"
)

type Config struct {
	IndexName string
	Timeout   time.Duration
}

func LoadConfig(w config.WorkerConfig, es config.ElasticsearchConfig) *Config {
	cfg := &Config{IndexName: es.ApplicationsIndex, Timeout: 10 * time.Second}
	if cfg.IndexName == "" {
		cfg.IndexName = "certificate-applications"
	}
	if w.Timeout > 0 {
		cfg.Timeout = config.GetDuration(w.Timeout)
	}
	return cfg
}
