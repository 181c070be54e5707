// internal/workers/communication/notify-order/config.go
package notifyorder

import (
	"time"

	"rehmat-agent/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	ToEmail      string
	PhoneNumber  string
	AWSRegion    string
	Timeout      time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	n := cfg.Notifications
	timeout := config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{
		EmailEnabled: n.Email.Enabled,
		SMSEnabled:   n.SMS.Enabled,
		FromEmail:    n.Email.FromEmail,
		ToEmail:      n.Email.ToEmail,
		PhoneNumber:  n.SMS.PhoneNumber,
		AWSRegion:    n.AWS.Region,
		Timeout:      timeout,
	}
}
