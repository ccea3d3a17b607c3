package trigger

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the trigger's settings, loaded from the environment.
type Config struct {
	// JobServiceURL is the base URL of the job service, e.g. http://jobservice:8000.
	JobServiceURL string

	// MaxRetries bounds how many times a failed run trigger is retried.
	MaxRetries int

	// RetryDelay is the fixed pause between retry attempts.
	RetryDelay time.Duration

	// RequestTimeout bounds the status probe. The run request itself uses
	// RunTimeout since the service executes the computation synchronously.
	RequestTimeout time.Duration

	// RunTimeout bounds one synchronous run request end to end.
	RunTimeout time.Duration
}

// LoadConfig reads trigger configuration from the environment.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("TRIGGER_MAX_RETRIES", 3)
	v.SetDefault("TRIGGER_RETRY_DELAY", "60s")
	v.SetDefault("TRIGGER_REQUEST_TIMEOUT", "10s")
	v.SetDefault("TRIGGER_RUN_TIMEOUT", "15m")

	cfg := Config{
		JobServiceURL:  v.GetString("JOB_SERVICE_URL"),
		MaxRetries:     v.GetInt("TRIGGER_MAX_RETRIES"),
		RetryDelay:     v.GetDuration("TRIGGER_RETRY_DELAY"),
		RequestTimeout: v.GetDuration("TRIGGER_REQUEST_TIMEOUT"),
		RunTimeout:     v.GetDuration("TRIGGER_RUN_TIMEOUT"),
	}

	if cfg.JobServiceURL == "" {
		return Config{}, fmt.Errorf("JOB_SERVICE_URL must be set")
	}
	if cfg.MaxRetries < 0 {
		return Config{}, fmt.Errorf("TRIGGER_MAX_RETRIES must not be negative, got %d", cfg.MaxRetries)
	}
	return cfg, nil
}
