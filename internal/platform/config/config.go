package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"boostpanel"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	TrackerURL    string `envconfig:"TRACKER_URL"`
	TrackerAPIKey string `envconfig:"TRACKER_API_KEY"`
	YouTubeAPIKey string `envconfig:"YOUTUBE_API_KEY"`
	ClipperURL    string `envconfig:"CLIPPER_URL"`

	ClipCreationEnabled bool          `envconfig:"CLIP_CREATION_ENABLED" default:"true"`
	ClipMaxAttempts     int           `envconfig:"CLIP_MAX_ATTEMPTS" default:"2"`
	ClipRetryBackoff    time.Duration `envconfig:"CLIP_RETRY_BACKOFF" default:"2s"`
	ClipAttemptTimeout  time.Duration `envconfig:"CLIP_ATTEMPT_TIMEOUT" default:"10m"`
	AccountDailyLimit   int           `envconfig:"ACCOUNT_DAILY_LIMIT" default:"50"`

	MonitorSchedule    string `envconfig:"MONITOR_SCHEDULE" default:"@every 1m"`
	OutboxSchedule     string `envconfig:"OUTBOX_SCHEDULE" default:"@every 5s"`
	QuotaResetSchedule string `envconfig:"QUOTA_RESET_SCHEDULE" default:"0 0 * * *"`

	MonitorBatchSize int `envconfig:"MONITOR_BATCH_SIZE" default:"100"`
	OutboxBatchSize  int `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	PipelineWorkers  int `envconfig:"PIPELINE_WORKERS" default:"4"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
