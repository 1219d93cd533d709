package config

import (
	"github.com/caarlos0/env/v11"
)

type Config struct {
	SQSQueueURL    string `env:"SQS_QUEUE_URL"    envDefault:""`
	AWSRegion      string `env:"AWS_REGION"       envDefault:"us-east-1"`
	WorkerCount    int    `env:"WORKER_COUNT"     envDefault:"3"`
	SQSBatchSize   int32  `env:"SQS_BATCH_SIZE"   envDefault:"10"`
	SQSWaitSeconds int32  `env:"SQS_WAIT_SECONDS" envDefault:"20"`
	PollIdleMs     int    `env:"POLL_IDLE_MS"     envDefault:"150"`
	PollCooldownMs int    `env:"POLL_COOLDOWN_MS" envDefault:"5000"`

	S3SourceBucket    string `env:"S3_SOURCE_BUCKET"    envDefault:"videos-uploaded"`
	S3ProcessedBucket string `env:"S3_PROCESSED_BUCKET" envDefault:"videos-processed"`

	StatusAPIURL string `env:"STATUS_API_URL" envDefault:"http://core-api:8080"`

	SMTPHost string `env:"SMTP_HOST" envDefault:"mailhog"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"1025"`
	SMTPFrom string `env:"SMTP_FROM" envDefault:"noreply@processor.local"`

	SampleIntervalSeconds int `env:"SAMPLE_INTERVAL_SECONDS" envDefault:"1"`
	MaxFrames             int `env:"MAX_FRAMES"              envDefault:"50"`
	MaxFrameWidth         int `env:"MAX_FRAME_WIDTH"         envDefault:"640"`
	JPEGQuality           int `env:"JPEG_QUALITY"            envDefault:"65"`

	MetricsPort  int    `env:"METRICS_PORT"  envDefault:"8083"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT" envDefault:"http://jaeger:4318/v1/traces"`
	LogLevel     string `env:"LOG_LEVEL"     envDefault:"info"`

	TempDir string `env:"TEMP_DIR" envDefault:"/tmp/processor"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
