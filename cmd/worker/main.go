package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/EduardoJoao/pos-fase5-processor/internal/infra/archive"
	"github.com/EduardoJoao/pos-fase5-processor/internal/infra/config"
	"github.com/EduardoJoao/pos-fase5-processor/internal/infra/email"
	"github.com/EduardoJoao/pos-fase5-processor/internal/infra/ffmpeg"
	"github.com/EduardoJoao/pos-fase5-processor/internal/infra/media"
	"github.com/EduardoJoao/pos-fase5-processor/internal/infra/metrics"
	s3store "github.com/EduardoJoao/pos-fase5-processor/internal/infra/s3"
	sqsintake "github.com/EduardoJoao/pos-fase5-processor/internal/infra/sqs"
	"github.com/EduardoJoao/pos-fase5-processor/internal/infra/statusapi"
	"github.com/EduardoJoao/pos-fase5-processor/internal/infra/tracing"
	"github.com/EduardoJoao/pos-fase5-processor/internal/usecase"
	"github.com/EduardoJoao/pos-fase5-processor/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting video processing worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		// cancel() has already fired by the time deferred functions run, so
		// the final flush needs its own short-lived context.
		defer func() {
			flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer flushCancel()
			_ = tp.Shutdown(flushCtx)
		}()
	}

	fatalOnErr(os.MkdirAll(cfg.TempDir, 0o755), "create temp dir")

	// AWS clients (shared config for SQS and S3)
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	fatalOnErr(err, "load aws config")

	storage := s3store.NewStorage(awss3.NewFromConfig(awsCfg), s3store.StorageConfig{
		SourceBucket:    cfg.S3SourceBucket,
		ProcessedBucket: cfg.S3ProcessedBucket,
	})

	decoder := ffmpeg.NewDecoder(log)
	sampler := media.NewSampler(decoder, media.SamplerConfig{
		IntervalSeconds: cfg.SampleIntervalSeconds,
		MaxFrames:       cfg.MaxFrames,
		MaxWidth:        cfg.MaxFrameWidth,
		JPEGQuality:     cfg.JPEGQuality,
	}, cfg.TempDir, log)
	archiver := archive.NewBuilder()

	statusClient := statusapi.NewClient(cfg.StatusAPIURL, log)
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	uc := usecase.NewProcessVideoUseCase(storage, sampler, archiver, statusClient, notifier, log)

	metricsSrv := metrics.StartServer(cfg.MetricsPort, log)

	consumer := sqsintake.NewConsumer(awssqs.NewFromConfig(awsCfg), sqsintake.ConsumerConfig{
		QueueURL:      cfg.SQSQueueURL,
		WorkerCount:   cfg.WorkerCount,
		BatchSize:     cfg.SQSBatchSize,
		WaitSeconds:   cfg.SQSWaitSeconds,
		IdlePause:     time.Duration(cfg.PollIdleMs) * time.Millisecond,
		ErrorCooldown: time.Duration(cfg.PollCooldownMs) * time.Millisecond,
	}, uc, log)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("worker started, polling for jobs")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	log.Info("worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
