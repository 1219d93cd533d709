package sqs

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/EduardoJoao/pos-fase5-processor/internal/domain/entity"
)

// QueueAPI is the slice of the SQS client the consumer needs.
type QueueAPI interface {
	ReceiveMessage(ctx context.Context, params *awssqs.ReceiveMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *awssqs.DeleteMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error)
}

// JobRunner executes one parsed job to its terminal outcome. It never returns
// an error; the orchestrator is the fault boundary for a job run.
type JobRunner interface {
	Run(ctx context.Context, job entity.JobDescriptor) entity.JobOutcome
}

type ConsumerConfig struct {
	QueueURL      string
	WorkerCount   int
	BatchSize     int32
	WaitSeconds   int32
	IdlePause     time.Duration
	ErrorCooldown time.Duration
}

// Consumer long-polls the processing queue and dispatches each message to a
// fixed-size worker pool. Every received message is deleted exactly once,
// after the job run completes (or the message proves malformed); delivery is
// at-least-once, so a job must be safe to re-run in full.
type Consumer struct {
	client QueueAPI
	cfg    ConsumerConfig
	runner JobRunner
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewConsumer(client QueueAPI, cfg ConsumerConfig, runner JobRunner, logger *zap.Logger) *Consumer {
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &Consumer{client: client, cfg: cfg, runner: runner, logger: logger}
}

// Start polls until ctx is cancelled, then waits for in-flight jobs to finish.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries := make(chan types.Message)

	c.logger.Info("starting worker pool",
		zap.Int("workers", c.cfg.WorkerCount),
		zap.String("queue_url", c.cfg.QueueURL),
	)
	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, deliveries)
	}

	c.poll(ctx, deliveries)

	close(deliveries)
	c.logger.Info("poll loop stopped, waiting for workers to finish")
	c.wg.Wait()
	return nil
}

func (c *Consumer) poll(ctx context.Context, deliveries chan<- types.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		out, err := c.client.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.cfg.QueueURL),
			MaxNumberOfMessages: c.cfg.BatchSize,
			WaitTimeSeconds:     c.cfg.WaitSeconds,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// The loop survives any single poll failure.
			c.logger.Error("queue poll failed", zap.Error(err))
			c.pause(ctx, c.cfg.ErrorCooldown)
			continue
		}

		for _, msg := range out.Messages {
			// Unbuffered hand-off: submission blocks until a worker is free.
			select {
			case deliveries <- msg:
			case <-ctx.Done():
				return
			}
		}

		c.pause(ctx, c.cfg.IdlePause)
	}
}

func (c *Consumer) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (c *Consumer) worker(ctx context.Context, id int, deliveries <-chan types.Message) {
	defer c.wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))
	log.Info("worker started")

	// Ranging (not selecting on ctx) guarantees every dispatched message is
	// processed and deleted even while shutting down.
	for msg := range deliveries {
		c.processDelivery(ctx, msg, log)
	}
	log.Info("worker stopped")
}

func (c *Consumer) processDelivery(ctx context.Context, msg types.Message, log *zap.Logger) {
	defer c.deleteMessage(msg, log)

	if msg.Body == nil {
		log.Warn("received message with no body")
		return
	}

	job, err := entity.ParseJobDescriptor([]byte(*msg.Body))
	if err != nil {
		// Malformed messages are dropped, not retried; no redrive here.
		log.Warn("discarding malformed job message", zap.Error(err))
		return
	}

	// A job dispatched before shutdown runs to completion: the polling
	// context must not preempt the pipeline mid-flight, so the run gets a
	// detached context that keeps ctx's values but not its cancellation.
	c.runner.Run(context.WithoutCancel(ctx), job)
}

// deleteMessage acknowledges a message on a detached context so the delete
// still lands during shutdown.
func (c *Consumer) deleteMessage(msg types.Message, log *zap.Logger) {
	if msg.ReceiptHandle == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := c.client.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.cfg.QueueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		log.Error("failed to delete message", zap.Error(err))
	}
}
