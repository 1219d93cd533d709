package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/EduardoJoao/pos-fase5-processor/internal/domain/entity"
	"github.com/EduardoJoao/pos-fase5-processor/internal/domain/port"
	"github.com/EduardoJoao/pos-fase5-processor/internal/infra/metrics"
)

// ProcessVideoUseCase is the workflow orchestrator and the fault boundary for
// one job run: PROCESSING is reported first, then fetch, sample, archive and
// store run strictly in order; any failure short-circuits to a single ERROR
// report plus a failure notification. Status and email delivery are
// best-effort and never fail the run.
type ProcessVideoUseCase struct {
	storage  port.VideoStorage
	sampler  port.FrameSampler
	archiver port.Archiver
	status   port.StatusReporter
	notifier port.FailureNotifier
	logger   *zap.Logger
}

func NewProcessVideoUseCase(
	storage port.VideoStorage,
	sampler port.FrameSampler,
	archiver port.Archiver,
	status port.StatusReporter,
	notifier port.FailureNotifier,
	logger *zap.Logger,
) *ProcessVideoUseCase {
	return &ProcessVideoUseCase{
		storage:  storage,
		sampler:  sampler,
		archiver: archiver,
		status:   status,
		notifier: notifier,
		logger:   logger,
	}
}

func (uc *ProcessVideoUseCase) Run(ctx context.Context, job entity.JobDescriptor) entity.JobOutcome {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideoUseCase.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.video_id", job.VideoID),
		attribute.String("job.source_key", job.SourceKey),
	)

	log := uc.logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("video_id", job.VideoID),
		zap.String("client_id", job.ClientID),
	)

	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()
	start := time.Now()
	defer func() {
		metrics.JobStageDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	}()

	uc.reportStatus(ctx, job, port.StatusUpdate{Status: entity.StatusProcessing}, log)

	key, size, err := uc.pipeline(ctx, job, log)
	if err != nil {
		cause := fmt.Sprintf("failed to process video: %v", err)
		log.Error("job failed", zap.Error(err))

		uc.reportStatus(ctx, job, port.StatusUpdate{
			Status:       entity.StatusError,
			ErrorMessage: cause,
		}, log)
		if nerr := uc.notifier.NotifyFailure(ctx, job.ClientID, job.VideoID, job.Filename, cause); nerr != nil {
			log.Error("failure notification not delivered", zap.Error(nerr))
		}

		metrics.JobsProcessedTotal.WithLabelValues("error").Inc()
		return entity.JobOutcome{ErrorMessage: cause}
	}

	uc.reportStatus(ctx, job, port.StatusUpdate{
		Status:      entity.StatusSuccess,
		ArchiveKey:  key,
		ArchiveSize: size,
	}, log)

	metrics.JobsProcessedTotal.WithLabelValues("success").Inc()

	log.Info("job completed",
		zap.String("archive_key", key),
		zap.String("archive_size", size),
	)
	return entity.JobOutcome{Success: true, ArchiveKey: key, ArchiveSize: size}
}

func (uc *ProcessVideoUseCase) pipeline(ctx context.Context, job entity.JobDescriptor, log *zap.Logger) (string, string, error) {
	tracer := otel.Tracer("usecase")

	fetchStart := time.Now()
	fctx, fetchSpan := tracer.Start(ctx, "fetch_video")
	video, err := uc.storage.FetchVideo(fctx, job.SourceKey)
	fetchSpan.End()
	if err != nil {
		return "", "", fmt.Errorf("fetch video: %w", err)
	}
	metrics.JobStageDuration.WithLabelValues("fetch").Observe(time.Since(fetchStart).Seconds())

	sampleStart := time.Now()
	sctx, sampleSpan := tracer.Start(ctx, "sample_frames")
	frames, err := uc.sampler.Sample(sctx, video)
	sampleSpan.End()
	if err != nil {
		return "", "", fmt.Errorf("sample frames: %w", err)
	}
	video = nil // fetched payload is no longer needed past this point
	metrics.JobStageDuration.WithLabelValues("sample").Observe(time.Since(sampleStart).Seconds())
	metrics.FramesSampledTotal.Add(float64(len(frames)))

	buildStart := time.Now()
	bctx, buildSpan := tracer.Start(ctx, "build_archive")
	artifact, err := uc.archiver.Build(bctx, frames)
	buildSpan.End()
	if err != nil {
		return "", "", fmt.Errorf("build archive: %w", err)
	}
	metrics.JobStageDuration.WithLabelValues("archive").Observe(time.Since(buildStart).Seconds())

	key := deriveArchiveKey(job.ClientID, job.Filename)
	storeStart := time.Now()
	stctx, storeSpan := tracer.Start(ctx, "store_archive")
	err = uc.storage.StoreArchive(stctx, key, artifact.Data, "application/zip")
	storeSpan.End()
	if err != nil {
		return "", "", fmt.Errorf("store archive: %w", err)
	}
	metrics.JobStageDuration.WithLabelValues("store").Observe(time.Since(storeStart).Seconds())

	log.Info("archive stored",
		zap.String("archive_key", key),
		zap.Int("frame_count", len(frames)),
		zap.Int64("archive_bytes", artifact.SizeBytes),
	)
	return key, sizeLabel(artifact.SizeBytes), nil
}

func (uc *ProcessVideoUseCase) reportStatus(ctx context.Context, job entity.JobDescriptor, update port.StatusUpdate, log *zap.Logger) {
	if err := uc.status.ReportStatus(ctx, job.ClientID, job.VideoID, update); err != nil {
		log.Error("status update not delivered",
			zap.String("status", string(update.Status)),
			zap.Error(err),
		)
	}
}

// deriveArchiveKey builds "{clientId}/{base}.zip" where base is the original
// filename with its final extension stripped; a filename without an
// extension is used as-is.
func deriveArchiveKey(clientID, filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return clientID + "/" + base + ".zip"
}

func sizeLabel(sizeBytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(sizeBytes)/(1024*1024))
}
