package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/EduardoJoao/pos-fase5-processor/internal/domain/entity"
	"github.com/EduardoJoao/pos-fase5-processor/internal/domain/port"
	"github.com/EduardoJoao/pos-fase5-processor/internal/infra/metrics"
)

type fakeStorage struct {
	mu       sync.Mutex
	video    []byte
	fetchErr error
	storeErr error
	stored   map[string][]byte
	storedCT string
}

func (f *fakeStorage) FetchVideo(_ context.Context, _ string) ([]byte, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.video, nil
}

func (f *fakeStorage) StoreArchive(_ context.Context, key string, data []byte, contentType string) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored == nil {
		f.stored = map[string][]byte{}
	}
	f.stored[key] = data
	f.storedCT = contentType
	return nil
}

type fakeSampler struct {
	frames []entity.SampledFrame
	err    error
}

func (f *fakeSampler) Sample(_ context.Context, _ []byte) ([]entity.SampledFrame, error) {
	return f.frames, f.err
}

type fakeArchiver struct {
	artifact entity.ArchiveArtifact
	err      error
}

func (f *fakeArchiver) Build(_ context.Context, _ []entity.SampledFrame) (entity.ArchiveArtifact, error) {
	return f.artifact, f.err
}

type statusCall struct {
	clientID string
	videoID  string
	update   port.StatusUpdate
}

type fakeReporter struct {
	mu    sync.Mutex
	calls []statusCall
	err   error
}

func (f *fakeReporter) ReportStatus(_ context.Context, clientID, videoID string, update port.StatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, statusCall{clientID: clientID, videoID: videoID, update: update})
	return f.err
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	last  string
	err   error
}

func (f *fakeNotifier) NotifyFailure(_ context.Context, _, _, _, errorMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = errorMsg
	return f.err
}

func testJob() entity.JobDescriptor {
	return entity.JobDescriptor{
		SourceKey:   "uploads/v-1.mp4",
		VideoID:     "v-1",
		ClientID:    "c1",
		Filename:    "movie.mp4",
		ContentType: "video/mp4",
	}
}

func newUseCase(storage *fakeStorage, sampler *fakeSampler, archiver *fakeArchiver, reporter *fakeReporter, notifier *fakeNotifier) *ProcessVideoUseCase {
	return NewProcessVideoUseCase(storage, sampler, archiver, reporter, notifier, zap.NewNop())
}

func TestRunSuccess(t *testing.T) {
	storage := &fakeStorage{video: []byte("mp4 bytes")}
	sampler := &fakeSampler{frames: []entity.SampledFrame{{Name: "frame_0000.jpg", Data: []byte("jpg")}}}
	archiver := &fakeArchiver{artifact: entity.ArchiveArtifact{Data: []byte("zip"), SizeBytes: 3 * 1024 * 1024}}
	reporter := &fakeReporter{}
	notifier := &fakeNotifier{}

	outcome := newUseCase(storage, sampler, archiver, reporter, notifier).Run(context.Background(), testJob())

	require.True(t, outcome.Success)
	assert.Equal(t, "c1/movie.zip", outcome.ArchiveKey)
	assert.Equal(t, "3.00 MB", outcome.ArchiveSize)

	require.Len(t, reporter.calls, 2)
	assert.Equal(t, entity.StatusProcessing, reporter.calls[0].update.Status)
	assert.Equal(t, entity.StatusSuccess, reporter.calls[1].update.Status)
	assert.True(t, strings.HasSuffix(reporter.calls[1].update.ArchiveKey, ".zip"))
	assert.Regexp(t, regexp.MustCompile(`^\d+\.\d{2} MB$`), reporter.calls[1].update.ArchiveSize)
	assert.Equal(t, "c1", reporter.calls[0].clientID)
	assert.Equal(t, "v-1", reporter.calls[0].videoID)

	assert.Zero(t, notifier.calls)
	assert.Contains(t, storage.stored, "c1/movie.zip")
	assert.Equal(t, "application/zip", storage.storedCT)
}

func TestRunFetchFailure(t *testing.T) {
	storage := &fakeStorage{fetchErr: errors.New("bucket unreachable")}
	reporter := &fakeReporter{}
	notifier := &fakeNotifier{}

	outcome := newUseCase(storage, &fakeSampler{}, &fakeArchiver{}, reporter, notifier).Run(context.Background(), testJob())

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.ErrorMessage, "bucket unreachable")

	// Exactly one PROCESSING, exactly one ERROR, zero SUCCESS.
	require.Len(t, reporter.calls, 2)
	assert.Equal(t, entity.StatusProcessing, reporter.calls[0].update.Status)
	assert.Equal(t, entity.StatusError, reporter.calls[1].update.Status)
	assert.Contains(t, reporter.calls[1].update.ErrorMessage, "bucket unreachable")
	assert.Empty(t, reporter.calls[1].update.ArchiveKey)

	assert.Equal(t, 1, notifier.calls)
	assert.Contains(t, notifier.last, "bucket unreachable")
	assert.Empty(t, storage.stored) // no store call on failure
}

func TestRunSamplerFailure(t *testing.T) {
	storage := &fakeStorage{video: []byte("mp4")}
	sampler := &fakeSampler{err: errors.New("unreadable video stream")}
	reporter := &fakeReporter{}
	notifier := &fakeNotifier{}

	outcome := newUseCase(storage, sampler, &fakeArchiver{}, reporter, notifier).Run(context.Background(), testJob())

	require.False(t, outcome.Success)
	require.Len(t, reporter.calls, 2)
	assert.Equal(t, entity.StatusError, reporter.calls[1].update.Status)
	assert.Equal(t, 1, notifier.calls)
	assert.Empty(t, storage.stored)
}

func TestRunStoreFailure(t *testing.T) {
	storage := &fakeStorage{video: []byte("mp4"), storeErr: errors.New("write denied")}
	sampler := &fakeSampler{}
	archiver := &fakeArchiver{artifact: entity.ArchiveArtifact{Data: []byte("zip"), SizeBytes: 3}}
	reporter := &fakeReporter{}
	notifier := &fakeNotifier{}

	outcome := newUseCase(storage, sampler, archiver, reporter, notifier).Run(context.Background(), testJob())

	require.False(t, outcome.Success)
	assert.Contains(t, outcome.ErrorMessage, "write denied")
	assert.Equal(t, 1, notifier.calls)
}

func TestRunReporterFailuresAreSwallowed(t *testing.T) {
	storage := &fakeStorage{video: []byte("mp4")}
	archiver := &fakeArchiver{artifact: entity.ArchiveArtifact{Data: []byte("zip"), SizeBytes: 3}}
	reporter := &fakeReporter{err: errors.New("core api down")}
	notifier := &fakeNotifier{}

	outcome := newUseCase(storage, &fakeSampler{}, archiver, reporter, notifier).Run(context.Background(), testJob())

	// Status delivery is best-effort; the pipeline still completes.
	require.True(t, outcome.Success)
	assert.Len(t, reporter.calls, 2)
	assert.Zero(t, notifier.calls)
}

func TestRunNotifierFailureIsSwallowed(t *testing.T) {
	storage := &fakeStorage{fetchErr: errors.New("gone")}
	reporter := &fakeReporter{}
	notifier := &fakeNotifier{err: errors.New("smtp down")}

	outcome := newUseCase(storage, &fakeSampler{}, &fakeArchiver{}, reporter, notifier).Run(context.Background(), testJob())

	require.False(t, outcome.Success)
	assert.Equal(t, 1, notifier.calls)
}

func totalDurationSamples(t *testing.T) uint64 {
	t.Helper()
	obs, err := metrics.JobStageDuration.GetMetricWithLabelValues("total")
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, obs.(prometheus.Metric).Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestRunObservesTotalDurationOnEveryOutcome(t *testing.T) {
	before := totalDurationSamples(t)

	storage := &fakeStorage{video: []byte("mp4")}
	archiver := &fakeArchiver{artifact: entity.ArchiveArtifact{Data: []byte("zip"), SizeBytes: 3}}
	outcome := newUseCase(storage, &fakeSampler{}, archiver, &fakeReporter{}, &fakeNotifier{}).Run(context.Background(), testJob())
	require.True(t, outcome.Success)

	outcome = newUseCase(&fakeStorage{fetchErr: errors.New("gone")}, &fakeSampler{}, &fakeArchiver{}, &fakeReporter{}, &fakeNotifier{}).Run(context.Background(), testJob())
	require.False(t, outcome.Success)

	// One observation per run, failed runs included.
	assert.Equal(t, before+2, totalDurationSamples(t))
}

func TestDeriveArchiveKey(t *testing.T) {
	cases := []struct {
		clientID string
		filename string
		want     string
	}{
		{"c1", "movie.mp4", "c1/movie.zip"},
		{"c1", "noext", "c1/noext.zip"},
		{"c1", "two.dots.mov", "c1/two.dots.zip"},
		{"client@example.com", "clip.webm", "client@example.com/clip.zip"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, deriveArchiveKey(tc.clientID, tc.filename), tc.filename)
	}
}

func TestSizeLabel(t *testing.T) {
	assert.Equal(t, "0.00 MB", sizeLabel(0))
	assert.Equal(t, "1.00 MB", sizeLabel(1024*1024))
	assert.Equal(t, "1.50 MB", sizeLabel(3*1024*1024/2))
	assert.Equal(t, "0.25 MB", sizeLabel(256*1024))
}
