package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/EduardoJoao/pos-fase5-processor/internal/domain/entity"
	"github.com/EduardoJoao/pos-fase5-processor/internal/domain/port"
)

type SamplerConfig struct {
	IntervalSeconds int // time spacing between selected frames
	MaxFrames       int // hard cap on emitted frames
	MaxWidth        int // frames wider than this are scaled down
	JPEGQuality     int // 1-100
}

// Sampler drives the decoder, selects frames on fixed time boundaries,
// resizes oversized frames preserving aspect ratio and compresses each one to
// JPEG, all in memory.
type Sampler struct {
	decoder port.VideoDecoder
	cfg     SamplerConfig
	tempDir string
	logger  *zap.Logger
}

func NewSampler(decoder port.VideoDecoder, cfg SamplerConfig, tempDir string, logger *zap.Logger) *Sampler {
	return &Sampler{decoder: decoder, cfg: cfg, tempDir: tempDir, logger: logger}
}

func (s *Sampler) Sample(ctx context.Context, video []byte) ([]entity.SampledFrame, error) {
	path, err := s.stage(video)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	stream, err := s.decoder.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer stream.Close()

	// One frame every IntervalSeconds of playback. A zero or unreported rate
	// degrades to sampling every decoded frame.
	step := int(math.Round(stream.FrameRate())) * s.cfg.IntervalSeconds
	if step < 1 {
		step = 1
	}

	frames := make([]entity.SampledFrame, 0, s.cfg.MaxFrames)
	frameIdx := 0
	for len(frames) < s.cfg.MaxFrames {
		img, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode frame %d: %w", frameIdx, err)
		}
		if frameIdx%step == 0 && img != nil {
			if img.Bounds().Dx() > s.cfg.MaxWidth {
				img = imaging.Resize(img, s.cfg.MaxWidth, 0, imaging.Linear)
			}

			var buf bytes.Buffer
			if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.cfg.JPEGQuality)); err != nil {
				// A single bad frame does not fail the job.
				s.logger.Warn("frame encode failed, skipping",
					zap.Int("frame_index", frameIdx),
					zap.Error(err),
				)
				frameIdx++
				continue
			}

			frames = append(frames, entity.SampledFrame{
				Name: fmt.Sprintf("frame_%04d.jpg", len(frames)),
				Data: buf.Bytes(),
			})
		}
		frameIdx++
	}

	s.logger.Info("frames sampled",
		zap.Int("count", len(frames)),
		zap.Float64("frame_rate", stream.FrameRate()),
	)
	return frames, nil
}

// stage writes the in-memory payload to a temporary file for the decoder.
// The file lives only for the duration of the Sample call.
func (s *Sampler) stage(video []byte) (string, error) {
	f, err := os.CreateTemp(s.tempDir, "video-*.mp4")
	if err != nil {
		return "", fmt.Errorf("stage video: %w", err)
	}
	if _, err := f.Write(video); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("stage video: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("stage video: %w", err)
	}
	return f.Name(), nil
}
