package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/EduardoJoao/pos-fase5-processor/internal/domain/port"
)

// Decoder implements port.VideoDecoder on top of the ffmpeg/ffprobe binaries:
// ffprobe reports the stream geometry and frame rate, ffmpeg decodes to raw
// RGBA frames streamed over a pipe in presentation order.
type Decoder struct {
	logger *zap.Logger
}

func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{logger: logger}
}

func (d *Decoder) Open(ctx context.Context, path string) (port.VideoStream, error) {
	width, height, rate, err := d.probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probe video: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open decode pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	d.logger.Debug("video opened",
		zap.String("path", path),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Float64("frame_rate", rate),
	)

	return &stream{
		cmd:    cmd,
		out:    stdout,
		stderr: &stderr,
		width:  width,
		height: height,
		rate:   rate,
	}, nil
}

func (d *Decoder) probe(ctx context.Context, path string) (width, height int, rate float64, err error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-of", "csv=p=0",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ffprobe: %w", err)
	}

	fields := strings.Split(strings.TrimSpace(string(output)), ",")
	if len(fields) < 3 {
		return 0, 0, 0, fmt.Errorf("ffprobe: unexpected output %q", string(output))
	}
	width, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("parse width: %w", err)
	}
	height, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("parse height: %w", err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, 0, fmt.Errorf("ffprobe: invalid geometry %dx%d", width, height)
	}
	// Rate may be unavailable ("0/0"); the sampler degrades gracefully.
	return width, height, parseRate(fields[2]), nil
}

// parseRate parses ffprobe's rational frame rate ("30000/1001"). Unparseable
// or zero-denominator rates come back as 0.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return v
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

type stream struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	stderr *bytes.Buffer
	width  int
	height int
	rate   float64
	buf    []byte
	waited bool
}

func (s *stream) FrameRate() float64 { return s.rate }

func (s *stream) Next() (image.Image, error) {
	if s.buf == nil {
		s.buf = make([]byte, s.width*s.height*4)
	}
	if _, err := io.ReadFull(s.out, s.buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			s.waited = true
			if werr := s.cmd.Wait(); werr != nil {
				return nil, fmt.Errorf("ffmpeg: %w: %s", werr, s.stderr.String())
			}
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame: %w", err)
	}

	img := &image.RGBA{
		Pix:    append([]byte(nil), s.buf...),
		Stride: s.width * 4,
		Rect:   image.Rect(0, 0, s.width, s.height),
	}
	return img, nil
}

func (s *stream) Close() error {
	if s.waited {
		return nil
	}
	s.waited = true
	s.out.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}
