package archive

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"fmt"
	"io"

	"github.com/EduardoJoao/pos-fase5-processor/internal/domain/entity"
)

// Builder packages sampled frames into a single in-memory zip at maximum
// compression. Entry order matches input order, so identical input produces
// identical output.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Build(ctx context.Context, frames []entity.SampledFrame) (entity.ArchiveArtifact, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	for _, frame := range frames {
		select {
		case <-ctx.Done():
			return entity.ArchiveArtifact{}, ctx.Err()
		default:
		}

		w, err := zw.Create(frame.Name)
		if err != nil {
			return entity.ArchiveArtifact{}, fmt.Errorf("add %s to archive: %w", frame.Name, err)
		}
		if _, err := w.Write(frame.Data); err != nil {
			return entity.ArchiveArtifact{}, fmt.Errorf("write %s to archive: %w", frame.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return entity.ArchiveArtifact{}, fmt.Errorf("finalize archive: %w", err)
	}

	return entity.ArchiveArtifact{
		Data:      buf.Bytes(),
		SizeBytes: int64(buf.Len()),
	}, nil
}
