package port

import (
	"context"

	"github.com/EduardoJoao/pos-fase5-processor/internal/domain/entity"
)

// Archiver packages frames into a single compressed archive buffer, keeping
// input order. An empty frame set yields a valid empty archive.
type Archiver interface {
	Build(ctx context.Context, frames []entity.SampledFrame) (entity.ArchiveArtifact, error)
}
