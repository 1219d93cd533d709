package port

import (
	"context"

	"github.com/EduardoJoao/pos-fase5-processor/internal/domain/entity"
)

// FrameSampler derives a bounded, ordered set of compressed still frames from
// a video payload held in memory.
type FrameSampler interface {
	Sample(ctx context.Context, video []byte) ([]entity.SampledFrame, error)
}
