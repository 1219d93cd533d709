package port

import (
	"context"

	"github.com/EduardoJoao/pos-fase5-processor/internal/domain/entity"
)

// StatusUpdate carries one status transition for a job. ArchiveKey and
// ArchiveSize are set only on SUCCESS, ErrorMessage only on ERROR.
type StatusUpdate struct {
	Status       entity.Status
	ArchiveKey   string
	ArchiveSize  string
	ErrorMessage string
}

// StatusReporter delivers a status transition to the owning service.
// Delivery is best-effort; callers log failures and move on.
type StatusReporter interface {
	ReportStatus(ctx context.Context, clientID, videoID string, update StatusUpdate) error
}
