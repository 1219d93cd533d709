package port

import "context"

// FailureNotifier tells the client a job permanently failed. Best-effort:
// delivery failures are logged by the caller, never escalated.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, clientID, videoID, filename, errorMsg string) error
}
