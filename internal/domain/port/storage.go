package port

import (
	"context"
	"errors"
)

// ErrObjectNotFound reports a fetch for a key the blob store does not hold.
var ErrObjectNotFound = errors.New("object not found")

// VideoStorage is the blob gateway. Neither call retries; retries, if any,
// are the caller's responsibility.
type VideoStorage interface {
	FetchVideo(ctx context.Context, key string) ([]byte, error)
	StoreArchive(ctx context.Context, key string, data []byte, contentType string) error
}
