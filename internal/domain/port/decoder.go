package port

import (
	"context"
	"image"
)

// VideoStream yields decoded frames in presentation order. Next returns
// io.EOF once the stream is exhausted; a nil image with a nil error marks a
// packet without a decodable image payload (audio, metadata) and must be
// skipped by the caller.
type VideoStream interface {
	FrameRate() float64
	Next() (image.Image, error)
	Close() error
}

// VideoDecoder opens a staged video file through the external decoding
// engine. The returned stream owns the decoder resources and must be closed
// on every path.
type VideoDecoder interface {
	Open(ctx context.Context, path string) (VideoStream, error)
}
