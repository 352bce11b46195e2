package port

import (
	"context"
	"io"
)

// VideoStorage is an optional object-store source for input videos and sink
// for finished transcripts, used when the batch input is an s3:// prefix.
type VideoStorage interface {
	ListVideos(ctx context.Context, prefix string) ([]string, error)
	DownloadVideo(ctx context.Context, objectKey string, destPath string) error
	UploadTranscript(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}
