package port

import (
	"context"

	"github.com/diangao/vid2script/internal/domain/entity"
)

// FrameSampler extracts up to count representative still frames from a
// chunk, evenly spaced across [start, end). Individual frames that cannot
// be decoded are dropped after a local retry; the chunk degrades to fewer
// frames rather than failing.
type FrameSampler interface {
	SampleFrames(ctx context.Context, videoPath string, chunk entity.VideoChunk, count int) ([]entity.Frame, error)
}
