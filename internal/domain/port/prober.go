package port

import "context"

// VideoProber inspects a source video: total duration and scene-change
// candidate timestamps (sorted ascending, strictly inside (0, duration)).
type VideoProber interface {
	Duration(ctx context.Context, videoPath string) (float64, error)
	SceneChanges(ctx context.Context, videoPath string, threshold float64) ([]float64, error)
}
