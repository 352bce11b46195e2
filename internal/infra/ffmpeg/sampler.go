package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/diangao/vid2script/internal/domain/entity"
	"go.uber.org/zap"
)

// seekEpsilon is the offset used to retry a failed decode at a nearby
// position before giving up on that single frame.
const seekEpsilon = 0.25

// Sampler extracts still frames by seek-and-decode, one ffmpeg invocation
// per timestamp.
type Sampler struct {
	tempDir string
	logger  *zap.Logger
}

func NewSampler(tempDir string, logger *zap.Logger) *Sampler {
	return &Sampler{tempDir: tempDir, logger: logger}
}

// SampleTimestamps plans count evenly spaced timestamps across
// [chunk.Start, chunk.End): start + i*duration/count. Timestamps are
// deduplicated at millisecond resolution, so a chunk too short for count
// distinct positions yields fewer.
func SampleTimestamps(chunk entity.VideoChunk, count int) []float64 {
	if count <= 0 {
		return nil
	}

	step := chunk.Duration() / float64(count)
	times := make([]float64, 0, count)
	var lastMs int64 = -1
	for i := 0; i < count; i++ {
		ts := chunk.Start + float64(i)*step
		ms := int64(math.Round(ts * 1000))
		if ms == lastMs {
			continue
		}
		lastMs = ms
		times = append(times, ts)
	}
	return times
}

// SampleFrames decodes one frame per planned timestamp. A timestamp that
// fails to decode is retried at ±seekEpsilon; if that also fails the frame
// is dropped and the chunk degrades to fewer frames.
func (s *Sampler) SampleFrames(ctx context.Context, videoPath string, chunk entity.VideoChunk, count int) ([]entity.Frame, error) {
	workDir, err := os.MkdirTemp(s.tempDir, "frames-")
	if err != nil {
		return nil, fmt.Errorf("create frame workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	timestamps := SampleTimestamps(chunk, count)
	frames := make([]entity.Frame, 0, len(timestamps))
	for i, ts := range timestamps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := s.decodeNear(ctx, videoPath, chunk, ts, filepath.Join(workDir, fmt.Sprintf("frame_%04d.jpg", i)))
		if err != nil {
			s.logger.Warn("dropping undecodable frame",
				zap.String("video", videoPath),
				zap.Float64("timestamp", ts),
				zap.Error(err),
			)
			continue
		}
		frames = append(frames, entity.Frame{
			Timestamp: ts,
			MediaType: "image/jpeg",
			Data:      data,
		})
	}

	return frames, nil
}

func (s *Sampler) decodeNear(ctx context.Context, videoPath string, chunk entity.VideoChunk, ts float64, outPath string) ([]byte, error) {
	candidates := []float64{ts}
	if alt := ts + seekEpsilon; alt < chunk.End {
		candidates = append(candidates, alt)
	}
	if alt := ts - seekEpsilon; alt >= chunk.Start {
		candidates = append(candidates, alt)
	}

	var lastErr error
	for _, at := range candidates {
		data, err := s.decodeAt(ctx, videoPath, at, outPath)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Sampler) decodeAt(ctx context.Context, videoPath string, ts float64, outPath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", fmt.Sprintf("%.3f", ts),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-f", "image2",
		"-y",
		outPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode at %.3fs: %w, output: %s", ts, err, tail(string(output), 200))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read decoded frame: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame decoded at %.3fs", ts)
	}
	return data, nil
}
