// Package ffmpeg drives the ffmpeg/ffprobe binaries for probing, scene
// detection and frame decoding.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Prober reads video duration via ffprobe and scene-change candidates via
// ffmpeg's scene filter.
type Prober struct {
	logger *zap.Logger
}

func NewProber(logger *zap.Logger) *Prober {
	return &Prober{logger: logger}
}

func (p *Prober) Duration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", videoPath, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}

// SceneChanges returns the timestamps where the frame-to-frame visual
// difference exceeds threshold (0..1), sorted ascending. An empty result is
// normal for static footage.
func (p *Prober) SceneChanges(ctx context.Context, videoPath string, threshold float64) ([]float64, error) {
	filter := fmt.Sprintf("select='gt(scene,%.3f)',showinfo", threshold)
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-vf", filter,
		"-an",
		"-f", "null", "-",
	)

	// showinfo reports on stderr together with the rest of ffmpeg's chatter.
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg scene detection: %w, output: %s", err, tail(string(output), 400))
	}

	times := parseSceneTimes(output)
	p.logger.Debug("scene detection finished",
		zap.String("video", videoPath),
		zap.Float64("threshold", threshold),
		zap.Int("candidates", len(times)),
	)
	return times, nil
}

var ptsTimeRe = regexp.MustCompile(`pts_time:(\d+(?:\.\d+)?)`)

func parseSceneTimes(output []byte) []float64 {
	matches := ptsTimeRe.FindAllSubmatch(output, -1)
	times := make([]float64, 0, len(matches))
	seen := make(map[float64]struct{}, len(matches))
	for _, m := range matches {
		t, err := strconv.ParseFloat(string(m[1]), 64)
		if err != nil {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		times = append(times, t)
	}
	sort.Float64s(times)
	return times
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
