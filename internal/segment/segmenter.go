// Package segment splits a video's duration into scene-aligned chunks.
package segment

import (
	"fmt"

	"github.com/diangao/vid2script/internal/domain/entity"
)

// Config bounds the duration of emitted chunks.
type Config struct {
	MinDuration float64 // seconds
	MaxDuration float64 // seconds
}

func (c Config) Validate() error {
	if c.MinDuration <= 0 {
		return fmt.Errorf("min chunk duration must be positive, got %.2f", c.MinDuration)
	}
	if c.MinDuration > c.MaxDuration {
		return fmt.Errorf("min chunk duration %.2f exceeds max %.2f", c.MinDuration, c.MaxDuration)
	}
	return nil
}

// Segment walks the scene-change candidates in time order and greedily
// closes the current chunk at the first candidate that makes it at least
// MinDuration long. When no candidate appears before MaxDuration, the cut
// is forced at MaxDuration regardless of the scene signal. A final tail
// shorter than MinDuration is merged into the previous chunk, so the merged
// last chunk is the one place the MaxDuration bound may be exceeded. A video
// shorter than MinDuration yields a single chunk covering it.
//
// boundaries must be sorted ascending. The returned chunks are contiguous,
// non-overlapping and cover [0, duration) exactly.
func Segment(duration float64, boundaries []float64, cfg Config) ([]entity.VideoChunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, fmt.Errorf("video duration must be positive, got %.2f", duration)
	}

	var chunks []entity.VideoChunk
	start := 0.0
	for start < duration {
		end := nextCut(start, duration, boundaries, cfg)
		chunks = append(chunks, entity.VideoChunk{
			Index: len(chunks),
			Start: start,
			End:   end,
		})
		start = end
	}

	// Sub-minimum tail folds into the previous chunk instead of standing
	// alone. A single-chunk video stays as is.
	if n := len(chunks); n >= 2 && chunks[n-1].Duration() < cfg.MinDuration {
		chunks[n-2].End = chunks[n-1].End
		chunks = chunks[:n-1]
	}

	return chunks, nil
}

func nextCut(start, duration float64, boundaries []float64, cfg Config) float64 {
	limit := start + cfg.MaxDuration
	for _, b := range boundaries {
		if b-start < cfg.MinDuration {
			continue
		}
		if b > limit || b >= duration {
			break
		}
		return b
	}
	if limit < duration {
		return limit
	}
	return duration
}
