package entity

import "fmt"

// VideoChunk is a half-open time interval [Start, End) of the source video,
// produced by the scene segmenter and immutable afterwards. Chunks of one
// video are contiguous, non-overlapping and cover the full duration.
type VideoChunk struct {
	Index int
	Start float64 // seconds
	End   float64 // seconds
}

func (c VideoChunk) Duration() float64 {
	return c.End - c.Start
}

func (c VideoChunk) String() string {
	return fmt.Sprintf("chunk %d [%.2fs, %.2fs)", c.Index, c.Start, c.End)
}

// Frame is a single still image sampled from a chunk. It is owned by the
// chunk that produced it and discarded once the prompt has been built.
type Frame struct {
	Timestamp float64 // seconds from the start of the video
	MediaType string  // e.g. "image/jpeg"
	Data      []byte
}
