package entity

import (
	"time"

	"github.com/google/uuid"
)

// SkippedChunk records a gap in the transcript: a chunk for which no
// dialogue could be generated (permanent generator failure, undecodable
// frames). The chunk is represented by an explicit marker instead of
// silently disappearing.
type SkippedChunk struct {
	Chunk  VideoChunk `json:"-"`
	Index  int        `json:"chunk"`
	Start  float64    `json:"start_seconds"`
	Reason string     `json:"reason"`
}

// TranscriptMeta is the video-level metadata attached to a finished
// transcript.
type TranscriptMeta struct {
	RunID          uuid.UUID `json:"run_id"`
	Source         string    `json:"source"`
	Model          string    `json:"model"`
	MinChunkSec    float64   `json:"min_chunk_seconds"`
	MaxChunkSec    float64   `json:"max_chunk_seconds"`
	FramesPerChunk int       `json:"frames_per_chunk"`
	GeneratedAt    time.Time `json:"generated_at"`
	// Incomplete marks a transcript flushed after cancellation or an
	// unrecovered failure part-way through the video.
	Incomplete bool `json:"incomplete,omitempty"`
}

// Transcript is the ordered sequence of all dialogue turns across all chunks
// of one video. It is finalized and written once; turns are kept in strict
// chunk-major chronological order.
type Transcript struct {
	Meta    TranscriptMeta
	Turns   []DialogueTurn
	Skipped []SkippedChunk
}
