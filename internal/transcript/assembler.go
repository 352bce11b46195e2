// Package transcript accumulates generated dialogue into a final transcript
// and serializes it.
package transcript

import (
	"github.com/diangao/vid2script/internal/domain/entity"
)

// Assembler appends per-chunk dialogue in chunk order and maintains the
// bounded conversation context window. It is the single writer of both; the
// per-video pipeline is sequential, so no locking is involved.
//
// Timestamp policy (fixed): the turns of a chunk are evenly distributed
// across the chunk's duration, turn i of n at start + i*duration/n. A single
// turn therefore sits exactly at the chunk's start time.
type Assembler struct {
	meta    entity.TranscriptMeta
	turns   []entity.DialogueTurn
	skipped []entity.SkippedChunk
	context *entity.ConversationContext
}

func NewAssembler(meta entity.TranscriptMeta, contextWindow int) *Assembler {
	return &Assembler{
		meta:    meta,
		context: entity.NewConversationContext(contextWindow),
	}
}

// AppendChunk stamps the generator's turns with timestamps derived from the
// chunk and appends them to the transcript and the context window. A chunk
// with zero turns contributes nothing and is not an error.
func (a *Assembler) AppendChunk(chunk entity.VideoChunk, turns []entity.DialogueTurn) []entity.DialogueTurn {
	if len(turns) == 0 {
		return nil
	}

	step := chunk.Duration() / float64(len(turns))
	stamped := make([]entity.DialogueTurn, len(turns))
	for i, t := range turns {
		t.Timestamp = chunk.Start + float64(i)*step
		stamped[i] = t
	}

	a.turns = append(a.turns, stamped...)
	a.context.Append(stamped...)
	return stamped
}

// SkipChunk records an explicit gap for a chunk that produced no dialogue
// (permanent generator failure, undecodable frames).
func (a *Assembler) SkipChunk(chunk entity.VideoChunk, reason string) {
	a.skipped = append(a.skipped, entity.SkippedChunk{
		Chunk:  chunk,
		Index:  chunk.Index,
		Start:  chunk.Start,
		Reason: reason,
	})
}

// Context returns the current trailing window for the next prompt.
func (a *Assembler) Context() []entity.DialogueTurn {
	return a.context.Turns()
}

func (a *Assembler) TurnCount() int { return len(a.turns) }

// Finalize produces the transcript. incomplete marks a partial transcript
// flushed after cancellation or an unrecovered mid-video failure.
func (a *Assembler) Finalize(incomplete bool) *entity.Transcript {
	meta := a.meta
	meta.Incomplete = incomplete
	return &entity.Transcript{
		Meta:    meta,
		Turns:   a.turns,
		Skipped: a.skipped,
	}
}
