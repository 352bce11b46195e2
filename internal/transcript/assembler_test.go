package transcript

import (
	"testing"

	"github.com/diangao/vid2script/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turn(sp entity.Speaker, text string) entity.DialogueTurn {
	return entity.DialogueTurn{Speaker: sp, Text: text}
}

func TestAppendChunkDistributesTimestamps(t *testing.T) {
	a := NewAssembler(entity.TranscriptMeta{}, 12)
	chunk := entity.VideoChunk{Index: 0, Start: 10, End: 30}

	stamped := a.AppendChunk(chunk, []entity.DialogueTurn{
		turn(entity.SpeakerUser, "What is this?"),
		turn(entity.SpeakerAssistant, "A circuit board."),
		turn(entity.SpeakerUser, "And the black square?"),
		turn(entity.SpeakerAssistant, "The main processor."),
	})

	require.Len(t, stamped, 4)
	assert.Equal(t, 10.0, stamped[0].Timestamp)
	assert.Equal(t, 15.0, stamped[1].Timestamp)
	assert.Equal(t, 20.0, stamped[2].Timestamp)
	assert.Equal(t, 25.0, stamped[3].Timestamp)
}

func TestAppendChunkSingleTurnAtChunkStart(t *testing.T) {
	a := NewAssembler(entity.TranscriptMeta{}, 12)
	stamped := a.AppendChunk(entity.VideoChunk{Start: 42, End: 60}, []entity.DialogueTurn{
		turn(entity.SpeakerUser, "Hello?"),
	})
	require.Len(t, stamped, 1)
	assert.Equal(t, 42.0, stamped[0].Timestamp)
}

func TestAppendChunkZeroTurnsIsNoop(t *testing.T) {
	a := NewAssembler(entity.TranscriptMeta{}, 12)
	assert.Nil(t, a.AppendChunk(entity.VideoChunk{Start: 0, End: 10}, nil))
	assert.Zero(t, a.TurnCount())
	assert.Empty(t, a.Context())

	tr := a.Finalize(false)
	assert.Empty(t, tr.Turns)
}

func TestTurnsStayInChunkMajorOrder(t *testing.T) {
	a := NewAssembler(entity.TranscriptMeta{}, 50)
	chunks := []entity.VideoChunk{
		{Index: 0, Start: 0, End: 20},
		{Index: 1, Start: 20, End: 40},
		{Index: 2, Start: 40, End: 55},
	}
	for _, c := range chunks {
		a.AppendChunk(c, []entity.DialogueTurn{
			turn(entity.SpeakerUser, "q"),
			turn(entity.SpeakerAssistant, "a"),
		})
	}

	tr := a.Finalize(false)
	require.Len(t, tr.Turns, 6)
	for i := 1; i < len(tr.Turns); i++ {
		assert.Greater(t, tr.Turns[i].Timestamp, tr.Turns[i-1].Timestamp)
	}
}

func TestContextWindowIsBounded(t *testing.T) {
	a := NewAssembler(entity.TranscriptMeta{}, 3)
	a.AppendChunk(entity.VideoChunk{Start: 0, End: 10}, []entity.DialogueTurn{
		turn(entity.SpeakerUser, "one"),
		turn(entity.SpeakerAssistant, "two"),
		turn(entity.SpeakerUser, "three"),
		turn(entity.SpeakerAssistant, "four"),
	})

	ctx := a.Context()
	require.Len(t, ctx, 3)
	assert.Equal(t, "two", ctx[0].Text)
	assert.Equal(t, "four", ctx[2].Text)

	// The full transcript keeps every turn regardless of the window.
	assert.Equal(t, 4, a.TurnCount())
}

func TestSkipChunkRecordsGap(t *testing.T) {
	a := NewAssembler(entity.TranscriptMeta{}, 12)
	chunks := []entity.VideoChunk{
		{Index: 0, Start: 0, End: 20},
		{Index: 1, Start: 20, End: 40},
		{Index: 2, Start: 40, End: 60},
		{Index: 3, Start: 60, End: 80},
		{Index: 4, Start: 80, End: 100},
	}

	for _, c := range chunks {
		if c.Index == 2 {
			a.SkipChunk(c, "generator rejected the request")
			continue
		}
		a.AppendChunk(c, []entity.DialogueTurn{turn(entity.SpeakerUser, "q"), turn(entity.SpeakerAssistant, "a")})
	}

	tr := a.Finalize(false)
	assert.Len(t, tr.Turns, 8)
	require.Len(t, tr.Skipped, 1)
	assert.Equal(t, 2, tr.Skipped[0].Index)
	assert.Equal(t, 40.0, tr.Skipped[0].Start)

	// Surrounding chunks are unaffected and stay ordered.
	assert.Equal(t, 20.0, tr.Turns[2].Timestamp)
	assert.Equal(t, 60.0, tr.Turns[4].Timestamp)
}

func TestFinalizeMarksIncomplete(t *testing.T) {
	a := NewAssembler(entity.TranscriptMeta{Source: "clip.mp4"}, 12)
	a.AppendChunk(entity.VideoChunk{Start: 0, End: 15}, []entity.DialogueTurn{turn(entity.SpeakerUser, "hi")})

	tr := a.Finalize(true)
	assert.True(t, tr.Meta.Incomplete)
	assert.Equal(t, "clip.mp4", tr.Meta.Source)
}
