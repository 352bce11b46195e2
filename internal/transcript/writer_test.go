package transcript

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diangao/vid2script/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTranscript() *entity.Transcript {
	return &entity.Transcript{
		Meta: entity.TranscriptMeta{
			Source:         "demo.mp4",
			Model:          "claude-3-haiku-20240307",
			MinChunkSec:    10,
			MaxChunkSec:    25,
			FramesPerChunk: 3,
		},
		Turns: []entity.DialogueTurn{
			{Speaker: entity.SpeakerUser, Text: "What's this?", Timestamp: 0},
			{Speaker: entity.SpeakerAssistant, Text: "A smart lock, opened up.", Timestamp: 7.5},
			{Speaker: entity.SpeakerUser, Text: "And now?", Timestamp: 40},
			{Speaker: entity.SpeakerAssistant, Text: "The sensor board close up.", Timestamp: 3671},
		},
		Skipped: []entity.SkippedChunk{
			{Index: 1, Start: 15, Reason: "generator rejected the request"},
		},
	}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00", FormatTimestamp(0))
	assert.Equal(t, "00:00:07", FormatTimestamp(7.9))
	assert.Equal(t, "00:01:05", FormatTimestamp(65))
	assert.Equal(t, "01:01:11", FormatTimestamp(3671))
}

func TestWriteTextFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleTranscript()))

	out := buf.String()
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 5)

	assert.Equal(t, "[00:00:00] User: What's this?", lines[0])
	assert.Equal(t, "[00:00:07] AI Assistant: A smart lock, opened up.", lines[1])
	// The skipped chunk shows up as a placeholder at its start time.
	assert.Equal(t, "[00:00:15] -- no dialogue (generator rejected the request)", lines[2])
	assert.Equal(t, "[00:00:40] User: And now?", lines[3])
	assert.Equal(t, "[01:01:11] AI Assistant: The sensor board close up.", lines[4])

	assert.True(t, strings.HasSuffix(out, "\n"), "text output must end with a newline")
}

func TestWriteTextIncompleteMarker(t *testing.T) {
	tr := sampleTranscript()
	tr.Meta.Incomplete = true

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, tr))
	assert.True(t, strings.HasPrefix(buf.String(), "# incomplete transcript"))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleTranscript()))

	var doc struct {
		Metadata struct {
			Source        string `json:"source"`
			Model         string `json:"model"`
			SkippedChunks []struct {
				Chunk  int     `json:"chunk"`
				Start  float64 `json:"start_seconds"`
				Reason string  `json:"reason"`
			} `json:"skipped_chunks"`
		} `json:"metadata"`
		Turns []struct {
			Timestamp string  `json:"timestamp"`
			Seconds   float64 `json:"seconds"`
			Speaker   string  `json:"speaker"`
			Text      string  `json:"text"`
		} `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "demo.mp4", doc.Metadata.Source)
	assert.Equal(t, "claude-3-haiku-20240307", doc.Metadata.Model)
	require.Len(t, doc.Metadata.SkippedChunks, 1)
	assert.Equal(t, 1, doc.Metadata.SkippedChunks[0].Chunk)

	require.Len(t, doc.Turns, 4)
	assert.Equal(t, "00:00:00", doc.Turns[0].Timestamp)
	assert.Equal(t, "User", doc.Turns[0].Speaker)
	assert.Equal(t, 7.5, doc.Turns[1].Seconds)
}

func TestWriteFileDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()

	txtPath := filepath.Join(dir, "out", "demo.txt")
	require.NoError(t, WriteFile(txtPath, sampleTranscript()))
	data, err := os.ReadFile(txtPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[00:00:00] User:")

	jsonPath := filepath.Join(dir, "demo.json")
	require.NoError(t, WriteFile(jsonPath, sampleTranscript()))
	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	err = WriteFile(filepath.Join(dir, "demo.xml"), sampleTranscript())
	require.Error(t, err)
}
