package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/diangao/vid2script/internal/domain/entity"
)

// FormatTimestamp renders seconds as HH:MM:SS, truncating sub-second parts.
func FormatTimestamp(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// WriteFile serializes the transcript to path, choosing the format from the
// file extension (.txt or .json), creating parent directories as needed.
func WriteFile(path string, t *entity.Transcript) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		err = WriteText(f, t)
	case ".json":
		err = WriteJSON(f, t)
	default:
		err = fmt.Errorf("unsupported transcript format %q, use .txt or .json", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return f.Close()
}

// WriteText emits one "[HH:MM:SS] Speaker: text" line per turn in
// chronological order. Skipped chunks appear as explicit placeholder lines
// at their chunk start time. The output always ends with a newline; an
// incomplete transcript opens with a comment marker.
func WriteText(w io.Writer, t *entity.Transcript) error {
	var sb strings.Builder
	if t.Meta.Incomplete {
		sb.WriteString("# incomplete transcript: processing stopped before the final chunk\n")
	}

	ti, si := 0, 0
	for ti < len(t.Turns) || si < len(t.Skipped) {
		if si >= len(t.Skipped) || (ti < len(t.Turns) && t.Turns[ti].Timestamp < t.Skipped[si].Start) {
			turn := t.Turns[ti]
			fmt.Fprintf(&sb, "[%s] %s: %s\n", FormatTimestamp(turn.Timestamp), turn.Speaker, turn.Text)
			ti++
		} else {
			gap := t.Skipped[si]
			fmt.Fprintf(&sb, "[%s] -- no dialogue (%s)\n", FormatTimestamp(gap.Start), gap.Reason)
			si++
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

type turnRecord struct {
	Timestamp string  `json:"timestamp"`
	Seconds   float64 `json:"seconds"`
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
}

type jsonTranscript struct {
	Metadata struct {
		entity.TranscriptMeta
		SkippedChunks []entity.SkippedChunk `json:"skipped_chunks,omitempty"`
	} `json:"metadata"`
	Turns []turnRecord `json:"turns"`
}

// WriteJSON emits the metadata header followed by the ordered turn records.
func WriteJSON(w io.Writer, t *entity.Transcript) error {
	doc := jsonTranscript{Turns: make([]turnRecord, 0, len(t.Turns))}
	doc.Metadata.TranscriptMeta = t.Meta
	doc.Metadata.SkippedChunks = t.Skipped

	for _, turn := range t.Turns {
		doc.Turns = append(doc.Turns, turnRecord{
			Timestamp: FormatTimestamp(turn.Timestamp),
			Seconds:   turn.Timestamp,
			Speaker:   string(turn.Speaker),
			Text:      turn.Text,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
