package anthropic

import (
	"strings"

	"github.com/diangao/vid2script/internal/domain/entity"
)

// ParseTurns converts the model's script text into dialogue turns. Lines
// starting with a known speaker prefix open a new turn; other non-empty
// lines continue the open turn. Anything before the first speaker line is
// dropped. The model may legitimately return zero turns.
func ParseTurns(text string) []entity.DialogueTurn {
	var turns []entity.DialogueTurn
	for _, line := range strings.Split(cleanResponse(text), "\n") {
		speaker, rest, ok := splitSpeaker(line)
		if ok {
			turns = append(turns, entity.DialogueTurn{Speaker: speaker, Text: rest})
			continue
		}
		if len(turns) > 0 {
			turns[len(turns)-1].Text += " " + line
		}
	}
	return turns
}

func splitSpeaker(line string) (entity.Speaker, string, bool) {
	for _, sp := range []entity.Speaker{entity.SpeakerUser, entity.SpeakerAssistant} {
		prefix := string(sp) + ":"
		if strings.HasPrefix(line, prefix) {
			return sp, strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", "", false
}

// cleanResponse strips markdown code fences, normalizes line endings and
// drops blank lines.
func cleanResponse(text string) string {
	cleaned := strings.TrimSpace(text)

	if strings.HasPrefix(cleaned, "```") {
		lines := strings.Split(cleaned, "\n")
		if len(lines) > 2 {
			cleaned = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	cleaned = strings.ReplaceAll(cleaned, "\r\n", "\n")
	cleaned = strings.ReplaceAll(cleaned, "\r", "\n")

	var kept []string
	for _, line := range strings.Split(cleaned, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
