package entity

// Speaker identifies one of the two dialogue parties.
type Speaker string

const (
	SpeakerUser      Speaker = "User"
	SpeakerAssistant Speaker = "AI Assistant"
)

// DialogueTurn is one utterance by one speaker. Timestamp is assigned by the
// transcript assembler from the owning chunk's start time and the turn's
// position within the chunk.
type DialogueTurn struct {
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"seconds"`
}

// ConversationContext is the bounded trailing window of generated turns
// carried forward to bias the next generation call toward continuity.
// It has a single writer (the transcript assembler); the per-video pipeline
// is strictly sequential, so no synchronization is needed.
type ConversationContext struct {
	turns    []DialogueTurn
	maxTurns int
}

func NewConversationContext(maxTurns int) *ConversationContext {
	if maxTurns <= 0 {
		maxTurns = 12
	}
	return &ConversationContext{maxTurns: maxTurns}
}

// Append adds turns and drops the oldest entries beyond the window size.
func (c *ConversationContext) Append(turns ...DialogueTurn) {
	c.turns = append(c.turns, turns...)
	if len(c.turns) > c.maxTurns {
		c.turns = c.turns[len(c.turns)-c.maxTurns:]
	}
}

// Turns returns the window in chronological order. The returned slice must
// be treated as read-only.
func (c *ConversationContext) Turns() []DialogueTurn {
	return c.turns
}

// Prompt is a fully assembled multimodal request for the dialogue generator.
// For identical frames and context the builder produces identical prompts;
// all pipeline non-determinism lives in the generator itself.
type Prompt struct {
	System    string
	UserText  string
	Frames    []Frame
	MaxTokens int
}
