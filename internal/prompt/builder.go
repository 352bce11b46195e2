// Package prompt assembles multimodal generation requests.
package prompt

import (
	"fmt"
	"strings"

	"github.com/diangao/vid2script/internal/domain/entity"
)

const defaultMaxTokens = 1024

// systemPrompt fixes the scriptwriter role, the two dialogue parties and the
// output format the response parser expects.
const systemPrompt = `You are a professional scriptwriter. Your task is to watch a series of consecutive video frames and generate a natural dialogue script based solely on these visual inputs.

Character roles:
- User: casual tone, curious. Asks questions or expresses immediate thoughts.
- AI Assistant: professional tone, explanatory, proactively highlights key points, and never makes factual mistakes.

Rules:
1. Strictly based on visual information: the script must revolve around the people, objects, actions and scenes shown in the provided images. No imagined content is allowed.
2. Natural dialogue: generate a short conversation of 2-4 dialogue turns (1-2 complete back-and-forth exchanges between "User" and "AI Assistant").
3. Specified format: output only character names and lines, without any additional explanations, titles or preamble.
   Example:
   User: What's this?
   AI Assistant: This is the internal structure of a door lock, you can see the sensor embedded in the upper right corner.

Task: analyze the following series of images and, following all the rules above, generate a dialogue script between the "User" and the "AI Assistant".`

// Builder constructs prompts for the dialogue generator. Build is a pure
// function of its inputs: identical frames and context produce byte-identical
// prompts, so all non-determinism in the pipeline is confined to the model.
type Builder struct {
	maxTokens int
}

func NewBuilder() *Builder {
	return &Builder{maxTokens: defaultMaxTokens}
}

// Build composes the ordered frame images, the style instruction and the
// serialized trailing context into one request. frames must be non-empty.
func (b *Builder) Build(frames []entity.Frame, contextTurns []entity.DialogueTurn, chunkDuration float64) (entity.Prompt, error) {
	if len(frames) == 0 {
		return entity.Prompt{}, fmt.Errorf("prompt requires at least one frame")
	}

	var sb strings.Builder
	sb.WriteString("Please create a dialogue script based on these consecutive images.")
	if chunkDuration > 0 {
		fmt.Fprintf(&sb, " This segment covers about %.1f seconds of video; keep the dialogue short enough to fit.", chunkDuration)
	}

	if len(contextTurns) > 0 {
		sb.WriteString("\n\nThe dialogue so far (continue naturally from it, do not repeat it):\n")
		sb.WriteString(SerializeContext(contextTurns))
	}

	return entity.Prompt{
		System:    systemPrompt,
		UserText:  sb.String(),
		Frames:    frames,
		MaxTokens: b.maxTokens,
	}, nil
}

// SerializeContext renders context turns as "Speaker: text" lines, one per
// turn, in chronological order.
func SerializeContext(turns []entity.DialogueTurn) string {
	var sb strings.Builder
	for i, t := range turns {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(string(t.Speaker))
		sb.WriteString(": ")
		sb.WriteString(t.Text)
	}
	return sb.String()
}
