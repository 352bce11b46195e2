package port

import (
	"context"
	"errors"
	"fmt"

	"github.com/diangao/vid2script/internal/domain/entity"
)

// DialogueGenerator is the external multimodal model. It may be slow, may
// fail transiently, and returns zero or more turns per call.
type DialogueGenerator interface {
	Generate(ctx context.Context, prompt entity.Prompt) ([]entity.DialogueTurn, error)
	Model() string
}

// TransientError marks a failure worth retrying: rate limiting, network
// errors, 5xx responses.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transient generator error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transient generator error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError marks a failure that retrying cannot fix: malformed
// request, content rejection. The affected chunk is skipped.
type PermanentError struct {
	Status int
	Err    error
}

func (e *PermanentError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("permanent generator error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("permanent generator error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
