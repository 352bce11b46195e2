package port

import "context"

// FailureNotifier reports a permanently failed video run to a human.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, to string, runID string, source string, errorMsg string) error
}
