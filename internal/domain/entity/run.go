package entity

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusPending    RunStatus = "PENDING"
	RunStatusProcessing RunStatus = "PROCESSING"
	RunStatusCompleted  RunStatus = "COMPLETED"
	RunStatusFailed     RunStatus = "FAILED"
)

// Run is the ledger record for one video processed in a batch.
type Run struct {
	ID            uuid.UUID
	Source        string
	Model         string
	Status        RunStatus
	ChunkCount    int
	TurnCount     int
	SkippedChunks int
	VideoDuration float64
	OutputPath    string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

func NewRun(source, model string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:        uuid.New(),
		Source:    source,
		Model:     model,
		Status:    RunStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *Run) MarkProcessing() {
	r.Status = RunStatusProcessing
	r.UpdatedAt = time.Now().UTC()
}

func (r *Run) MarkCompleted(t *Transcript, chunkCount int, duration float64, outputPath string) {
	now := time.Now().UTC()
	r.Status = RunStatusCompleted
	r.ChunkCount = chunkCount
	r.TurnCount = len(t.Turns)
	r.SkippedChunks = len(t.Skipped)
	r.VideoDuration = duration
	r.OutputPath = outputPath
	r.UpdatedAt = now
	r.CompletedAt = &now
}

func (r *Run) MarkFailed(errMsg string) {
	r.Status = RunStatusFailed
	r.ErrorMessage = errMsg
	r.UpdatedAt = time.Now().UTC()
}
