package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/diangao/vid2script/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeTranscriber struct {
	mu     sync.Mutex
	calls  []string
	runIDs []uuid.UUID
	failOn map[string]error
}

func (f *fakeTranscriber) Execute(_ context.Context, runID uuid.UUID, videoPath string) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, videoPath)
	f.runIDs = append(f.runIDs, runID)
	f.mu.Unlock()

	if err := f.failOn[videoPath]; err != nil {
		return nil, err
	}
	return &Result{
		RunID:       runID,
		Transcript:  &entity.Transcript{},
		ChunkCount:  3,
		Duration:    60,
		OutputPaths: []string{videoPath + ".txt"},
	}, nil
}

type fakeRepo struct {
	mu      sync.Mutex
	created []*entity.Run
	updates []entity.RunStatus
}

func (f *fakeRepo) Create(_ context.Context, run *entity.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, run)
	return nil
}

func (f *fakeRepo) Update(_ context.Context, run *entity.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, run.Status)
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	sends []string
}

func (f *fakeNotifier) NotifyFailure(_ context.Context, to, _, source, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, to+":"+source)
	return nil
}

func TestRunContinuesPastFailedVideo(t *testing.T) {
	transcriber := &fakeTranscriber{failOn: map[string]error{
		"b.mp4": errors.New("generator unavailable"),
	}}
	repo := &fakeRepo{}
	notifier := &fakeNotifier{}

	runner := NewBatchRunner(transcriber, repo, notifier, zaptest.NewLogger(t), BatchConfig{
		WorkerCount: 2,
		Model:       "claude-3-haiku-20240307",
		NotifyEmail: "ops@example.com",
	})

	report := runner.Run(context.Background(), []string{"a.mp4", "b.mp4", "c.mp4"})

	require.Len(t, report.Outcomes, 3)
	assert.False(t, report.AllSucceeded())

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "b.mp4", failed[0].Source)

	// Outcomes line up with input order regardless of worker scheduling.
	assert.Equal(t, "a.mp4", report.Outcomes[0].Source)
	assert.Nil(t, report.Outcomes[0].Err)
	assert.Equal(t, []string{"a.mp4.txt"}, report.Outcomes[0].OutputPaths)
	assert.Equal(t, "c.mp4", report.Outcomes[2].Source)
	assert.Nil(t, report.Outcomes[2].Err)

	assert.Len(t, repo.created, 3)
	assert.Equal(t, []string{"ops@example.com:b.mp4"}, notifier.sends)
}

func TestRunLedgerLifecycle(t *testing.T) {
	transcriber := &fakeTranscriber{}
	repo := &fakeRepo{}

	runner := NewBatchRunner(transcriber, repo, nil, zaptest.NewLogger(t), BatchConfig{
		WorkerCount: 1,
		Model:       "claude-3-haiku-20240307",
	})

	report := runner.Run(context.Background(), []string{"a.mp4"})
	require.True(t, report.AllSucceeded())

	require.Len(t, repo.created, 1)
	assert.Equal(t, "a.mp4", repo.created[0].Source)
	require.Len(t, repo.updates, 2)
	assert.Equal(t, entity.RunStatusProcessing, repo.updates[0])
	assert.Equal(t, entity.RunStatusCompleted, repo.updates[1])
}

func TestRunLedgerIDMatchesTranscript(t *testing.T) {
	dir := t.TempDir()
	gen := &fakeGenerator{respond: func(call int, _ entity.Prompt) ([]entity.DialogueTurn, error) {
		return exchange(call), nil
	}}
	transcriber := newUseCase(t, &fakeProber{duration: 47}, &fakeSampler{}, gen, dir)
	repo := &fakeRepo{}

	runner := NewBatchRunner(transcriber, repo, nil, zaptest.NewLogger(t), BatchConfig{
		WorkerCount: 1,
		Model:       "claude-3-haiku-20240307",
	})

	report := runner.Run(context.Background(), []string{"demo.mp4"})
	require.True(t, report.AllSucceeded())
	require.Len(t, repo.created, 1)

	data, err := os.ReadFile(filepath.Join(dir, "demo.json"))
	require.NoError(t, err)

	var doc struct {
		Metadata struct {
			RunID string `json:"run_id"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	// The written transcript must point back at the ledger record for its
	// video, so a run can be traced in both directions.
	assert.Equal(t, repo.created[0].ID.String(), doc.Metadata.RunID)
}

func TestRunWithoutLedgerOrNotifier(t *testing.T) {
	transcriber := &fakeTranscriber{failOn: map[string]error{
		"a.mp4": errors.New("boom"),
	}}
	runner := NewBatchRunner(transcriber, nil, nil, zaptest.NewLogger(t), BatchConfig{})

	report := runner.Run(context.Background(), []string{"a.mp4"})
	require.Len(t, report.Outcomes, 1)
	assert.Error(t, report.Outcomes[0].Err)
}

func TestCollectVideos(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mov", "a.mp4", "notes.txt", "c.webm"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	t.Run("directory is scanned and sorted", func(t *testing.T) {
		paths, err := CollectVideos(dir, 0)
		require.NoError(t, err)
		require.Len(t, paths, 3)
		assert.Equal(t, filepath.Join(dir, "a.mp4"), paths[0])
		assert.Equal(t, filepath.Join(dir, "b.mov"), paths[1])
		assert.Equal(t, filepath.Join(dir, "c.webm"), paths[2])
	})

	t.Run("max videos caps the batch", func(t *testing.T) {
		paths, err := CollectVideos(dir, 2)
		require.NoError(t, err)
		assert.Len(t, paths, 2)
	})

	t.Run("single file passes through", func(t *testing.T) {
		single := filepath.Join(dir, "a.mp4")
		paths, err := CollectVideos(single, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{single}, paths)
	})

	t.Run("missing path errors", func(t *testing.T) {
		_, err := CollectVideos(filepath.Join(dir, "nope"), 0)
		assert.Error(t, err)
	})

	t.Run("directory without videos errors", func(t *testing.T) {
		empty := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(empty, "readme.md"), []byte("x"), 0o644))
		_, err := CollectVideos(empty, 0)
		assert.Error(t, err)
	})
}
