package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/diangao/vid2script/internal/domain/entity"
	"github.com/diangao/vid2script/internal/domain/port"
	"github.com/diangao/vid2script/internal/infra/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VideoTranscriber is the per-video pipeline as seen by the batch driver.
// runID is the ledger ID the driver minted for the video; the pipeline embeds
// it in the transcript metadata.
type VideoTranscriber interface {
	Execute(ctx context.Context, runID uuid.UUID, videoPath string) (*Result, error)
}

type VideoOutcome struct {
	Source      string
	OutputPaths []string
	Err         error
}

type Report struct {
	Outcomes []VideoOutcome
}

func (r *Report) AllSucceeded() bool {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return false
		}
	}
	return true
}

func (r *Report) Failed() []VideoOutcome {
	var failed []VideoOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

type BatchConfig struct {
	WorkerCount int
	Model       string
	// NotifyEmail, when set, receives a message for each permanently
	// failed video.
	NotifyEmail string
}

// BatchRunner iterates the pipeline over a batch of videos. Videos are
// independent, so they may run on a small worker pool; a failed video is
// recorded and never aborts the rest of the batch.
type BatchRunner struct {
	transcriber VideoTranscriber
	repo        port.RunRepository   // optional
	notifier    port.FailureNotifier // optional
	logger      *zap.Logger
	cfg         BatchConfig
}

func NewBatchRunner(
	transcriber VideoTranscriber,
	repo port.RunRepository,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg BatchConfig,
) *BatchRunner {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	return &BatchRunner{
		transcriber: transcriber,
		repo:        repo,
		notifier:    notifier,
		logger:      logger,
		cfg:         cfg,
	}
}

// Run processes every video and returns the per-video outcomes in input
// order. Cancellation lets in-flight videos stop after their current chunk;
// videos not yet started are reported as interrupted.
func (b *BatchRunner) Run(ctx context.Context, videos []string) *Report {
	jobs := make(chan int)
	outcomes := make([]VideoOutcome, len(videos))

	var wg sync.WaitGroup
	for w := 0; w < b.cfg.WorkerCount; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = b.processVideo(ctx, videos[i])
			}
		}(w)
	}

	for i := range videos {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return &Report{Outcomes: outcomes}
}

func (b *BatchRunner) processVideo(ctx context.Context, videoPath string) VideoOutcome {
	log := b.logger.With(zap.String("video", videoPath))

	if err := ctx.Err(); err != nil {
		return VideoOutcome{Source: videoPath, Err: err}
	}

	run := entity.NewRun(videoPath, b.cfg.Model)
	b.saveRun(ctx, run, true, log)

	run.MarkProcessing()
	b.saveRun(ctx, run, false, log)

	metrics.ActiveVideos.Inc()
	defer metrics.ActiveVideos.Dec()

	result, err := b.transcriber.Execute(ctx, run.ID, videoPath)
	if err != nil {
		log.Error("video failed", zap.Error(err))
		run.MarkFailed(err.Error())
		b.saveRun(ctx, run, false, log)
		metrics.VideosProcessedTotal.WithLabelValues("failed").Inc()

		if b.notifier != nil && b.cfg.NotifyEmail != "" {
			_ = b.notifier.NotifyFailure(ctx, b.cfg.NotifyEmail, run.ID.String(), videoPath, err.Error())
		}

		outcome := VideoOutcome{Source: videoPath, Err: err}
		if result != nil {
			// Interrupted videos still flushed partial output.
			outcome.OutputPaths = result.OutputPaths
		}
		return outcome
	}

	outputPath := ""
	if len(result.OutputPaths) > 0 {
		outputPath = result.OutputPaths[0]
	}
	run.MarkCompleted(result.Transcript, result.ChunkCount, result.Duration, outputPath)
	b.saveRun(ctx, run, false, log)
	metrics.VideosProcessedTotal.WithLabelValues("completed").Inc()

	return VideoOutcome{Source: videoPath, OutputPaths: result.OutputPaths}
}

// saveRun best-effort persists the ledger record; a broken ledger must not
// fail the batch.
func (b *BatchRunner) saveRun(ctx context.Context, run *entity.Run, create bool, log *zap.Logger) {
	if b.repo == nil {
		return
	}
	var err error
	if create {
		err = b.repo.Create(ctx, run)
	} else {
		err = b.repo.Update(ctx, run)
	}
	if err != nil {
		log.Warn("failed to persist run record", zap.Error(err))
	}
}

// CollectVideos expands a file or directory path into the ordered list of
// videos to process, capped at maxVideos when positive.
func CollectVideos(input string, maxVideos int) ([]string, error) {
	paths, err := listVideoFiles(input)
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	if maxVideos > 0 && len(paths) > maxVideos {
		paths = paths[:maxVideos]
	}
	return paths, nil
}
