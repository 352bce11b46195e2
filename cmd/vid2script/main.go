package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/diangao/vid2script/internal/domain/entity"
	"github.com/diangao/vid2script/internal/domain/port"
	"github.com/diangao/vid2script/internal/infra/anthropic"
	"github.com/diangao/vid2script/internal/infra/config"
	"github.com/diangao/vid2script/internal/infra/email"
	"github.com/diangao/vid2script/internal/infra/ffmpeg"
	"github.com/diangao/vid2script/internal/infra/metrics"
	miniostorage "github.com/diangao/vid2script/internal/infra/minio"
	"github.com/diangao/vid2script/internal/infra/sqlite"
	"github.com/diangao/vid2script/internal/infra/tracing"
	"github.com/diangao/vid2script/internal/prompt"
	"github.com/diangao/vid2script/internal/segment"
	"github.com/diangao/vid2script/internal/usecase"
	"github.com/diangao/vid2script/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	flag.StringVar(&cfg.Input, "input", cfg.Input, "video file, directory, or s3://bucket/prefix")
	flag.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "directory for transcript files")
	flag.StringVar(&cfg.Format, "format", cfg.Format, "transcript format: txt, json, or both")
	flag.StringVar(&cfg.Model, "model", cfg.Model, "model tier (haiku, sonnet, opus) or full model id")
	flag.IntVar(&cfg.WorkerCount, "workers", cfg.WorkerCount, "videos processed concurrently")
	flag.IntVar(&cfg.MaxVideos, "max-videos", cfg.MaxVideos, "cap on videos per batch (0 = no cap)")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	listRuns := flag.Int("list-runs", 0, "print the N most recent ledger runs and exit")
	flag.Parse()

	if *listRuns > 0 {
		fatalOnErr(printRecentRuns(cfg.LedgerPath, *listRuns), "list runs")
		return
	}

	fatalOnErr(cfg.Validate(), "invalid config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting vid2script")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if the collector is unavailable)
	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
	}

	model, err := anthropic.ResolveModel(cfg.Model)
	fatalOnErr(err, "resolve model")

	generator, err := anthropic.NewClient(anthropic.Config{
		APIKey:         cfg.APIKey,
		Model:          model,
		MaxRetries:     cfg.GeneratorMaxRetries,
		BaseDelay:      time.Duration(cfg.GeneratorBaseDelayMs) * time.Millisecond,
		RequestTimeout: time.Duration(cfg.GeneratorTimeoutSec) * time.Second,
	}, log)
	fatalOnErr(err, "create generator")

	// Run ledger
	var repo *sqlite.RunRepository
	if cfg.LedgerPath != "" {
		repo, err = sqlite.Open(cfg.LedgerPath)
		fatalOnErr(err, "open run ledger")
		defer repo.Close()
	}

	var notifier *email.SMTPNotifier
	if cfg.SMTPHost != "" && cfg.NotifyEmail != "" {
		notifier = email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)
	}

	formats, err := cfg.Formats()
	fatalOnErr(err, "resolve formats")

	transcriber := usecase.NewTranscribeVideoUseCase(
		ffmpeg.NewProber(log),
		ffmpeg.NewSampler(cfg.TempDir, log),
		prompt.NewBuilder(),
		generator,
		log,
		usecase.TranscribeConfig{
			Segment: segment.Config{
				MinDuration: cfg.MinChunkSeconds,
				MaxDuration: cfg.MaxChunkSeconds,
			},
			FramesPerChunk: cfg.FramesPerChunk,
			SceneThreshold: cfg.SceneThreshold,
			ContextTurns:   cfg.ContextTurns,
			OutputDir:      cfg.OutputDir,
			Formats:        formats,
			ChunkPause:     time.Duration(cfg.ChunkPauseMs) * time.Millisecond,
		},
	)

	runner := usecase.NewBatchRunner(transcriber, repoOrNil(repo), notifierOrNil(notifier), log, usecase.BatchConfig{
		WorkerCount: cfg.WorkerCount,
		Model:       model,
		NotifyEmail: cfg.NotifyEmail,
	})

	var metricsSrv interface{ Shutdown(context.Context) error }
	if cfg.MetricsPort > 0 {
		metricsSrv = metrics.StartMetricsServer(cfg.MetricsPort, log)
	}

	// SIGINT/SIGTERM stop each video after its current chunk; partial
	// transcripts are flushed with an incomplete marker.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal, finishing current chunks", zap.String("signal", sig.String()))
		cancel()
	}()

	report, err := runBatch(ctx, cfg, runner, log)
	fatalOnErr(err, "run batch")

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		metricsSrv.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	for _, outcome := range report.Failed() {
		log.Error("video failed", zap.String("video", outcome.Source), zap.Error(outcome.Err))
	}
	log.Info("batch finished",
		zap.Int("videos", len(report.Outcomes)),
		zap.Int("failed", len(report.Failed())),
	)

	if !report.AllSucceeded() {
		os.Exit(1)
	}
}

func runBatch(ctx context.Context, cfg *config.Config, runner *usecase.BatchRunner, log *zap.Logger) (*usecase.Report, error) {
	if bucket, prefix, ok := parseS3Input(cfg.Input); ok {
		return runS3Batch(ctx, cfg, runner, log, bucket, prefix)
	}

	videos, err := usecase.CollectVideos(cfg.Input, cfg.MaxVideos)
	if err != nil {
		return nil, err
	}
	log.Info("batch collected", zap.Int("videos", len(videos)))
	return runner.Run(ctx, videos), nil
}

// runS3Batch stages object-store videos into a temp dir, runs the batch over
// the local copies, and uploads the resulting transcripts.
func runS3Batch(ctx context.Context, cfg *config.Config, runner *usecase.BatchRunner, log *zap.Logger, bucket, prefix string) (*usecase.Report, error) {
	if cfg.MinIOEndpoint == "" {
		return nil, fmt.Errorf("s3 input requires MINIO_ENDPOINT")
	}

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:         cfg.MinIOEndpoint,
		AccessKey:        cfg.MinIOAccessKey,
		SecretKey:        cfg.MinIOSecretKey,
		UseSSL:           cfg.MinIOUseSSL,
		VideoBucket:      bucket,
		TranscriptBucket: cfg.MinIOTranscriptBucket,
	})
	if err != nil {
		return nil, err
	}
	if err := storage.EnsureBuckets(ctx); err != nil {
		return nil, err
	}

	keys, err := storage.ListVideos(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no video objects under s3://%s/%s", bucket, prefix)
	}
	if cfg.MaxVideos > 0 && len(keys) > cfg.MaxVideos {
		keys = keys[:cfg.MaxVideos]
	}

	stageDir, err := os.MkdirTemp(cfg.TempDir, "vid2script-stage-")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(stageDir)

	videos := make([]string, 0, len(keys))
	for _, key := range keys {
		local := filepath.Join(stageDir, filepath.Base(key))
		if err := storage.DownloadVideo(ctx, key, local); err != nil {
			return nil, fmt.Errorf("download %s: %w", key, err)
		}
		videos = append(videos, local)
	}
	log.Info("batch staged from object store",
		zap.String("bucket", bucket),
		zap.Int("videos", len(videos)),
	)

	report := runner.Run(ctx, videos)

	for _, outcome := range report.Outcomes {
		for _, path := range outcome.OutputPaths {
			if err := uploadTranscript(ctx, storage, path); err != nil {
				log.Warn("transcript upload failed", zap.String("path", path), zap.Error(err))
			}
		}
	}
	return report, nil
}

func uploadTranscript(ctx context.Context, storage *miniostorage.Storage, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return storage.UploadTranscript(ctx, filepath.Base(path), f, info.Size())
}

// printRecentRuns renders the ledger report for -list-runs, newest first.
func printRecentRuns(ledgerPath string, limit int) error {
	repo, err := sqlite.Open(ledgerPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	runs, err := repo.ListRecent(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	for _, r := range runs {
		line := fmt.Sprintf("%s  %s  %-10s  %s",
			r.CreatedAt.Format(time.RFC3339), r.ID, r.Status, r.Source)
		switch {
		case r.Status == entity.RunStatusCompleted:
			line += fmt.Sprintf("  %d chunks, %d turns, %d skipped -> %s",
				r.ChunkCount, r.TurnCount, r.SkippedChunks, r.OutputPath)
		case r.ErrorMessage != "":
			line += "  error: " + r.ErrorMessage
		}
		fmt.Println(line)
	}
	return nil
}

func parseS3Input(input string) (bucket, prefix string, ok bool) {
	rest, found := strings.CutPrefix(input, "s3://")
	if !found {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	return bucket, prefix, bucket != ""
}

// repoOrNil avoids handing the runner a typed nil behind its interface.
func repoOrNil(repo *sqlite.RunRepository) port.RunRepository {
	if repo == nil {
		return nil
	}
	return repo
}

func notifierOrNil(notifier *email.SMTPNotifier) port.FailureNotifier {
	if notifier == nil {
		return nil
	}
	return notifier
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "vid2script: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
