package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/diangao/vid2script/internal/domain/entity"
	"github.com/diangao/vid2script/internal/domain/port"
	"github.com/diangao/vid2script/internal/infra/metrics"
	"github.com/diangao/vid2script/internal/prompt"
	"github.com/diangao/vid2script/internal/segment"
	"github.com/diangao/vid2script/internal/transcript"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrInterrupted is returned when cancellation stopped the video after the
// current chunk; the partial transcript has already been flushed with an
// incomplete marker.
var ErrInterrupted = errors.New("transcription interrupted")

type TranscribeConfig struct {
	Segment        segment.Config
	FramesPerChunk int
	SceneThreshold float64
	ContextTurns   int
	OutputDir      string
	Formats        []string // "txt", "json"
	// ChunkPause is the politeness delay between generator calls.
	ChunkPause time.Duration
}

// TranscribeVideoUseCase runs the full per-video pipeline: probe → segment →
// per chunk (sample frames → build prompt → generate) → assemble → write.
// Chunks are strictly sequential because each prompt carries the dialogue
// context accumulated from all earlier chunks.
type TranscribeVideoUseCase struct {
	prober    port.VideoProber
	sampler   port.FrameSampler
	builder   *prompt.Builder
	generator port.DialogueGenerator
	logger    *zap.Logger
	cfg       TranscribeConfig
}

type Result struct {
	RunID       uuid.UUID
	Transcript  *entity.Transcript
	ChunkCount  int
	Duration    float64
	OutputPaths []string
}

func NewTranscribeVideoUseCase(
	prober port.VideoProber,
	sampler port.FrameSampler,
	builder *prompt.Builder,
	generator port.DialogueGenerator,
	logger *zap.Logger,
	cfg TranscribeConfig,
) *TranscribeVideoUseCase {
	return &TranscribeVideoUseCase{
		prober:    prober,
		sampler:   sampler,
		builder:   builder,
		generator: generator,
		logger:    logger,
		cfg:       cfg,
	}
}

// Execute transcribes one video. runID is the batch driver's ledger ID for
// this video; it is embedded in the transcript metadata so an output file can
// be traced back to its ledger record.
func (uc *TranscribeVideoUseCase) Execute(ctx context.Context, runID uuid.UUID, videoPath string) (*Result, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "TranscribeVideoUseCase.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("video.path", videoPath))

	log := uc.logger.With(zap.String("video", videoPath))

	probeStart := time.Now()
	ctxProbe, spanProbe := tracer.Start(ctx, "probe_video")
	duration, err := uc.prober.Duration(ctxProbe, videoPath)
	if err != nil {
		spanProbe.End()
		return nil, fmt.Errorf("probe duration: %w", err)
	}

	boundaries, err := uc.prober.SceneChanges(ctxProbe, videoPath, uc.cfg.SceneThreshold)
	if err != nil {
		// Scene detection is a heuristic; without it every cut is forced
		// at the max chunk duration.
		log.Warn("scene detection failed, falling back to forced cuts", zap.Error(err))
		boundaries = nil
	}
	spanProbe.End()
	metrics.StageDuration.WithLabelValues("probe").Observe(time.Since(probeStart).Seconds())

	chunks, err := segment.Segment(duration, boundaries, uc.cfg.Segment)
	if err != nil {
		return nil, fmt.Errorf("segment video: %w", err)
	}

	log.Info("video segmented",
		zap.Float64("duration_secs", duration),
		zap.Int("scene_candidates", len(boundaries)),
		zap.Int("chunks", len(chunks)),
	)

	assembler := transcript.NewAssembler(entity.TranscriptMeta{
		RunID:          runID,
		Source:         filepath.Base(videoPath),
		Model:          uc.generator.Model(),
		MinChunkSec:    uc.cfg.Segment.MinDuration,
		MaxChunkSec:    uc.cfg.Segment.MaxDuration,
		FramesPerChunk: uc.cfg.FramesPerChunk,
		GeneratedAt:    time.Now().UTC(),
	}, uc.cfg.ContextTurns)

	interrupted := uc.processChunks(ctx, videoPath, chunks, assembler, log)

	tr := assembler.Finalize(interrupted)
	paths, err := uc.writeOutputs(videoPath, tr)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:       runID,
		Transcript:  tr,
		ChunkCount:  len(chunks),
		Duration:    duration,
		OutputPaths: paths,
	}
	if interrupted {
		// Partial output is flushed, not discarded: the files above carry
		// the incomplete marker.
		return result, ErrInterrupted
	}

	log.Info("video transcribed",
		zap.Int("chunks", len(chunks)),
		zap.Int("turns", len(tr.Turns)),
		zap.Int("skipped_chunks", len(tr.Skipped)),
		zap.Strings("outputs", paths),
	)
	return result, nil
}

// processChunks runs the sequential chunk loop and reports whether it was
// interrupted by cancellation ("stop after current chunk").
func (uc *TranscribeVideoUseCase) processChunks(
	ctx context.Context,
	videoPath string,
	chunks []entity.VideoChunk,
	assembler *transcript.Assembler,
	log *zap.Logger,
) bool {
	tracer := otel.Tracer("usecase")

	for _, chunk := range chunks {
		if ctx.Err() != nil {
			return true
		}

		chunkStart := time.Now()
		ctxChunk, spanChunk := tracer.Start(ctx, "process_chunk")
		spanChunk.SetAttributes(attribute.Int("chunk.index", chunk.Index))

		outcome := uc.processChunk(ctxChunk, videoPath, chunk, assembler, log)
		spanChunk.End()
		metrics.StageDuration.WithLabelValues("chunk").Observe(time.Since(chunkStart).Seconds())
		metrics.ChunksProcessedTotal.WithLabelValues(outcome).Inc()

		if ctx.Err() != nil {
			return true
		}
		if uc.cfg.ChunkPause > 0 && chunk.Index < len(chunks)-1 {
			select {
			case <-time.After(uc.cfg.ChunkPause):
			case <-ctx.Done():
				return true
			}
		}
	}
	return false
}

func (uc *TranscribeVideoUseCase) processChunk(
	ctx context.Context,
	videoPath string,
	chunk entity.VideoChunk,
	assembler *transcript.Assembler,
	log *zap.Logger,
) (outcome string) {
	frames, err := uc.sampler.SampleFrames(ctx, videoPath, chunk, uc.cfg.FramesPerChunk)
	if err != nil {
		if ctx.Err() != nil {
			return "interrupted"
		}
		log.Warn("frame sampling failed, skipping chunk", zap.Stringer("chunk", chunk), zap.Error(err))
		assembler.SkipChunk(chunk, "frame sampling failed")
		return "skipped"
	}
	if len(frames) == 0 {
		log.Warn("no decodable frames, skipping chunk", zap.Stringer("chunk", chunk))
		assembler.SkipChunk(chunk, "no decodable frames")
		return "skipped"
	}
	metrics.FramesSampledTotal.Add(float64(len(frames)))

	p, err := uc.builder.Build(frames, assembler.Context(), chunk.Duration())
	if err != nil {
		assembler.SkipChunk(chunk, "prompt build failed")
		return "skipped"
	}

	turns, err := uc.generator.Generate(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return "interrupted"
		}
		reason := "generator failed"
		if port.IsPermanent(err) {
			reason = "generator rejected the request"
		} else if port.IsTransient(err) {
			reason = "generator unavailable after retries"
		}
		log.Warn("dialogue generation failed, skipping chunk",
			zap.Stringer("chunk", chunk),
			zap.Error(err),
		)
		assembler.SkipChunk(chunk, reason)
		return "skipped"
	}

	stamped := assembler.AppendChunk(chunk, turns)
	metrics.TurnsGeneratedTotal.Add(float64(len(stamped)))
	log.Debug("chunk dialogue generated",
		zap.Stringer("chunk", chunk),
		zap.Int("turns", len(stamped)),
	)
	return "ok"
}

func (uc *TranscribeVideoUseCase) writeOutputs(videoPath string, tr *entity.Transcript) ([]string, error) {
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))

	paths := make([]string, 0, len(uc.cfg.Formats))
	for _, format := range uc.cfg.Formats {
		path := filepath.Join(uc.cfg.OutputDir, base+"."+format)
		if err := transcript.WriteFile(path, tr); err != nil {
			return nil, fmt.Errorf("write %s transcript: %w", format, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
