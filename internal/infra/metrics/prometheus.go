package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VideosProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vid2script_videos_processed_total",
		Help: "Total number of videos processed, by status",
	}, []string{"status"})

	ChunksProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vid2script_chunks_processed_total",
		Help: "Total number of chunks processed, by outcome",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vid2script_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vid2script_frames_sampled_total",
		Help: "Total number of frames sampled across all chunks",
	})

	TurnsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vid2script_turns_generated_total",
		Help: "Total number of dialogue turns generated",
	})

	GeneratorRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vid2script_generator_retries_total",
		Help: "Total number of generator retries, by attempt",
	}, []string{"attempt"})

	ActiveVideos = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vid2script_active_videos",
		Help: "Number of videos currently being processed",
	})
)
