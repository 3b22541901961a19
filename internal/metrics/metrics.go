// Package metrics declares the Prometheus instrumentation points exported
// on the transport HTTP server's /metrics endpoint via promhttp. All of
// them are registered at init, but only ModelDownloadBytes is updated (by
// the api dispatcher's model download); the others are never incremented
// or set and stay at zero.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AudioFramesCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetingd_audio_frames_captured_total",
		Help: "Raw device frames captured, by source",
	}, []string{"source"}) // "mic" | "loopback"

	AudioQueueDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetingd_audio_queue_dropped_total",
		Help: "Frames dropped because a bounded queue was full",
	}, []string{"queue"}) // "mic" | "loopback" | "output" | "stt_fork"

	VADSpeechSegments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetingd_vad_speech_segments_total",
		Help: "Utterances handed to Whisper after a SpeechEnd or forced drain",
	})

	WhisperInferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "meetingd_whisper_inference_duration_seconds",
		Help:    "Wall-clock time per Whisper transcription call",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	WhisperErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetingd_whisper_errors_total",
		Help: "Whisper transcription calls that returned an error",
	})

	TranslationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetingd_translation_requests_total",
		Help: "Translation sub-task outcomes, by target language and result",
	}, []string{"target_lang", "result"}) // result: "ok" | "error"

	TranslationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meetingd_translation_duration_seconds",
		Help:    "Per-language translation call latency",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"target_lang"})

	NotesUpdateTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetingd_notes_update_ticks_total",
		Help: "Note loop ticks that crossed the trigger threshold and called the summarizer",
	})

	NotesUpdateErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetingd_notes_update_errors_total",
		Help: "Note update calls that returned an error",
	})

	ModelDownloadBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetingd_model_download_bytes_total",
		Help: "Bytes streamed while downloading a Whisper model",
	}, []string{"model"})

	WSClientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meetingd_ws_clients_connected",
		Help: "Currently connected WebSocket UI clients",
	})
)
