package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lokutor-ai/meetingd/internal/api"
	"github.com/lokutor-ai/meetingd/internal/config"
	"github.com/lokutor-ai/meetingd/internal/llm"
	"github.com/lokutor-ai/meetingd/internal/logging"
	"github.com/lokutor-ai/meetingd/internal/meeting"
	"github.com/lokutor-ai/meetingd/internal/store"
	"github.com/lokutor-ai/meetingd/internal/transport"
	"github.com/lokutor-ai/meetingd/internal/whisper"
)

func main() {
	cfg := config.Load()
	logger := logging.NewStdLogger(cfg.LogLevel)

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer db.Close()

	hub := transport.NewHub(logger)

	chatter := llm.NewClient(cfg.OllamaURL, cfg.OllamaModel)
	models := whisper.NewModelManager(cfg.WhisperModelDir)

	var pool *whisper.Pool
	if present, _, statErr := models.Status(cfg.WhisperModel); statErr == nil && present {
		pool, err = whisper.NewPool(models.Path(cfg.WhisperModel), cfg.WhisperLanguage, 1)
		if err != nil {
			logger.Warn("whisper model present but failed to load: %v", err)
		}
	} else {
		logger.Warn("whisper model %s not found under %s; download_model before start_meeting", cfg.WhisperModel, cfg.WhisperModelDir)
	}

	svc := meeting.New(cfg, db, pool, chatter, hub, logger)
	dispatcher := api.New(cfg, svc, models, chatter, db, hub, logger)
	hub.SetDispatcher(dispatcher)

	go func() {
		for pcmLE := range svc.Capture().Output {
			hub.BroadcastAudio(pcmLE)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		logger.Info("meetingd listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	fmt.Println("meetingd started. Press Ctrl+C to exit.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	if active, ok := db.ActiveMeetingID(); ok {
		if _, err := svc.StopMeeting(); err != nil {
			logger.Error("stop meeting %d on shutdown: %v", active, err)
		}
	}
	server.Close()
}
