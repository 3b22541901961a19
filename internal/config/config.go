// Package config loads process configuration from the environment, with a
// best-effort .env file load the way cmd/agent did in the teacher repo.
package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds every environment-tunable knob for the service.
type Config struct {
	OllamaURL   string
	OllamaModel string
	LogLevel    string

	ListenAddr string
	DBPath     string

	WhisperModelDir  string
	WhisperModel     string
	WhisperLanguage  string
	TranslationCap   int
	NoteUpdateSecs   uint
	NoteSegThreshold int
	NoteMinSegments  int
}

// Load reads a .env file if present (missing file is not an error) and
// builds a Config from the environment, applying the documented defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("note: no .env file found, using process environment")
	}

	return Config{
		OllamaURL:        getEnv("RT_OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:      getEnv("RT_OLLAMA_MODEL", "qwen2.5:3b"),
		LogLevel:         getEnv("RT_LOG_LEVEL", "info"),
		ListenAddr:       getEnv("RT_LISTEN_ADDR", "127.0.0.1:8780"),
		DBPath:           getEnv("RT_DB_PATH", "./meetingd.db"),
		WhisperModelDir:  getEnv("RT_WHISPER_MODEL_DIR", "./models/whisper"),
		WhisperModel:     getEnv("RT_WHISPER_MODEL", "ggml-small-q5_1.bin"),
		WhisperLanguage:  getEnv("RT_WHISPER_LANGUAGE", ""),
		TranslationCap:   3,
		NoteUpdateSecs:   120,
		NoteSegThreshold: 10,
		NoteMinSegments:  3,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
