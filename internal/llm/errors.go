package llm

import "errors"

// ErrModelNotFound is returned when Ollama responds 404 to a chat, pull, or
// delete request against a model name it doesn't have.
var ErrModelNotFound = errors.New("llm: model not found")

// ErrStreamInterrupted is returned when an NDJSON stream ends without a
// terminal done/success marker and no content had accumulated yet.
var ErrStreamInterrupted = errors.New("llm: stream interrupted before completion")
