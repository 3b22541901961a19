package whisper

import (
	"context"
	"fmt"
)

// Pool offloads transcription jobs to a fixed number of engine instances so
// a cooperative caller never blocks on whisper.cpp's CGO call directly.
// whisper.cpp contexts are not safe for concurrent use, so each worker owns
// its own Engine rather than sharing one.
type Pool struct {
	jobs chan job
}

type job struct {
	samples    []float32
	baseTimeMs int64
	result     chan<- jobResult
}

type jobResult struct {
	segments []Segment
	err      error
}

// NewPool loads size independent engines against modelPath/language and
// starts their worker goroutines. NewPool fails if any engine fails to
// load; engines already loaded are closed before returning the error.
func NewPool(modelPath, language string, size int) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	engines := make([]*Engine, 0, size)
	for i := 0; i < size; i++ {
		e, err := NewEngine(modelPath, language)
		if err != nil {
			for _, loaded := range engines {
				loaded.Close()
			}
			return nil, fmt.Errorf("load whisper worker %d: %w", i, err)
		}
		engines = append(engines, e)
	}

	p := &Pool{jobs: make(chan job)}
	for _, e := range engines {
		go p.worker(e)
	}
	return p, nil
}

func (p *Pool) worker(e *Engine) {
	defer e.Close()
	for j := range p.jobs {
		segments, err := e.TranscribeSync(j.samples, j.baseTimeMs)
		j.result <- jobResult{segments: segments, err: err}
	}
}

// Transcribe submits samples to the pool and waits for a free worker or
// for ctx to be cancelled, whichever comes first.
func (p *Pool) Transcribe(ctx context.Context, samples []float32, baseTimeMs int64) ([]Segment, error) {
	result := make(chan jobResult, 1)
	select {
	case p.jobs <- job{samples: samples, baseTimeMs: baseTimeMs, result: result}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-result:
		return r.segments, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting new jobs. Workers finish their current job, close
// their engine, and exit.
func (p *Pool) Close() {
	close(p.jobs)
}
