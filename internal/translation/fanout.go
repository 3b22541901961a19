package translation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/lokutor-ai/meetingd/internal/events"
	"github.com/lokutor-ai/meetingd/internal/logging"
)

// ErrEmptyText is returned when Translate is called with blank source text.
var ErrEmptyText = errors.New("translation: empty text")

// ErrNoTargetLangs is returned when Translate is called with no target
// languages.
var ErrNoTargetLangs = errors.New("translation: no target languages specified")

const (
	defaultConcurrency = 3
	perLangTimeout     = 30 * time.Second
)

// Store is the persistence surface the fan-out needs to attach a finished
// translation to its transcript row. Looked up lazily per sub-task since a
// meeting may end (or never exist) while a translation is in flight.
type Store interface {
	ActiveMeetingID() (int64, bool)
	GetTranscriptIDBySegment(meetingID int64, segmentID string) (int64, bool, error)
	InsertTranslation(transcriptID int64, targetLang, text string) error
}

// FanOut drives per-segment, per-language translation under a shared
// concurrency cap, so a burst of segments can't flood the backing LLM
// server with unbounded parallel requests.
type FanOut struct {
	translator Translator
	store      Store
	emitter    events.Emitter
	logger     logging.Logger
	sem        *semaphore.Weighted
}

// New builds a FanOut capped at concurrency simultaneous in-flight
// translations across all segments and languages. store may be nil, in
// which case translations stream but are never persisted.
func New(translator Translator, store Store, emitter events.Emitter, logger logging.Logger, concurrency int64) *FanOut {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if emitter == nil {
		emitter = events.NoOpEmitter{}
	}
	return &FanOut{
		translator: translator,
		store:      store,
		emitter:    emitter,
		logger:     logger,
		sem:        semaphore.NewWeighted(concurrency),
	}
}

// Translate validates input and spawns a detached fan-out goroutine: one
// sub-goroutine per target language, each bounded by the shared semaphore
// and a 30s timeout. Translate itself returns immediately.
func (f *FanOut) Translate(segmentID, text string, targetLangs []string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	if len(targetLangs) == 0 {
		return ErrNoTargetLangs
	}

	go f.runFanOut(segmentID, text, targetLangs)
	return nil
}

func (f *FanOut) runFanOut(segmentID, text string, targetLangs []string) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("translation fan-out panicked: segment=%s recover=%v", segmentID, r)
		}
	}()

	var wg sync.WaitGroup
	for _, lang := range targetLangs {
		wg.Add(1)
		go func(lang string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					f.logger.Error("translation task panicked: segment=%s lang=%s recover=%v", segmentID, lang, r)
				}
			}()
			f.runOne(segmentID, text, lang)
		}(lang)
	}
	wg.Wait()
}

func (f *FanOut) runOne(segmentID, text, lang string) {
	ctx, cancel := context.WithTimeout(context.Background(), perLangTimeout)
	defer cancel()

	if err := f.sem.Acquire(ctx, 1); err != nil {
		f.logger.Error("translation permit unavailable: segment=%s lang=%s err=%v", segmentID, lang, err)
		f.emitter.Emit(events.Event{
			Type: events.TypeTranslationError,
			Data: events.TranslationError{SegmentID: segmentID, Error: err.Error()},
		})
		return
	}
	defer f.sem.Release(1)

	full, err := translateOne(ctx, f.translator, f.emitter, f.logger, segmentID, text, lang)
	if err != nil {
		return
	}

	f.persist(segmentID, lang, full)
}

func (f *FanOut) persist(segmentID, lang, text string) {
	if f.store == nil {
		return
	}
	meetingID, ok := f.store.ActiveMeetingID()
	if !ok {
		return
	}
	transcriptID, found, err := f.store.GetTranscriptIDBySegment(meetingID, segmentID)
	if err != nil || !found {
		return
	}
	if err := f.store.InsertTranslation(transcriptID, lang, text); err != nil {
		f.logger.Warn("failed to save translation: segment=%s lang=%s err=%v", segmentID, lang, err)
	}
}
