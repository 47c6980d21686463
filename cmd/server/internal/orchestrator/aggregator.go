// Package orchestrator coordinates inference calls and session mutations for
// the meeting assistant.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/houzhh15/meetassist/cmd/server/internal/assistant"
	"github.com/houzhh15/meetassist/cmd/server/internal/audit"
	"github.com/houzhh15/meetassist/cmd/server/internal/inference"
	"github.com/houzhh15/meetassist/cmd/server/internal/limiter"
	"github.com/houzhh15/meetassist/cmd/server/internal/metrics"
	"github.com/houzhh15/meetassist/cmd/server/internal/session"
	"github.com/houzhh15/meetassist/pkg/logger"
)

// AdapterSource returns the adapter to use for the next call.
type AdapterSource interface {
	Current() inference.Adapter
}

// StaticAdapter is an AdapterSource that always returns the same adapter.
type StaticAdapter struct {
	inference.Adapter
}

// Current returns the wrapped adapter.
func (s StaticAdapter) Current() inference.Adapter { return s.Adapter }

// Options tunes the Aggregator.
type Options struct {
	// Timeout bounds every adapter call.
	Timeout time.Duration
	// ContextSegments is the transcript tail sent with generative commands.
	ContextSegments int
	// Audit receives command and clear records; nil disables auditing.
	Audit audit.AuditLogger
}

// TranscriptionRequest is the input of ProcessTranscription.
type TranscriptionRequest struct {
	Audio    []byte
	Language string
	Speaker  string
}

// Aggregator is the single entry point for meeting operations. Validation
// happens before any lock or adapter call; the session lock is only taken
// for the final mutation.
type Aggregator struct {
	state    *session.State
	adapters AdapterSource
	limiter  *limiter.Limiter
	opts     Options
	router   *assistant.Router
	logger   *slog.Logger
}

// New creates an Aggregator over state.
func New(state *session.State, adapters AdapterSource, lim *limiter.Limiter, opts Options, log *slog.Logger) *Aggregator {
	if log == nil {
		log = logger.Discard()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Audit == nil {
		opts.Audit = audit.NopAuditLogger{}
	}
	a := &Aggregator{
		state:    state,
		adapters: adapters,
		limiter:  lim,
		opts:     opts,
		logger:   log,
	}
	a.router = assistant.NewRouter(state, guardedInference{a}, opts.ContextSegments, log.With("component", "assistant"))
	return a
}

type generationKey struct{}

// WithGeneration attaches the generation the caller last observed. Mutating
// operations fail with STALE_GENERATION if the session has moved on.
func WithGeneration(ctx context.Context, gen uint64) context.Context {
	return context.WithValue(ctx, generationKey{}, gen)
}

// beginGeneration captures the generation a mutation will target.
func (a *Aggregator) beginGeneration(ctx context.Context) (uint64, error) {
	current := a.state.Generation()
	if expected, ok := ctx.Value(generationKey{}).(uint64); ok && expected != current {
		return 0, NewStaleGenerationError(expected, current, session.ErrStaleGeneration)
	}
	return current, nil
}

func (a *Aggregator) stateError(gen uint64, err error) error {
	if errors.Is(err, session.ErrStaleGeneration) {
		return NewStaleGenerationError(gen, a.state.Generation(), err)
	}
	return err
}

// call runs fn against the active adapter under a limiter slot and timeout.
func (a *Aggregator) call(ctx context.Context, c inference.Capability, fn func(ctx context.Context, ad inference.Adapter) error) error {
	if err := a.limiter.Acquire(ctx, c); err != nil {
		oe := NewInferenceError(c, err)
		metrics.RecordInferenceError(string(c), string(oe.Code))
		logger.LogInferenceCall(a.logger, string(c), "error", 0, string(oe.Code))
		return oe
	}
	defer a.limiter.Release(c)

	ad := a.adapters.Current()
	callCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx, ad)
	elapsed := time.Since(start)
	metrics.RecordInferenceCall(string(c), err == nil, elapsed.Seconds())

	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", err, context.DeadlineExceeded)
		}
		oe := NewInferenceError(c, err)
		metrics.RecordInferenceError(string(c), string(oe.Code))
		logger.LogInferenceCall(a.logger.With("adapter", ad.Name()), string(c), "error", elapsed.Milliseconds(), string(oe.Code))
		return oe
	}
	logger.LogInferenceCall(a.logger.With("adapter", ad.Name()), string(c), "success", elapsed.Milliseconds(), "")
	return nil
}

func (a *Aggregator) publishStats() {
	metrics.SetSessionSize(a.state.Stats())
}

// ProcessTranscription transcribes one audio chunk and appends it to the
// transcript buffer.
func (a *Aggregator) ProcessTranscription(ctx context.Context, req TranscriptionRequest) (session.TranscriptSegment, error) {
	seg, _, err := a.transcribe(ctx, req)
	return seg, err
}

// transcribe also returns the generation the segment was written to.
func (a *Aggregator) transcribe(ctx context.Context, req TranscriptionRequest) (session.TranscriptSegment, uint64, error) {
	if len(req.Audio) == 0 {
		return session.TranscriptSegment{}, 0, NewValidationError("audio is required")
	}
	if err := checkLanguage("language", req.Language); err != nil {
		return session.TranscriptSegment{}, 0, err
	}
	speaker := strings.TrimSpace(req.Speaker)
	if speaker == "" {
		speaker = "unknown"
	}

	gen, err := a.beginGeneration(ctx)
	if err != nil {
		return session.TranscriptSegment{}, 0, err
	}

	var res *inference.TranscribeResult
	err = a.call(ctx, inference.CapTranscribe, func(ctx context.Context, ad inference.Adapter) error {
		var err error
		res, err = ad.Transcribe(ctx, inference.TranscribeRequest{Audio: req.Audio, Language: req.Language})
		return err
	})
	if err != nil {
		return session.TranscriptSegment{}, 0, err
	}
	if res == nil || strings.TrimSpace(res.Text) == "" {
		return session.TranscriptSegment{}, 0, NewInferenceEmptyError(inference.CapTranscribe)
	}
	lang := res.Language
	if lang == "" {
		lang = req.Language
	}

	seg, err := a.state.AppendSegment(gen, session.SegmentInput{
		Speaker:    speaker,
		Language:   lang,
		Text:       strings.TrimSpace(res.Text),
		Confidence: res.Confidence,
	})
	if err != nil {
		return session.TranscriptSegment{}, 0, a.stateError(gen, err)
	}
	a.publishStats()
	a.logger.Info("segment appended", "sequence", seg.Sequence, "speaker", seg.Speaker, "generation", gen)
	return seg, gen, nil
}

// TranslateText translates text. It does not touch the session.
func (a *Aggregator) TranslateText(ctx context.Context, text, fromLang, toLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", NewValidationError("text is required")
	}
	if strings.TrimSpace(toLang) == "" {
		return "", NewValidationError("target language is required")
	}
	if err := checkLanguage("source language", fromLang); err != nil {
		return "", err
	}
	if err := checkLanguage("target language", toLang); err != nil {
		return "", err
	}

	var out string
	err := a.call(ctx, inference.CapTranslate, func(ctx context.Context, ad inference.Adapter) error {
		var err error
		out, err = ad.Translate(ctx, text, fromLang, toLang)
		return err
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", NewInferenceEmptyError(inference.CapTranslate)
	}
	return out, nil
}

// AnalyzeSentiment scores text and folds the score into the speaker's record.
func (a *Aggregator) AnalyzeSentiment(ctx context.Context, text, speaker string) (session.SentimentRecord, error) {
	if err := requireTextAndSpeaker(text, speaker); err != nil {
		return session.SentimentRecord{}, err
	}
	gen, err := a.beginGeneration(ctx)
	if err != nil {
		return session.SentimentRecord{}, err
	}

	var score *inference.SentimentScore
	err = a.call(ctx, inference.CapSentiment, func(ctx context.Context, ad inference.Adapter) error {
		var err error
		score, err = ad.ScoreSentiment(ctx, text, speaker)
		return err
	})
	if err != nil {
		return session.SentimentRecord{}, err
	}
	if score == nil {
		return session.SentimentRecord{}, NewInferenceEmptyError(inference.CapSentiment)
	}

	rec, err := a.state.ObserveSentiment(gen, speaker, score.Score, score.Label)
	if err != nil {
		return session.SentimentRecord{}, a.stateError(gen, err)
	}
	a.publishStats()
	return rec, nil
}

// DetectActionItems extracts action items from text and returns only those
// that were not already open for the speaker.
func (a *Aggregator) DetectActionItems(ctx context.Context, text, speaker string) ([]session.ActionItem, error) {
	if err := requireTextAndSpeaker(text, speaker); err != nil {
		return nil, err
	}
	gen, err := a.beginGeneration(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []string
	err = a.call(ctx, inference.CapActionItems, func(ctx context.Context, ad inference.Adapter) error {
		var err error
		candidates, err = ad.ExtractActionItems(ctx, text, speaker)
		return err
	})
	if err != nil {
		return nil, err
	}

	items, err := a.state.InsertActionItems(gen, speaker, candidates)
	if err != nil {
		return nil, a.stateError(gen, err)
	}
	if items == nil {
		items = []session.ActionItem{}
	}
	a.publishStats()
	if len(items) > 0 {
		a.logger.Info("action items detected", "speaker", speaker, "new", len(items), "candidates", len(candidates))
	}
	return items, nil
}

// ProcessAssistantCommand answers a free-text command. It never fails; an
// unavailable inference service yields a degraded response.
func (a *Aggregator) ProcessAssistantCommand(ctx context.Context, command string, cmdContext map[string]string) assistant.Response {
	resp := a.router.Handle(ctx, command, cmdContext)

	if err := a.opts.Audit.LogAction(audit.ActionAssistantCommand, string(resp.Intent), nil, nil, map[string]string{
		"state":    string(resp.State),
		"degraded": strconv.FormatBool(resp.Degraded),
	}); err != nil {
		a.logger.Warn("failed to write audit entry", "error", err)
	}
	return resp
}

// ClearBuffer empties the session and returns the new generation.
func (a *Aggregator) ClearBuffer() uint64 {
	oldGen, newGen := a.state.Clear()
	a.publishStats()
	a.logger.Info("session cleared", "old_generation", oldGen, "new_generation", newGen)

	if err := a.opts.Audit.LogAction(audit.ActionClearBuffer, "",
		map[string]uint64{"generation": oldGen},
		map[string]uint64{"generation": newGen}, nil); err != nil {
		a.logger.Warn("failed to write audit entry", "error", err)
	}
	return newGen
}

// CompleteActionItem marks an action item as done.
func (a *Aggregator) CompleteActionItem(id string) (session.ActionItem, error) {
	if strings.TrimSpace(id) == "" {
		return session.ActionItem{}, NewValidationError("action item id is required")
	}
	item, err := a.state.CompleteActionItem(id)
	if err != nil {
		if errors.Is(err, session.ErrItemNotFound) {
			return session.ActionItem{}, NewNotFoundError("action item "+id, err)
		}
		return session.ActionItem{}, err
	}
	if err := a.opts.Audit.LogAction(audit.ActionCompleteItem, id, nil, item, nil); err != nil {
		a.logger.Warn("failed to write audit entry", "error", err)
	}
	return item, nil
}

// GetTranscriptionBuffer returns a copy of the transcript.
func (a *Aggregator) GetTranscriptionBuffer() []session.TranscriptSegment {
	return a.state.Transcript()
}

// GetSentimentAnalysis returns a copy of the sentiment ledger.
func (a *Aggregator) GetSentimentAnalysis() map[string]session.SentimentRecord {
	return a.state.Sentiment()
}

// GetActionItems returns a copy of the action-item registry.
func (a *Aggregator) GetActionItems() []session.ActionItem {
	return a.state.ActionItems()
}

// Snapshot returns all session collections as of one instant.
func (a *Aggregator) Snapshot() session.Snapshot {
	return a.state.Snapshot()
}

// Generation returns the current session generation.
func (a *Aggregator) Generation() uint64 {
	return a.state.Generation()
}

func requireTextAndSpeaker(text, speaker string) error {
	if strings.TrimSpace(text) == "" {
		return NewValidationError("text is required")
	}
	if strings.TrimSpace(speaker) == "" {
		return NewValidationError("speaker is required")
	}
	return nil
}

// guardedInference exposes limited, time-bounded inference calls to the router.
type guardedInference struct {
	a *Aggregator
}

func (g guardedInference) InterpretCommand(ctx context.Context, text string, cmdContext map[string]string) (*inference.CommandInterpretation, error) {
	var out *inference.CommandInterpretation
	err := g.a.call(ctx, inference.CapInterpret, func(ctx context.Context, ad inference.Adapter) error {
		var err error
		out, err = ad.InterpretCommand(ctx, text, cmdContext)
		return err
	})
	return out, err
}

func (g guardedInference) Answer(ctx context.Context, req inference.AnswerRequest) (string, error) {
	var out string
	err := g.a.call(ctx, inference.CapAnswer, func(ctx context.Context, ad inference.Adapter) error {
		var err error
		out, err = ad.Answer(ctx, req)
		return err
	})
	return out, err
}

// checkLanguage accepts an empty value or a well-formed BCP 47 tag.
func checkLanguage(field, tag string) error {
	if tag == "" {
		return nil
	}
	if _, err := language.Parse(tag); err != nil {
		return NewValidationError("%s %q is not a valid language tag", field, tag)
	}
	return nil
}
