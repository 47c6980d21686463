package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/houzhh15/meetassist/cmd/server/internal/inference"
	"github.com/houzhh15/meetassist/cmd/server/internal/metrics"
	"github.com/houzhh15/meetassist/cmd/server/internal/session"
	"github.com/houzhh15/meetassist/pkg/logger"
)

const defaultTranscriptLimit = 10

var errEmptyAnswer = errors.New("empty answer")

// SessionReader provides consistent session snapshots.
type SessionReader interface {
	Snapshot() session.Snapshot
}

// Inference is the subset of inference calls the router makes. The caller
// supplies limits and timeouts.
type Inference interface {
	InterpretCommand(ctx context.Context, text string, context map[string]string) (*inference.CommandInterpretation, error)
	Answer(ctx context.Context, req inference.AnswerRequest) (string, error)
}

type command struct {
	Text    string
	Intent  Intent
	Slots   map[string]string
	Context map[string]string
}

type handler func(ctx context.Context, cmd command) (string, any, error)

// Router classifies commands and dispatches them to per-intent handlers.
type Router struct {
	session         SessionReader
	infer           Inference
	contextSegments int
	handlers        map[Intent]handler
	logger          *slog.Logger
}

// NewRouter creates a router. contextSegments is how many trailing transcript
// segments are sent along with summarize and passthrough questions.
func NewRouter(sr SessionReader, infer Inference, contextSegments int, log *slog.Logger) *Router {
	if log == nil {
		log = logger.Discard()
	}
	if contextSegments < 1 {
		contextSegments = 20
	}
	r := &Router{
		session:         sr,
		infer:           infer,
		contextSegments: contextSegments,
		logger:          log,
	}
	r.handlers = map[Intent]handler{
		IntentQueryTranscript:     r.queryTranscript,
		IntentQuerySentiment:      r.querySentiment,
		IntentQueryActions:        r.queryActions,
		IntentSummarize:           r.generate,
		IntentPassthroughQuestion: r.generate,
	}
	return r
}

// Handle runs one command through received → classified → dispatched →
// answered|failed. It never returns an error; failures produce DegradedText.
func (r *Router) Handle(ctx context.Context, text string, cmdContext map[string]string) Response {
	resp := Response{State: StateReceived, Trace: []State{StateReceived}}
	text = strings.TrimSpace(text)
	if text == "" {
		return r.fail(resp, errors.New("empty command"))
	}

	interp, err := r.infer.InterpretCommand(ctx, text, cmdContext)
	if err != nil {
		return r.fail(resp, fmt.Errorf("interpret: %w", err))
	}
	if interp == nil {
		return r.fail(resp, errors.New("interpret: no result"))
	}
	resp.Intent = ParseIntent(interp.Intent)
	resp.advance(StateClassified)

	h, ok := r.handlers[resp.Intent]
	if !ok {
		return r.fail(resp, fmt.Errorf("no handler for intent %s", resp.Intent))
	}
	resp.advance(StateDispatched)

	out, data, err := h(ctx, command{Text: text, Intent: resp.Intent, Slots: interp.Slots, Context: cmdContext})
	if err != nil {
		return r.fail(resp, err)
	}
	resp.Text = out
	resp.Data = data
	resp.advance(StateAnswered)
	metrics.RecordCommand(string(resp.Intent), string(StateAnswered))
	r.logger.Debug("assistant command answered", "intent", resp.Intent)
	return resp
}

func (r *Router) fail(resp Response, err error) Response {
	resp.advance(StateFailed)
	resp.Text = DegradedText
	resp.Degraded = true
	resp.Data = nil
	intent := string(resp.Intent)
	if intent == "" {
		intent = "unclassified"
	}
	metrics.RecordCommand(intent, string(StateFailed))
	r.logger.Warn("assistant command failed", "intent", intent, "error", err)
	return resp
}

func (resp *Response) advance(s State) {
	resp.State = s
	resp.Trace = append(resp.Trace, s)
}

func (r *Router) queryTranscript(ctx context.Context, cmd command) (string, any, error) {
	limit := defaultTranscriptLimit
	if v, err := strconv.Atoi(cmd.Slots["limit"]); err == nil && v > 0 {
		limit = v
	}
	speaker := cmd.Slots["speaker"]

	var segs []session.TranscriptSegment
	for _, seg := range r.session.Snapshot().Transcript {
		if speaker == "" || seg.Speaker == speaker {
			segs = append(segs, seg)
		}
	}
	if len(segs) > limit {
		segs = segs[len(segs)-limit:]
	}
	if len(segs) == 0 {
		return "Nothing has been transcribed yet.", []session.TranscriptSegment{}, nil
	}

	lines := make([]string, len(segs))
	for i, seg := range segs {
		lines[i] = fmt.Sprintf("[%d] %s: %s", seg.Sequence, seg.Speaker, seg.Text)
	}
	return strings.Join(lines, "\n"), segs, nil
}

func (r *Router) querySentiment(ctx context.Context, cmd command) (string, any, error) {
	ledger := r.session.Snapshot().Sentiment
	if speaker := cmd.Slots["speaker"]; speaker != "" {
		rec, ok := ledger[speaker]
		if !ok {
			return fmt.Sprintf("No sentiment recorded for %s.", speaker), []session.SentimentRecord{}, nil
		}
		return describeSentiment(rec), []session.SentimentRecord{rec}, nil
	}
	if len(ledger) == 0 {
		return "No sentiment recorded yet.", []session.SentimentRecord{}, nil
	}

	speakers := make([]string, 0, len(ledger))
	for k := range ledger {
		speakers = append(speakers, k)
	}
	sort.Strings(speakers)

	lines := make([]string, len(speakers))
	records := make([]session.SentimentRecord, len(speakers))
	for i, sp := range speakers {
		records[i] = ledger[sp]
		lines[i] = describeSentiment(ledger[sp])
	}
	return strings.Join(lines, "\n"), records, nil
}

func describeSentiment(rec session.SentimentRecord) string {
	return fmt.Sprintf("%s: %s (average %.2f over %d samples)",
		rec.Speaker, rec.LatestLabel, rec.RunningAverage, rec.SampleCount)
}

func (r *Router) queryActions(ctx context.Context, cmd command) (string, any, error) {
	status := strings.ToLower(cmd.Slots["status"])
	switch status {
	case string(session.ActionDone), "all":
	default:
		status = string(session.ActionOpen)
	}
	speaker := cmd.Slots["speaker"]

	items := []session.ActionItem{}
	for _, it := range r.session.Snapshot().ActionItems {
		if status != "all" && string(it.Status) != status {
			continue
		}
		if speaker != "" && it.Speaker != speaker {
			continue
		}
		items = append(items, it)
	}
	if len(items) == 0 {
		if status == "all" {
			return "No action items.", items, nil
		}
		return fmt.Sprintf("No %s action items.", status), items, nil
	}

	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("- %s (%s, %s)", it.Text, it.Speaker, it.Status)
	}
	return strings.Join(lines, "\n"), items, nil
}

func (r *Router) generate(ctx context.Context, cmd command) (string, any, error) {
	transcript := r.session.Snapshot().Transcript
	if len(transcript) > r.contextSegments {
		transcript = transcript[len(transcript)-r.contextSegments:]
	}
	lines := make([]string, len(transcript))
	for i, seg := range transcript {
		lines[i] = seg.Speaker + ": " + seg.Text
	}

	answer, err := r.infer.Answer(ctx, inference.AnswerRequest{
		Intent:     string(cmd.Intent),
		Question:   cmd.Text,
		Transcript: lines,
		Context:    cmd.Context,
	})
	if err != nil {
		return "", nil, fmt.Errorf("answer: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", nil, errEmptyAnswer
	}
	return answer, nil, nil
}
