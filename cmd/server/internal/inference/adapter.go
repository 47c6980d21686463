// Package inference defines the boundary to the external inference providers
// (speech-to-text, translation, sentiment, action-item extraction, command
// understanding and generative answering). Every call is a single
// request/response with no session awareness.
package inference

import (
	"context"
	"errors"
)

// Capability names one inference operation. Used for limiter slots, metrics
// labels and log attributes.
type Capability string

const (
	CapTranscribe  Capability = "transcribe"
	CapTranslate   Capability = "translate"
	CapSentiment   Capability = "sentiment"
	CapActionItems Capability = "action_items"
	CapInterpret   Capability = "interpret"
	CapAnswer      Capability = "answer"
)

// AllCapabilities lists every capability in a stable order.
var AllCapabilities = []Capability{
	CapTranscribe,
	CapTranslate,
	CapSentiment,
	CapActionItems,
	CapInterpret,
	CapAnswer,
}

// ErrUnavailable is returned by adapters that cannot serve requests at all,
// most notably the degraded fallback.
var ErrUnavailable = errors.New("inference service unavailable")

// TranscribeRequest carries one chunk of raw audio.
type TranscribeRequest struct {
	Audio    []byte
	Language string
	Model    string
}

// TranscribeResult is the text recognised in one audio chunk.
type TranscribeResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
}

// SentimentScore is a single sentiment observation. Score is in [-1, 1].
type SentimentScore struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// CommandInterpretation is the provider's reading of a free-text command.
// Intent is an open-ended string; callers map it onto their own closed set.
type CommandInterpretation struct {
	Intent string            `json:"intent"`
	Slots  map[string]string `json:"slots"`
}

// AnswerRequest asks the provider for generative reasoning over buffered
// meeting context.
type AnswerRequest struct {
	Intent     string            `json:"intent"`
	Question   string            `json:"question"`
	Transcript []string          `json:"transcript"`
	Context    map[string]string `json:"context,omitempty"`
}

// Adapter is the capability set the aggregator consumes.
//
// Implementations must respect ctx cancellation and deadlines; a timed-out
// call is reported as an ordinary error.
type Adapter interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResult, error)
	Translate(ctx context.Context, text, fromLang, toLang string) (string, error)
	ScoreSentiment(ctx context.Context, text, speaker string) (*SentimentScore, error)
	// ExtractActionItems returns candidate phrases; none is a valid answer.
	ExtractActionItems(ctx context.Context, text, speaker string) ([]string, error)
	InterpretCommand(ctx context.Context, text string, context map[string]string) (*CommandInterpretation, error)
	Answer(ctx context.Context, req AnswerRequest) (string, error)

	// HealthCheck reports whether the provider is ready to serve requests.
	HealthCheck(ctx context.Context) (bool, error)
	// Name identifies the implementation in logs and status endpoints.
	Name() string
}
