package inference

import (
	"context"
	"log/slog"
)

// DegradedAdapter is the fallback used while the primary providers are
// unhealthy. Every capability fails immediately with ErrUnavailable so callers
// degrade without waiting on a dead upstream. It never fabricates output.
type DegradedAdapter struct {
	logger *slog.Logger
}

// NewDegradedAdapter creates the fallback adapter. A nil logger is allowed.
func NewDegradedAdapter(logger *slog.Logger) *DegradedAdapter {
	return &DegradedAdapter{logger: logger}
}

func (d *DegradedAdapter) unavailable(c Capability) error {
	if d.logger != nil {
		d.logger.Warn("inference call rejected in degraded mode", "capability", string(c))
	}
	return ErrUnavailable
}

func (d *DegradedAdapter) Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResult, error) {
	return nil, d.unavailable(CapTranscribe)
}

func (d *DegradedAdapter) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	return "", d.unavailable(CapTranslate)
}

func (d *DegradedAdapter) ScoreSentiment(ctx context.Context, text, speaker string) (*SentimentScore, error) {
	return nil, d.unavailable(CapSentiment)
}

func (d *DegradedAdapter) ExtractActionItems(ctx context.Context, text, speaker string) ([]string, error) {
	return nil, d.unavailable(CapActionItems)
}

func (d *DegradedAdapter) InterpretCommand(ctx context.Context, text string, context map[string]string) (*CommandInterpretation, error) {
	return nil, d.unavailable(CapInterpret)
}

func (d *DegradedAdapter) Answer(ctx context.Context, req AnswerRequest) (string, error) {
	return "", d.unavailable(CapAnswer)
}

// HealthCheck always reports unhealthy: this adapter represents degraded mode.
func (d *DegradedAdapter) HealthCheck(ctx context.Context) (bool, error) {
	return false, nil
}

// Name returns "degraded".
func (d *DegradedAdapter) Name() string {
	return "degraded"
}
