package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/houzhh15/meetassist/cmd/server/internal/inference"
)

// fakeAdapter scripts every capability with an optional func; unset funcs
// return a fixed error.
type fakeAdapter struct {
	mu    sync.Mutex
	calls map[inference.Capability]int

	transcribe func(ctx context.Context, req inference.TranscribeRequest) (*inference.TranscribeResult, error)
	translate  func(ctx context.Context, text, from, to string) (string, error)
	sentiment  func(ctx context.Context, text, speaker string) (*inference.SentimentScore, error)
	actions    func(ctx context.Context, text, speaker string) ([]string, error)
	interpret  func(ctx context.Context, text string, c map[string]string) (*inference.CommandInterpretation, error)
	answer     func(ctx context.Context, req inference.AnswerRequest) (string, error)
}

var errNotScripted = errors.New("not scripted")

func (f *fakeAdapter) count(c inference.Capability) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[inference.Capability]int)
	}
	f.calls[c]++
}

func (f *fakeAdapter) callCount(c inference.Capability) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[c]
}

func (f *fakeAdapter) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.calls {
		n += v
	}
	return n
}

func (f *fakeAdapter) Transcribe(ctx context.Context, req inference.TranscribeRequest) (*inference.TranscribeResult, error) {
	f.count(inference.CapTranscribe)
	if f.transcribe == nil {
		return nil, errNotScripted
	}
	return f.transcribe(ctx, req)
}

func (f *fakeAdapter) Translate(ctx context.Context, text, from, to string) (string, error) {
	f.count(inference.CapTranslate)
	if f.translate == nil {
		return "", errNotScripted
	}
	return f.translate(ctx, text, from, to)
}

func (f *fakeAdapter) ScoreSentiment(ctx context.Context, text, speaker string) (*inference.SentimentScore, error) {
	f.count(inference.CapSentiment)
	if f.sentiment == nil {
		return nil, errNotScripted
	}
	return f.sentiment(ctx, text, speaker)
}

func (f *fakeAdapter) ExtractActionItems(ctx context.Context, text, speaker string) ([]string, error) {
	f.count(inference.CapActionItems)
	if f.actions == nil {
		return nil, errNotScripted
	}
	return f.actions(ctx, text, speaker)
}

func (f *fakeAdapter) InterpretCommand(ctx context.Context, text string, c map[string]string) (*inference.CommandInterpretation, error) {
	f.count(inference.CapInterpret)
	if f.interpret == nil {
		return nil, errNotScripted
	}
	return f.interpret(ctx, text, c)
}

func (f *fakeAdapter) Answer(ctx context.Context, req inference.AnswerRequest) (string, error) {
	f.count(inference.CapAnswer)
	if f.answer == nil {
		return "", errNotScripted
	}
	return f.answer(ctx, req)
}

func (f *fakeAdapter) HealthCheck(ctx context.Context) (bool, error) { return true, nil }

func (f *fakeAdapter) Name() string { return "fake" }

// scriptedScores returns the given sentiment scores in order.
func scriptedScores(scores ...float64) func(context.Context, string, string) (*inference.SentimentScore, error) {
	var mu sync.Mutex
	i := 0
	return func(context.Context, string, string) (*inference.SentimentScore, error) {
		mu.Lock()
		defer mu.Unlock()
		s := scores[i%len(scores)]
		i++
		return &inference.SentimentScore{Score: s}, nil
	}
}
