package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/houzhh15/meetassist/cmd/server/internal/inference"
	"github.com/houzhh15/meetassist/cmd/server/internal/limiter"
	"github.com/houzhh15/meetassist/cmd/server/internal/session"
)

func TestProcessMeetingInput(t *testing.T) {
	ctx := context.Background()

	t.Run("partial failure", func(t *testing.T) {
		ad := &fakeAdapter{
			sentiment: scriptedScores(0.4),
			actions: func(context.Context, string, string) ([]string, error) {
				return nil, errors.New("extractor crashed")
			},
		}
		agg := newTestAggregator(ad, Options{})

		out, err := agg.ProcessMeetingInput(ctx, MeetingInput{Speaker: "alice", Text: "we should ship"})
		require.NoError(t, err)
		require.NotNil(t, out.Sentiment)
		assert.Equal(t, 1, out.Sentiment.SampleCount)
		assert.Empty(t, out.NewActionItems)
		assert.Contains(t, out.Errors[StepActionItems], "extractor crashed")
		assert.NotContains(t, out.Errors, StepSentiment)
		assert.Empty(t, agg.GetActionItems())
	})

	t.Run("audio overrides text", func(t *testing.T) {
		var seen []string
		ad := &fakeAdapter{
			transcribe: func(context.Context, inference.TranscribeRequest) (*inference.TranscribeResult, error) {
				return &inference.TranscribeResult{Text: "spoken words", Language: "en"}, nil
			},
			sentiment: func(ctx context.Context, text, speaker string) (*inference.SentimentScore, error) {
				return &inference.SentimentScore{Score: 0}, nil
			},
			actions: func(ctx context.Context, text, speaker string) ([]string, error) {
				seen = append(seen, text)
				return []string{"follow up"}, nil
			},
		}
		agg := newTestAggregator(ad, Options{})

		out, err := agg.ProcessMeetingInput(ctx, MeetingInput{Speaker: "bob", Audio: []byte{1, 2}, Text: "typed words"})
		require.NoError(t, err)
		require.NotNil(t, out.Segment)
		assert.Equal(t, uint64(1), out.Segment.Sequence)
		assert.Equal(t, "spoken words", out.Text)
		assert.Equal(t, []string{"spoken words"}, seen)
		assert.Len(t, out.NewActionItems, 1)
		assert.Empty(t, out.Errors)
	})

	t.Run("transcription failure falls back to caller text", func(t *testing.T) {
		ad := &fakeAdapter{
			sentiment: scriptedScores(-0.1),
			actions: func(context.Context, string, string) ([]string, error) {
				return nil, nil
			},
		}
		agg := newTestAggregator(ad, Options{})

		out, err := agg.ProcessMeetingInput(ctx, MeetingInput{Speaker: "bob", Audio: []byte{1}, Text: "typed words"})
		require.NoError(t, err)
		assert.Nil(t, out.Segment)
		assert.Contains(t, out.Errors, StepTranscription)
		assert.NotNil(t, out.Sentiment)
		assert.Equal(t, "typed words", out.Text)
	})

	t.Run("all steps fail without error", func(t *testing.T) {
		agg := newTestAggregator(inference.NewDegradedAdapter(nil), Options{})

		out, err := agg.ProcessMeetingInput(ctx, MeetingInput{Speaker: "bob", Audio: []byte{1}})
		require.NoError(t, err)
		assert.Len(t, out.Errors, 1)
		assert.Contains(t, out.Errors[StepTranscription], "INFERENCE_UNAVAILABLE")
		assert.Nil(t, out.Sentiment)
	})

	t.Run("validation", func(t *testing.T) {
		ad := &fakeAdapter{}
		agg := newTestAggregator(ad, Options{})

		_, err := agg.ProcessMeetingInput(ctx, MeetingInput{Text: "hi"})
		assert.True(t, IsValidation(err))
		_, err = agg.ProcessMeetingInput(ctx, MeetingInput{Speaker: "bob"})
		assert.True(t, IsValidation(err))
		assert.Zero(t, ad.totalCalls())
	})

	t.Run("stale generation is reported per step", func(t *testing.T) {
		ad := &fakeAdapter{sentiment: scriptedScores(0.2)}
		agg := newTestAggregator(ad, Options{})
		agg.ClearBuffer()

		stale := uint64(0)
		out, err := agg.ProcessMeetingInput(ctx, MeetingInput{Speaker: "bob", Text: "hi", Generation: &stale})
		require.NoError(t, err)
		assert.Contains(t, out.Errors[StepSentiment], "STALE_GENERATION")
		assert.Contains(t, out.Errors[StepActionItems], "STALE_GENERATION")
		assert.Equal(t, uint64(1), out.Generation)
	})
}

// onMessageHandler runs fn the first time a record with the given message is logged.
type onMessageHandler struct {
	message string
	once    *sync.Once
	fn      func()
}

func (h onMessageHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h onMessageHandler) Handle(_ context.Context, r slog.Record) error {
	if r.Message == h.message {
		h.once.Do(h.fn)
	}
	return nil
}

func (h onMessageHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h onMessageHandler) WithGroup(string) slog.Handler      { return h }

func TestProcessMeetingInputPinsTranscribedGeneration(t *testing.T) {
	ad := &fakeAdapter{
		transcribe: func(context.Context, inference.TranscribeRequest) (*inference.TranscribeResult, error) {
			return &inference.TranscribeResult{Text: "we should ship friday"}, nil
		},
		sentiment: scriptedScores(0.6),
		actions: func(context.Context, string, string) ([]string, error) {
			return []string{"ship friday"}, nil
		},
	}

	// clear the session right after the segment lands, before the analysis steps start
	var agg *Aggregator
	hook := onMessageHandler{message: "segment appended", once: &sync.Once{}, fn: func() { agg.ClearBuffer() }}
	agg = New(session.New(session.Options{}), StaticAdapter{ad}, limiter.New(4, time.Second),
		Options{Timeout: time.Second}, slog.New(hook))

	out, err := agg.ProcessMeetingInput(context.Background(), MeetingInput{Speaker: "alice", Audio: []byte{1}})
	require.NoError(t, err)
	require.NotNil(t, out.Segment)
	assert.Equal(t, uint64(1), out.Segment.Sequence, "segment was written before the clear")

	assert.Contains(t, out.Errors[StepSentiment], "STALE_GENERATION")
	assert.Contains(t, out.Errors[StepActionItems], "STALE_GENERATION")
	assert.Nil(t, out.Sentiment)
	assert.Empty(t, out.NewActionItems)

	assert.Equal(t, uint64(1), agg.Generation())
	assert.Empty(t, agg.GetSentimentAnalysis(), "cleared text must not be scored into the new generation")
	assert.Empty(t, agg.GetActionItems())
	assert.Zero(t, ad.callCount(inference.CapSentiment))
	assert.Zero(t, ad.callCount(inference.CapActionItems))
}
