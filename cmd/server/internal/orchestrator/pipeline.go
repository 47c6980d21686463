package orchestrator

import (
	"context"
	"strings"
	"sync"

	"github.com/houzhh15/meetassist/cmd/server/internal/session"
)

// Step names used as keys of MeetingOutput.Errors.
const (
	StepTranscription = "transcription"
	StepSentiment     = "sentiment"
	StepActionItems   = "action_items"
)

// MeetingInput is one unit of live meeting input. Audio, when present and
// transcribed, takes precedence over Text.
type MeetingInput struct {
	Speaker    string  `json:"speaker"`
	Language   string  `json:"language"`
	Audio      []byte  `json:"audio,omitempty"`
	Text       string  `json:"text,omitempty"`
	Generation *uint64 `json:"generation,omitempty"`
}

// MeetingOutput carries whatever each step produced. A nil or empty field
// means that step failed or was skipped; Errors explains the failures.
type MeetingOutput struct {
	Segment        *session.TranscriptSegment `json:"segment,omitempty"`
	Text           string                     `json:"text,omitempty"`
	Sentiment      *session.SentimentRecord   `json:"sentiment,omitempty"`
	NewActionItems []session.ActionItem       `json:"new_action_items"`
	Errors         map[string]string          `json:"errors,omitempty"`
	Generation     uint64                     `json:"generation"`
}

// ProcessMeetingInput runs transcription (if audio is given), then sentiment
// and action-item detection concurrently. Step failures are reported in the
// output; only invalid input returns an error.
func (a *Aggregator) ProcessMeetingInput(ctx context.Context, in MeetingInput) (MeetingOutput, error) {
	if strings.TrimSpace(in.Speaker) == "" {
		return MeetingOutput{}, NewValidationError("speaker is required")
	}
	if len(in.Audio) == 0 && strings.TrimSpace(in.Text) == "" {
		return MeetingOutput{}, NewValidationError("audio or text is required")
	}
	if in.Generation != nil {
		ctx = WithGeneration(ctx, *in.Generation)
	}

	out := MeetingOutput{NewActionItems: []session.ActionItem{}}
	var mu sync.Mutex
	fail := func(step string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if out.Errors == nil {
			out.Errors = make(map[string]string)
		}
		out.Errors[step] = err.Error()
		a.logger.Warn("meeting input step failed", "step", step, "speaker", in.Speaker, "error", err)
	}

	text := strings.TrimSpace(in.Text)
	if len(in.Audio) > 0 {
		seg, gen, err := a.transcribe(ctx, TranscriptionRequest{Audio: in.Audio, Language: in.Language, Speaker: in.Speaker})
		if err != nil {
			// caller text, if any, still feeds the later steps
			fail(StepTranscription, err)
		} else {
			out.Segment = &seg
			text = seg.Text
			// later steps must land in the generation that holds the segment
			ctx = WithGeneration(ctx, gen)
		}
	}

	if text != "" {
		out.Text = text

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			rec, err := a.AnalyzeSentiment(ctx, text, in.Speaker)
			if err != nil {
				fail(StepSentiment, err)
				return
			}
			mu.Lock()
			out.Sentiment = &rec
			mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			items, err := a.DetectActionItems(ctx, text, in.Speaker)
			if err != nil {
				fail(StepActionItems, err)
				return
			}
			mu.Lock()
			out.NewActionItems = items
			mu.Unlock()
		}()
		wg.Wait()
	}

	out.Generation = a.state.Generation()
	return out, nil
}
