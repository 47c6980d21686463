// Package assistant routes free-text assistant commands to a fixed set of
// intents and produces a response for each.
package assistant

import "strings"

// Intent is the closed set of things the assistant can do.
type Intent string

const (
	IntentQueryTranscript     Intent = "query_transcript"
	IntentQuerySentiment      Intent = "query_sentiment"
	IntentQueryActions        Intent = "query_actions"
	IntentSummarize           Intent = "summarize"
	IntentPassthroughQuestion Intent = "passthrough_question"
)

// AllIntents lists every Intent.
var AllIntents = []Intent{
	IntentQueryTranscript,
	IntentQuerySentiment,
	IntentQueryActions,
	IntentSummarize,
	IntentPassthroughQuestion,
}

// ParseIntent maps a classifier label to an Intent. Anything unknown becomes
// IntentPassthroughQuestion.
func ParseIntent(s string) Intent {
	in := Intent(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllIntents {
		if in == known {
			return in
		}
	}
	return IntentPassthroughQuestion
}

// State is a step of command handling.
type State string

const (
	StateReceived   State = "received"
	StateClassified State = "classified"
	StateDispatched State = "dispatched"
	StateAnswered   State = "answered"
	StateFailed     State = "failed"
)

// DegradedText is returned whenever a command cannot be answered.
const DegradedText = "Sorry, I can't help with that right now. Please try again shortly."

// Response is the outcome of one assistant command.
type Response struct {
	Intent   Intent  `json:"intent,omitempty"`
	State    State   `json:"state"`
	Text     string  `json:"text"`
	Degraded bool    `json:"degraded"`
	Trace    []State `json:"trace"`
	Data     any     `json:"data,omitempty"`
}
