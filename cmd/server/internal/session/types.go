// Package session holds the in-memory state of one meeting: the transcript
// buffer, the per-speaker sentiment ledger and the action-item registry.
package session

import (
	"errors"
	"time"
)

var (
	// ErrStaleGeneration is returned when a mutation targets a generation
	// that has since been cleared.
	ErrStaleGeneration = errors.New("session generation has changed")

	// ErrItemNotFound is returned for an unknown action-item id.
	ErrItemNotFound = errors.New("action item not found")
)

// TranscriptSegment is one transcribed utterance.
type TranscriptSegment struct {
	Sequence   uint64    `json:"sequence"`
	Speaker    string    `json:"speaker"`
	Language   string    `json:"language"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	CapturedAt time.Time `json:"captured_at"`
}

// SentimentLabel classifies a sentiment score.
type SentimentLabel string

const (
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentPositive SentimentLabel = "positive"
)

// labelThreshold separates neutral from polar scores when the provider label is unusable.
const labelThreshold = 0.05

// ParseSentimentLabel returns the label for s, deriving it from score when s
// is not one of the known labels.
func ParseSentimentLabel(s string, score float64) SentimentLabel {
	switch l := SentimentLabel(s); l {
	case SentimentNegative, SentimentNeutral, SentimentPositive:
		return l
	}
	switch {
	case score <= -labelThreshold:
		return SentimentNegative
	case score >= labelThreshold:
		return SentimentPositive
	default:
		return SentimentNeutral
	}
}

// SentimentRecord is the running sentiment of one speaker.
type SentimentRecord struct {
	Speaker        string         `json:"speaker"`
	LatestScore    float64        `json:"latest_score"`
	LatestLabel    SentimentLabel `json:"latest_label"`
	SampleCount    int            `json:"sample_count"`
	RunningAverage float64        `json:"running_average"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ActionStatus is the lifecycle state of an action item.
type ActionStatus string

const (
	ActionOpen ActionStatus = "open"
	ActionDone ActionStatus = "done"
)

// ActionItem is a deduplicated follow-up detected in the conversation.
type ActionItem struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	Speaker    string       `json:"speaker"`
	DetectedAt time.Time    `json:"detected_at"`
	Status     ActionStatus `json:"status"`
	Generation uint64       `json:"generation"`
}

// Snapshot is a consistent copy of the whole session taken under one lock.
type Snapshot struct {
	Generation  uint64                     `json:"generation"`
	Transcript  []TranscriptSegment        `json:"transcript"`
	Sentiment   map[string]SentimentRecord `json:"sentiment"`
	ActionItems []ActionItem               `json:"action_items"`
	TakenAt     time.Time                  `json:"taken_at"`
}

// SegmentInput is the data needed to append a transcript segment.
type SegmentInput struct {
	Speaker    string
	Language   string
	Text       string
	Confidence float64
}
