package session

import (
	"strings"
	"sync"
	"time"

	"github.com/houzhh15/meetassist/cmd/server/internal/simhash"
)

// Options configures a State.
type Options struct {
	// SimhashDistance enables near-duplicate detection of action items when > 0.
	SimhashDistance int

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

type registryEntry struct {
	item        ActionItem
	normalized  string
	fingerprint uint64
}

// State is the single mutable session of the process. All fields are guarded
// by mu, which is never held across an inference call.
type State struct {
	mu sync.Mutex

	generation uint64
	lastSeq    uint64
	transcript []TranscriptSegment
	sentiment  map[string]*SentimentRecord
	items      []*registryEntry
	byID       map[string]*registryEntry
	ordinals   map[string]int

	simhashDistance int
	now             func() time.Time
}

// New creates an empty session at generation 0.
func New(opts Options) *State {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &State{
		sentiment:       make(map[string]*SentimentRecord),
		byID:            make(map[string]*registryEntry),
		ordinals:        make(map[string]int),
		simhashDistance: opts.SimhashDistance,
		now:             now,
	}
}

// Generation returns the current buffer generation.
func (s *State) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// AppendSegment appends a transcript segment with the next sequence number.
func (s *State) AppendSegment(gen uint64, in SegmentInput) (TranscriptSegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return TranscriptSegment{}, ErrStaleGeneration
	}
	s.lastSeq++
	seg := TranscriptSegment{
		Sequence:   s.lastSeq,
		Speaker:    in.Speaker,
		Language:   in.Language,
		Text:       in.Text,
		Confidence: in.Confidence,
		CapturedAt: s.now().UTC(),
	}
	s.transcript = append(s.transcript, seg)
	return seg, nil
}

// ObserveSentiment folds one score into the speaker's running average.
// Scores outside [-1, 1] are clamped.
func (s *State) ObserveSentiment(gen uint64, speaker string, score float64, label string) (SentimentRecord, error) {
	if score < -1 {
		score = -1
	} else if score > 1 {
		score = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return SentimentRecord{}, ErrStaleGeneration
	}
	rec, ok := s.sentiment[speaker]
	if !ok {
		rec = &SentimentRecord{Speaker: speaker}
		s.sentiment[speaker] = rec
	}
	rec.SampleCount++
	rec.RunningAverage += (score - rec.RunningAverage) / float64(rec.SampleCount)
	rec.LatestScore = score
	rec.LatestLabel = ParseSentimentLabel(label, score)
	rec.UpdatedAt = s.now().UTC()
	return *rec, nil
}

// InsertActionItems registers candidates for speaker and returns only the
// items that were newly inserted. A candidate is skipped when it is empty
// after normalization, duplicates an open item of the same speaker, or
// repeats an earlier candidate in the same call.
func (s *State) InsertActionItems(gen uint64, speaker string, candidates []string) ([]ActionItem, error) {
	type prepared struct {
		text        string
		normalized  string
		fingerprint uint64
	}
	// Normalization and hashing happen outside the lock.
	batch := make([]prepared, 0, len(candidates))
	for _, c := range candidates {
		n := NormalizeActionText(c)
		if n == "" {
			continue
		}
		p := prepared{text: strings.TrimSpace(c), normalized: n}
		if s.simhashDistance > 0 {
			p.fingerprint = simhash.Fingerprint(n)
		}
		batch = append(batch, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return nil, ErrStaleGeneration
	}

	now := s.now().UTC()
	var inserted []ActionItem
	for _, p := range batch {
		if s.isDuplicateLocked(speaker, p.normalized, p.fingerprint) {
			continue
		}
		key := itemKey(speaker, p.normalized)
		ordinal := s.ordinals[key]
		s.ordinals[key] = ordinal + 1

		entry := &registryEntry{
			item: ActionItem{
				ID:         ActionItemID(speaker, p.normalized, ordinal),
				Text:       p.text,
				Speaker:    speaker,
				DetectedAt: now,
				Status:     ActionOpen,
				Generation: s.generation,
			},
			normalized:  p.normalized,
			fingerprint: p.fingerprint,
		}
		s.items = append(s.items, entry)
		s.byID[entry.item.ID] = entry
		inserted = append(inserted, entry.item)
	}
	return inserted, nil
}

// isDuplicateLocked checks open items of speaker, which includes those
// inserted earlier in the current batch. Caller holds mu.
func (s *State) isDuplicateLocked(speaker, normalized string, fingerprint uint64) bool {
	for _, e := range s.items {
		if e.item.Status != ActionOpen || e.item.Speaker != speaker {
			continue
		}
		if e.normalized == normalized {
			return true
		}
		if s.simhashDistance > 0 && simhash.Within(e.fingerprint, fingerprint, s.simhashDistance) {
			return true
		}
	}
	return false
}

// CompleteActionItem marks the item done. Completing a done item is a no-op.
func (s *State) CompleteActionItem(id string) (ActionItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byID[id]
	if !ok {
		return ActionItem{}, ErrItemNotFound
	}
	entry.item.Status = ActionDone
	return entry.item, nil
}

// Clear empties all collections in place and advances the generation.
// It returns the previous and the new generation.
func (s *State) Clear() (oldGen, newGen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldGen = s.generation
	s.generation++
	s.lastSeq = 0
	s.transcript = nil
	s.sentiment = make(map[string]*SentimentRecord)
	s.items = nil
	s.byID = make(map[string]*registryEntry)
	s.ordinals = make(map[string]int)
	return oldGen, s.generation
}

// Transcript returns a copy of the transcript buffer in sequence order.
func (s *State) Transcript() []TranscriptSegment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcriptLocked()
}

// Sentiment returns a copy of the sentiment ledger keyed by speaker.
func (s *State) Sentiment() map[string]SentimentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sentimentLocked()
}

// ActionItems returns a copy of the registry in detection order.
func (s *State) ActionItems() []ActionItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked()
}

// Snapshot returns all collections as of a single instant.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Generation:  s.generation,
		Transcript:  s.transcriptLocked(),
		Sentiment:   s.sentimentLocked(),
		ActionItems: s.itemsLocked(),
		TakenAt:     s.now().UTC(),
	}
}

// Stats returns the collection sizes and the generation.
func (s *State) Stats() (segments, speakers, actionItems int, generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transcript), len(s.sentiment), len(s.items), s.generation
}

func (s *State) transcriptLocked() []TranscriptSegment {
	out := make([]TranscriptSegment, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *State) sentimentLocked() map[string]SentimentRecord {
	out := make(map[string]SentimentRecord, len(s.sentiment))
	for k, v := range s.sentiment {
		out[k] = *v
	}
	return out
}

func (s *State) itemsLocked() []ActionItem {
	out := make([]ActionItem, len(s.items))
	for i, e := range s.items {
		out[i] = e.item
	}
	return out
}
