// Package simhash fingerprints short action-item phrases so near-duplicate
// phrasings ("send the report", "send report") can be detected cheaply.
package simhash

import (
	"strings"
	"unicode"

	"github.com/go-dedup/simhash"
)

// DefaultDistance is the Hamming distance used when near-duplicate
// detection is enabled without an explicit distance.
const DefaultDistance = 10

// PhraseFeatureSet implements simhash.FeatureSet for one normalized phrase.
type PhraseFeatureSet struct {
	text string
}

// GetFeatures extracts word unigrams and bigrams. Text without word
// separators (e.g. CJK) falls back to character bigrams.
func (p PhraseFeatureSet) GetFeatures() []simhash.Feature {
	words := strings.FieldsFunc(p.text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if len(words) == 0 {
		return []simhash.Feature{}
	}
	if len(words) == 1 && len([]rune(words[0])) > 3 && !isLatin(words[0]) {
		return runeBigrams(words[0])
	}

	features := make([]simhash.Feature, 0, 2*len(words))
	for i, w := range words {
		features = append(features, simhash.NewFeature([]byte(w)))
		if i > 0 {
			features = append(features, simhash.NewFeature([]byte(words[i-1]+" "+w)))
		}
	}
	return features
}

func runeBigrams(s string) []simhash.Feature {
	runes := []rune(s)
	features := make([]simhash.Feature, 0, len(runes))
	for i := 0; i < len(runes)-1; i++ {
		features = append(features, simhash.NewFeature([]byte(string(runes[i:i+2]))))
	}
	return features
}

func isLatin(s string) bool {
	for _, r := range s {
		if r > unicode.MaxLatin1 {
			return false
		}
	}
	return true
}

// Fingerprint returns the 64-bit SimHash of text.
func Fingerprint(text string) uint64 {
	return simhash.NewSimhash().GetSimhash(PhraseFeatureSet{text: text})
}

// Distance returns the Hamming distance (0-64) between two fingerprints.
func Distance(a, b uint64) int {
	return int(simhash.Compare(a, b))
}

// Within reports whether two fingerprints are at most maxDistance bits apart.
func Within(a, b uint64, maxDistance int) bool {
	return Distance(a, b) <= maxDistance
}
