// Package crisis holds the escalation predicate. Detection is deliberately
// a pluggable function of the submitted text; the phrase set is external
// configuration, not code.
package crisis

import "strings"

// Detector decides whether a piece of text signals a crisis.
type Detector interface {
	Detect(text string) bool
}

// PhraseDetector matches a configured phrase set with case-insensitive
// substring comparison.
type PhraseDetector struct {
	phrases []string
}

// NewPhraseDetector lowercases the phrase set once up front.
func NewPhraseDetector(phrases []string) *PhraseDetector {
	lowered := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase != "" {
			lowered = append(lowered, phrase)
		}
	}
	return &PhraseDetector{phrases: lowered}
}

// Detect reports whether text contains any configured phrase.
func (d *PhraseDetector) Detect(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range d.phrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
