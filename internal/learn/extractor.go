// Package learn converts manual tag corrections into weighted patterns and
// clusters them into learned rules.
package learn

import (
	"regexp"
	"strings"

	"github.com/tagwise/tagwise/internal/model"
)

// Pattern confidence weights per extraction strategy.
const (
	tokenConfidence   = 0.7
	phraseConfidence  = 0.8
	specialConfidence = 0.95

	minTokenLen  = 3
	minPhraseLen = 5
)

// Extractor turns a transaction description into candidate patterns.
// Strategies are independent so extraction heuristics can evolve without
// touching the aggregation logic.
type Extractor interface {
	Extract(description string) []model.Pattern
}

// DefaultExtractors returns the standard extraction pipeline: single
// tokens, adjacent two-word phrases, and high-value special identifiers.
func DefaultExtractors() []Extractor {
	return []Extractor{
		TokenExtractor{},
		PhraseExtractor{},
		NewSpecialExtractor(),
	}
}

// tokenize lowercases a description and splits it into alphanumeric runs.
func tokenize(description string) []string {
	return strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// TokenExtractor extracts every token of length >= 3.
type TokenExtractor struct{}

// Extract implements Extractor.
func (TokenExtractor) Extract(description string) []model.Pattern {
	var patterns []model.Pattern
	for _, tok := range tokenize(description) {
		if len(tok) < minTokenLen {
			continue
		}
		patterns = append(patterns, model.Pattern{
			Type:       model.PatternToken,
			Value:      tok,
			Confidence: tokenConfidence,
		})
	}
	return patterns
}

// PhraseExtractor extracts every adjacent two-word phrase of length >= 5.
type PhraseExtractor struct{}

// Extract implements Extractor.
func (PhraseExtractor) Extract(description string) []model.Pattern {
	tokens := tokenize(description)
	var patterns []model.Pattern
	for i := 0; i+1 < len(tokens); i++ {
		phrase := tokens[i] + " " + tokens[i+1]
		if len(phrase) < minPhraseLen {
			continue
		}
		patterns = append(patterns, model.Pattern{
			Type:       model.PatternPhrase,
			Value:      phrase,
			Confidence: phraseConfidence,
		})
	}
	return patterns
}

// SpecialExtractor matches a small set of high-value identifiers: masked
// card numbers, IBAN fragments, and well-known provider tokens.
type SpecialExtractor struct {
	patterns []*regexp.Regexp
}

// NewSpecialExtractor creates the extractor with its patterns precompiled.
func NewSpecialExtractor() SpecialExtractor {
	return SpecialExtractor{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b\d{4}\s*\*{2,}\s*\d{0,4}\b`),
			regexp.MustCompile(`\b[a-z]{2}\d{2}[a-z0-9]{8,30}\b`),
			regexp.MustCompile(`\b(netflix|spotify|degiro|flatex|bunq|paypal|amazon)\b`),
		},
	}
}

// Extract implements Extractor.
func (e SpecialExtractor) Extract(description string) []model.Pattern {
	text := strings.ToLower(description)
	var patterns []model.Pattern
	for _, re := range e.patterns {
		for _, match := range re.FindAllString(text, -1) {
			patterns = append(patterns, model.Pattern{
				Type:       model.PatternSpecial,
				Value:      strings.TrimSpace(match),
				Confidence: specialConfidence,
			})
		}
	}
	return patterns
}
