package model

import "time"

// PatternType identifies how a learned pattern was extracted.
type PatternType string

// Pattern type constants.
const (
	// PatternToken is a single description token of length >= 3.
	PatternToken PatternType = "token"
	// PatternPhrase is an adjacent two-word phrase of length >= 5.
	PatternPhrase PatternType = "phrase"
	// PatternSpecial is a high-value identifier such as a masked card
	// number or a known provider token.
	PatternSpecial PatternType = "special"
)

// Pattern is a weighted candidate extracted from a transaction description.
type Pattern struct {
	Type       PatternType `json:"type"`
	Value      string      `json:"pattern"`
	Confidence float64     `json:"confidence"`
}

// ManualAssignment is the immutable record of one user tag correction.
// Assignments are never deleted; they accumulate as learning signal.
type ManualAssignment struct {
	CreatedAt    time.Time `json:"created_at"`
	ID           string    `json:"id"`
	Tag          string    `json:"tag"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Subcategory  string    `json:"subcategory"`
	Counterparty string    `json:"counterparty"`
	Patterns     []Pattern `json:"patterns"`
	Amount       int64     `json:"amount"`
}

// LearnedCondition is one pattern retained in a learned rule, annotated with
// how often it occurred across the assignment group.
type LearnedCondition struct {
	Type       PatternType `json:"type"`
	Pattern    string      `json:"pattern"`
	Confidence float64     `json:"confidence"`
	Frequency  float64     `json:"frequency"`
}

// LearnedRule is a rule synthesized from two or more manual assignments
// sharing a tag. At most one learned rule is active per tag; re-analysis
// replaces the previous rule rather than accumulating.
type LearnedRule struct {
	CreatedAt        time.Time          `json:"createdAt"`
	LastUsed         time.Time          `json:"lastUsed"`
	ID               string             `json:"id"`
	Tag              string             `json:"tag"`
	Conditions       []LearnedCondition `json:"conditions"`
	Confidence       float64            `json:"confidence"`
	AssignmentsCount int                `json:"assignmentsCount"`
	UseCount         int                `json:"usageCount"`
}
