package model

import "time"

// RuleType classifies what a rule produces when it fires.
type RuleType string

// Rule type constants.
const (
	RuleTypeCategoryMapping        RuleType = "category_mapping"
	RuleTypeKeywordMapping         RuleType = "keyword_mapping"
	RuleTypeCategoryKeywordMapping RuleType = "category_keyword_mapping"
	RuleTypeCategoryAssignment     RuleType = "category_assignment"
)

// ConditionKind identifies the variant of a rule condition.
type ConditionKind string

// Condition kind constants.
const (
	// ConditionKeyword matches when the value occurs in the description
	// on word boundaries, case-insensitively.
	ConditionKeyword ConditionKind = "keyword"
	// ConditionRegex matches when the compiled pattern matches the description.
	ConditionRegex ConditionKind = "regex"
	// ConditionSubcategory matches on an exact case-insensitive subcategory.
	ConditionSubcategory ConditionKind = "subcategory"
	// ConditionAmountThreshold matches on the signed amount in minor units:
	// a non-negative threshold requires amount >= threshold (incoming),
	// a negative threshold requires amount <= threshold (outgoing).
	ConditionAmountThreshold ConditionKind = "amount_threshold"
	// ConditionExclusionSet vetoes the rule when any listed keyword occurs
	// in the description.
	ConditionExclusionSet ConditionKind = "exclusion_set"
)

// Condition is one declarative predicate of a rule. Exactly one of the
// value fields is meaningful depending on Kind.
type Condition struct {
	Kind     ConditionKind `json:"kind"`
	Value    string        `json:"value,omitempty"`
	Values   []string      `json:"values,omitempty"`
	Amount   int64         `json:"amount,omitempty"`
	Negate   bool          `json:"negate,omitempty"`
}

// Rule is a declarative classification rule. System rules ship with the
// application; user rules come from edited mappings; learned rules are
// synthesized from manual corrections.
type Rule struct {
	LastUsed          time.Time   `json:"last_used,omitempty"`
	Type              RuleType    `json:"type"`
	Source            RuleSource  `json:"source"`
	Name              string      `json:"name"`
	ResultTag         string      `json:"result_tag,omitempty"`
	ResultCategory    string      `json:"result_category,omitempty"`
	ResultSubcategory string      `json:"result_subcategory,omitempty"`
	Conditions        []Condition `json:"conditions"`
	ID                int         `json:"id"`
	Tier              int         `json:"tier"`
	UseCount          int         `json:"use_count"`
	Confidence        float64     `json:"confidence"`
}
