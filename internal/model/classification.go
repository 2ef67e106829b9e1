package model

import "time"

// Well-known tags. Savings, Transfers and Investments are the ambiguous
// triangle guarded by the exclusion logic; Other is the fail-closed default.
const (
	TagSavings     = "Savings"
	TagTransfers   = "Transfers"
	TagInvestments = "Investments"
	TagOther       = "Other"
)

// RuleSource indicates where a rule or classification decision came from.
type RuleSource string

// Rule source constants.
const (
	SourceSystem  RuleSource = "system"
	SourceUser    RuleSource = "user"
	SourceLearned RuleSource = "learned"
)

// Classification is the result of running one transaction through the
// tiered classifier.
type Classification struct {
	ClassifiedAt time.Time
	Tag          string
	Category     string
	Subcategory  string
	Reason       string
	Tier         int
	Confidence   float64
}
