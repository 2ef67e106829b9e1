package rules

import "github.com/tagwise/tagwise/internal/model"

// SystemRules returns the hard-coded default rule set. These are the rules
// extractAndMergeAllRules converts into editable mapping and keyword data.
func SystemRules() []model.Rule {
	return []model.Rule{
		// Tier 0: fixed-pattern overrides that bypass everything else.
		{
			ID:         1,
			Name:       "Salary deposit",
			Tier:       0,
			Type:       model.RuleTypeKeywordMapping,
			Source:     model.SourceSystem,
			ResultTag:  "Income",
			Confidence: 0.95,
			Conditions: []model.Condition{
				{Kind: model.ConditionRegex, Value: `(?i)\b(payroll|salaris|salary payment|wages)\b`},
				{Kind: model.ConditionAmountThreshold, Amount: 1}, // incoming only
			},
		},
		{
			ID:         2,
			Name:       "ATM cash withdrawal",
			Tier:       0,
			Type:       model.RuleTypeKeywordMapping,
			Source:     model.SourceSystem,
			ResultTag:  "Cash",
			Confidence: 0.95,
			Conditions: []model.Condition{
				{Kind: model.ConditionRegex, Value: `(?i)\b(atm|geldautomaat|cash\s*withdrawal)\b`},
			},
		},

		// Tier 2 equivalents: category/subcategory mappings shipped as rules.
		{
			ID:                10,
			Name:              "Groceries mapping",
			Tier:              2,
			Type:              model.RuleTypeCategoryMapping,
			Source:            model.SourceSystem,
			ResultTag:         "Groceries",
			ResultCategory:    "expense",
			ResultSubcategory: "supermarket",
			Confidence:        0.9,
		},
		{
			ID:                11,
			Name:              "Rent mapping",
			Tier:              2,
			Type:              model.RuleTypeCategoryMapping,
			Source:            model.SourceSystem,
			ResultTag:         "Housing",
			ResultCategory:    "expense",
			ResultSubcategory: "rent",
			Confidence:        0.9,
		},
		{
			ID:                12,
			Name:              "Salary mapping",
			Tier:              2,
			Type:              model.RuleTypeCategoryMapping,
			Source:            model.SourceSystem,
			ResultTag:         "Income",
			ResultCategory:    "income",
			ResultSubcategory: "salary",
			Confidence:        0.9,
		},

		// Tier 5 equivalents: keyword rules for common tags.
		{
			ID:         20,
			Name:       "Streaming subscriptions",
			Tier:       5,
			Type:       model.RuleTypeKeywordMapping,
			Source:     model.SourceSystem,
			ResultTag:  "Subscriptions",
			Confidence: 0.65,
			Conditions: []model.Condition{
				{Kind: model.ConditionKeyword, Value: "netflix"},
			},
		},
		{
			ID:         21,
			Name:       "Music subscriptions",
			Tier:       5,
			Type:       model.RuleTypeKeywordMapping,
			Source:     model.SourceSystem,
			ResultTag:  "Subscriptions",
			Confidence: 0.65,
			Conditions: []model.Condition{
				{Kind: model.ConditionKeyword, Value: "spotify"},
			},
		},
		{
			ID:         22,
			Name:       "Supermarket keyword",
			Tier:       5,
			Type:       model.RuleTypeKeywordMapping,
			Source:     model.SourceSystem,
			ResultTag:  "Groceries",
			Confidence: 0.65,
			Conditions: []model.Condition{
				{Kind: model.ConditionKeyword, Value: "supermarket"},
			},
		},
	}
}

// categoryAssignments is the tier-4 lookup table: a description keyword
// implies a category/subcategory when the source supplied none.
func categoryAssignments() []model.Rule {
	return []model.Rule{
		{
			ID:                40,
			Name:              "Supermarket implies groceries",
			Tier:              4,
			Type:              model.RuleTypeCategoryAssignment,
			Source:            model.SourceSystem,
			ResultCategory:    "expense",
			ResultSubcategory: "supermarket",
			Confidence:        0.7,
			Conditions: []model.Condition{
				{Kind: model.ConditionRegex, Value: `(?i)\b(supermarket|albert heijn|lidl|aldi|jumbo)\b`},
			},
		},
		{
			ID:                41,
			Name:              "Restaurant implies dining",
			Tier:              4,
			Type:              model.RuleTypeCategoryAssignment,
			Source:            model.SourceSystem,
			ResultCategory:    "expense",
			ResultSubcategory: "restaurant",
			Confidence:        0.7,
			Conditions: []model.Condition{
				{Kind: model.ConditionRegex, Value: `(?i)\b(restaurant|cafe|bistro|takeaway)\b`},
			},
		},
		{
			ID:                42,
			Name:              "Broker implies investment category",
			Tier:              4,
			Type:              model.RuleTypeCategoryAssignment,
			Source:            model.SourceSystem,
			ResultCategory:    "investment",
			Confidence:        0.7,
			Conditions: []model.Condition{
				{Kind: model.ConditionRegex, Value: `(?i)\b(degiro|flatex|etoro)\b`},
			},
		},
		{
			ID:                43,
			Name:              "Salary implies income category",
			Tier:              4,
			Type:              model.RuleTypeCategoryAssignment,
			Source:            model.SourceSystem,
			ResultCategory:    "income",
			ResultSubcategory: "salary",
			Confidence:        0.7,
			Conditions: []model.Condition{
				{Kind: model.ConditionRegex, Value: `(?i)\b(salary|payroll|salaris)\b`},
			},
		},
	}
}
