package engine

import (
	"strings"

	"github.com/tagwise/tagwise/internal/common"
	"github.com/tagwise/tagwise/internal/model"
)

// tagValidator decides whether an already-assigned tag is still supported
// by the current rule set.
type tagValidator func(txn model.Transaction) (bool, string)

// validatorFor is the per-tag validator lookup. The ambiguous tags get the
// guard's full checks (Investments runs the entire veto chain); every
// other tag gets the generic rule-evidence validator.
func (c *Classifier) validatorFor(tag string) tagValidator {
	if c.guard.Handles(tag) {
		return func(txn model.Transaction) (bool, string) {
			return c.guard.Validate(tag, txn)
		}
	}
	return func(txn model.Transaction) (bool, string) {
		return c.validateByRules(tag, txn)
	}
}

// validateByRules checks whether any keyword entry, system keyword rule,
// or the subcategory itself backs the existing tag. A tag with no
// supporting evidence is discarded so classification falls through.
func (c *Classifier) validateByRules(tag string, txn model.Transaction) (bool, string) {
	text := strings.ToLower(txn.Description)

	for _, entry := range c.registry.KeywordEntries() {
		if strings.EqualFold(entry.Tag, tag) && common.ContainsWord(text, entry.Keyword) {
			return true, "keyword evidence"
		}
	}
	for _, rule := range c.registry.SystemKeywordRules() {
		if strings.EqualFold(rule.ResultTag, tag) && c.registry.Matcher().Matches(txn, rule) {
			return true, "keyword rule evidence"
		}
	}
	if strings.EqualFold(strings.TrimSpace(txn.Subcategory), tag) {
		return true, "subcategory matches tag"
	}
	return false, "no supporting rule"
}
