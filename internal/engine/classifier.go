// Package engine implements the tiered transaction classifier and bulk
// reclassification over historical data.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tagwise/tagwise/internal/common"
	"github.com/tagwise/tagwise/internal/guard"
	"github.com/tagwise/tagwise/internal/learn"
	"github.com/tagwise/tagwise/internal/model"
	"github.com/tagwise/tagwise/internal/rules"
)

// Confidence levels per tier. The mapping tier is trusted most; the
// fail-closed default least.
const (
	mappingConfidence   = 0.9
	existingConfidence  = 0.8
	ambiguousConfidence = 0.7
	keywordConfidence   = 0.65
	defaultConfidence   = 0.3

	// missingCategoryConfidence applies when no category is known at all.
	missingCategoryConfidence = 0.6
)

// LearnedApplier evaluates learned rules for a transaction.
type LearnedApplier interface {
	ApplyLearnedRules(ctx context.Context, txn model.Transaction) []learn.Match
	RecordUse(ctx context.Context, rule model.LearnedRule)
}

// Classifier runs one transaction through the ordered tiers and returns
// the first definitive result. It never errors on well-typed input:
// missing fields flow through as empty strings to the lower tiers.
type Classifier struct {
	registry *rules.Registry
	guard    *guard.Guard
	learner  LearnedApplier
}

// NewClassifier creates a classifier. learner may be nil, in which case
// tier 1 is skipped.
func NewClassifier(registry *rules.Registry, g *guard.Guard, learner LearnedApplier) *Classifier {
	return &Classifier{
		registry: registry,
		guard:    g,
		learner:  learner,
	}
}

// Classify evaluates the transaction through tiers 0-5. The result is a
// pure function of the transaction attributes and the current registry
// snapshot; usage counters never feed back into matching.
func (c *Classifier) Classify(ctx context.Context, txn model.Transaction) model.Classification {
	category := strings.TrimSpace(txn.Category)
	subcategory := strings.TrimSpace(txn.Subcategory)
	catConf := 1.0
	if category == "" {
		catConf = missingCategoryConfidence
	}

	// Tier 0: fixed-pattern overrides bypass everything else.
	for _, rule := range c.registry.SpecialRules() {
		if !c.registry.Matcher().Matches(txn, rule) {
			continue
		}
		cat, sub, cc := category, subcategory, catConf
		if cat == "" && rule.ResultCategory != "" {
			cat, cc = rule.ResultCategory, rule.Confidence
			if rule.ResultSubcategory != "" {
				sub = rule.ResultSubcategory
			}
		}
		return result(rule.ResultTag, rule.Confidence, cc, 0, "fixed pattern rule: "+rule.Name, cat, sub)
	}

	// Tier 1: learned rules, re-validated by the guard so a learned rule
	// cannot reintroduce a vetoed tag.
	if c.learner != nil {
		for _, match := range c.learner.ApplyLearnedRules(ctx, txn) {
			if c.guard.Handles(match.Rule.Tag) {
				if ok, _ := c.guard.Validate(match.Rule.Tag, txn); !ok {
					continue
				}
			}
			c.learner.RecordUse(ctx, match.Rule)
			return result(match.Rule.Tag, match.Score, catConf, 1, match.Reason, category, subcategory)
		}
	}

	// Tier 2: category/subcategory mapping lookup.
	if tag, source, ok := c.registry.LookupTag(category, subcategory); ok {
		reason := fmt.Sprintf("%s mapping %s/%s", source, strings.ToLower(category), strings.ToLower(subcategory))
		return result(tag, mappingConfidence, catConf, 2, reason, category, subcategory)
	}

	// Tier 3: validate an already-assigned, non-default tag.
	if existing := strings.TrimSpace(txn.Tag); existing != "" && existing != model.TagOther {
		if ok, why := c.validatorFor(existing)(txn); ok {
			return result(existing, existingConfidence, catConf, 3, "existing tag validated: "+why, category, subcategory)
		}
		// Invalid tags are discarded and classification falls through.
	}

	// Tier 4: infer a missing category from description keywords.
	if category == "" {
		for _, rule := range c.registry.CategoryRules() {
			if !c.registry.Matcher().Matches(txn, rule) {
				continue
			}
			category = rule.ResultCategory
			if rule.ResultSubcategory != "" {
				subcategory = rule.ResultSubcategory
			}
			catConf = rule.Confidence
			break
		}
	}

	// Tier 5: keyword/pattern assignment with the canonical
	// Savings > Transfers > Investments precedence, then the keyword
	// table, then the fail-closed default.
	probe := txn
	probe.Category = category
	probe.Subcategory = subcategory
	if tag, why, ok := c.guard.MatchAmbiguous(probe); ok {
		return result(tag, ambiguousConfidence, catConf, 5, why, category, subcategory)
	}

	text := strings.ToLower(txn.Description)
	for _, entry := range c.registry.KeywordEntries() {
		if common.ContainsWord(text, entry.Keyword) {
			return result(entry.Tag, keywordConfidence, catConf, 5, fmt.Sprintf("keyword %q", entry.Keyword), category, subcategory)
		}
	}
	for _, rule := range c.registry.SystemKeywordRules() {
		if c.registry.Matcher().Matches(txn, rule) {
			return result(rule.ResultTag, rule.Confidence, catConf, 5, "keyword rule: "+rule.Name, category, subcategory)
		}
	}

	return result(model.TagOther, defaultConfidence, catConf, 5, "no rule matched", category, subcategory)
}

// result builds a classification; the final confidence is the minimum of
// the tag and category assignment confidences.
func result(tag string, tagConf, catConf float64, tier int, reason, category, subcategory string) model.Classification {
	conf := tagConf
	if catConf < conf {
		conf = catConf
	}
	return model.Classification{
		ClassifiedAt: time.Now(),
		Tag:          tag,
		Category:     category,
		Subcategory:  subcategory,
		Reason:       reason,
		Tier:         tier,
		Confidence:   conf,
	}
}
