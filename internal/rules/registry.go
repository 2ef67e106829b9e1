// Package rules owns the merged classification rule set: hard-coded system
// defaults, user-defined category mappings, and learned rules.
package rules

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tagwise/tagwise/internal/common"
	"github.com/tagwise/tagwise/internal/model"
)

// Store is the persistence contract the registry writes through to.
// A nil store keeps the registry purely in-memory.
type Store interface {
	SaveMapping(ctx context.Context, entry model.MappingEntry) error
	DeleteMapping(ctx context.Context, category, subcategory string) error
	ListMappings(ctx context.Context) ([]model.MappingEntry, error)
	DeleteMappingsBySource(ctx context.Context, source model.RuleSource) error
	SaveLearnedRule(ctx context.Context, rule *model.LearnedRule) error
	ListLearnedRules(ctx context.Context) ([]model.LearnedRule, error)
	DeleteLearnedRules(ctx context.Context) error
}

type mappingLeaf struct {
	Tag    string
	Source model.RuleSource
}

// Registry holds the merged rule state behind an atomic read-modify-write
// API. All mutations take the write lock so concurrent callers never lose
// updates.
type Registry struct {
	store    Store
	matcher  *Matcher
	mappings map[string]map[string]mappingLeaf
	keywords map[string]model.KeywordEntry
	learned  map[string]model.LearnedRule
	system   []model.Rule
	catRules []model.Rule
	mu       sync.RWMutex
}

// NewRegistry creates a registry seeded with the system default rules.
func NewRegistry(store Store) *Registry {
	return &Registry{
		store:    store,
		matcher:  NewMatcher(),
		mappings: make(map[string]map[string]mappingLeaf),
		keywords: make(map[string]model.KeywordEntry),
		learned:  make(map[string]model.LearnedRule),
		system:   SystemRules(),
		catRules: categoryAssignments(),
	}
}

// Load populates the registry from the store. On failure the registry is
// left with system defaults only, so classification fails closed rather
// than crashing.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	mappings, err := r.store.ListMappings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load mappings: %w", err)
	}
	learned, err := r.store.ListLearnedRules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load learned rules: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range mappings {
		r.setLeafLocked(entry.Category, entry.Subcategory, entry.Tag, entry.Source)
	}
	for _, rule := range learned {
		r.learned[normKey(rule.Tag)] = rule
	}
	return nil
}

// Matcher returns the shared condition matcher.
func (r *Registry) Matcher() *Matcher {
	return r.matcher
}

// SpecialRules returns the tier-0 fixed-pattern system rules.
func (r *Registry) SpecialRules() []model.Rule {
	return r.filterSystem(0)
}

// CategoryRules returns the tier-4 category auto-assignment rules.
func (r *Registry) CategoryRules() []model.Rule {
	return r.catRules
}

func (r *Registry) filterSystem(tier int) []model.Rule {
	var out []model.Rule
	for _, rule := range r.system {
		if rule.Tier == tier {
			out = append(out, rule)
		}
	}
	return out
}

// AddMapping inserts or overwrites the (category, subcategory) -> tag leaf
// as a user-defined entry. Empty fields are rejected without mutation.
func (r *Registry) AddMapping(ctx context.Context, category, subcategory, tag string) error {
	category = strings.TrimSpace(category)
	subcategory = strings.TrimSpace(subcategory)
	tag = strings.TrimSpace(tag)
	if category == "" || subcategory == "" || tag == "" {
		return fmt.Errorf("%w: category, subcategory and tag must be non-empty", common.ErrInvalidMapping)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.setLeafLocked(category, subcategory, tag, model.SourceUser)
	if r.store != nil {
		entry := model.MappingEntry{
			Category:    normKey(category),
			Subcategory: normKey(subcategory),
			Tag:         tag,
			Source:      model.SourceUser,
		}
		if err := r.store.SaveMapping(ctx, entry); err != nil {
			return fmt.Errorf("failed to persist mapping: %w", err)
		}
	}
	return nil
}

// RemoveMapping deletes the leaf and prunes the category key once empty.
func (r *Registry) RemoveMapping(ctx context.Context, category, subcategory string) error {
	cat := normKey(category)
	sub := normKey(subcategory)

	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.mappings[cat]
	if !ok {
		return fmt.Errorf("%w: mapping %s/%s", common.ErrNotFound, cat, sub)
	}
	if _, ok := subs[sub]; !ok {
		return fmt.Errorf("%w: mapping %s/%s", common.ErrNotFound, cat, sub)
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(r.mappings, cat)
	}

	if r.store != nil {
		if err := r.store.DeleteMapping(ctx, cat, sub); err != nil {
			return fmt.Errorf("failed to delete mapping: %w", err)
		}
	}
	return nil
}

// LookupTag resolves a (category, subcategory) pair to its mapped tag.
func (r *Registry) LookupTag(category, subcategory string) (string, model.RuleSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs, ok := r.mappings[normKey(category)]
	if !ok {
		return "", "", false
	}
	leaf, ok := subs[normKey(subcategory)]
	if !ok {
		return "", "", false
	}
	return leaf.Tag, leaf.Source, true
}

// ExportMapping returns the full mapping tree as a JSON-serializable object:
// { category: { subcategory: tag } }.
func (r *Registry) ExportMapping() map[string]map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]map[string]string, len(r.mappings))
	for cat, subs := range r.mappings {
		out[cat] = make(map[string]string, len(subs))
		for sub, leaf := range subs {
			out[cat][sub] = leaf.Tag
		}
	}
	return out
}

// ImportMapping merges an exported mapping tree back into the registry.
// Imported entries are treated as user-defined and overwrite on key
// collision. When reset is true the existing user and learned entries are
// cleared first. A malformed payload is rejected before any mutation.
func (r *Registry) ImportMapping(ctx context.Context, payload any, reset bool) error {
	tree, err := coerceMappingTree(payload)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if reset {
		if err := r.resetLocked(ctx); err != nil {
			return err
		}
	}

	for cat, subs := range tree {
		for sub, tag := range subs {
			r.setLeafLocked(cat, sub, tag, model.SourceUser)
			if r.store != nil {
				entry := model.MappingEntry{
					Category:    normKey(cat),
					Subcategory: normKey(sub),
					Tag:         tag,
					Source:      model.SourceUser,
				}
				if err := r.store.SaveMapping(ctx, entry); err != nil {
					return fmt.Errorf("failed to persist imported mapping: %w", err)
				}
			}
		}
	}
	return nil
}

// coerceMappingTree validates an import payload in full before any merge.
func coerceMappingTree(payload any) (map[string]map[string]string, error) {
	switch v := payload.(type) {
	case map[string]map[string]string:
		for cat, subs := range v {
			if strings.TrimSpace(cat) == "" {
				return nil, fmt.Errorf("%w: empty category key", common.ErrInvalidPayload)
			}
			for sub, tag := range subs {
				if strings.TrimSpace(sub) == "" || strings.TrimSpace(tag) == "" {
					return nil, fmt.Errorf("%w: empty subcategory or tag under %q", common.ErrInvalidPayload, cat)
				}
			}
		}
		return v, nil
	case map[string]any:
		tree := make(map[string]map[string]string, len(v))
		for cat, raw := range v {
			if strings.TrimSpace(cat) == "" {
				return nil, fmt.Errorf("%w: empty category key", common.ErrInvalidPayload)
			}
			subsRaw, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: category %q is not an object", common.ErrInvalidPayload, cat)
			}
			subs := make(map[string]string, len(subsRaw))
			for sub, tagRaw := range subsRaw {
				tag, ok := tagRaw.(string)
				if !ok || strings.TrimSpace(sub) == "" || strings.TrimSpace(tag) == "" {
					return nil, fmt.Errorf("%w: invalid tag for %q/%q", common.ErrInvalidPayload, cat, sub)
				}
				subs[sub] = tag
			}
			tree[cat] = subs
		}
		return tree, nil
	default:
		return nil, fmt.Errorf("%w: mapping payload must be an object", common.ErrInvalidPayload)
	}
}

// ExtractAndMergeAllRules converts the hard-coded system rules into
// inspectable mapping and keyword entries, merging them under existing user
// data (user wins on conflicts) and persisting the result. It returns the
// number of entries added.
func (r *Registry) ExtractAndMergeAllRules(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, rule := range r.system {
		switch rule.Type {
		case model.RuleTypeCategoryMapping, model.RuleTypeCategoryKeywordMapping:
			if rule.ResultCategory == "" || rule.ResultSubcategory == "" || rule.ResultTag == "" {
				continue
			}
			cat, sub := normKey(rule.ResultCategory), normKey(rule.ResultSubcategory)
			if subs, ok := r.mappings[cat]; ok {
				if leaf, ok := subs[sub]; ok && leaf.Source == model.SourceUser {
					continue // user wins
				}
			}
			r.setLeafLocked(cat, sub, rule.ResultTag, model.SourceSystem)
			if r.store != nil {
				entry := model.MappingEntry{Category: cat, Subcategory: sub, Tag: rule.ResultTag, Source: model.SourceSystem}
				if err := r.store.SaveMapping(ctx, entry); err != nil {
					return added, fmt.Errorf("failed to persist extracted mapping: %w", err)
				}
			}
			added++
		case model.RuleTypeKeywordMapping:
			for _, cond := range rule.Conditions {
				if cond.Kind != model.ConditionKeyword || rule.ResultTag == "" {
					continue
				}
				kw := normKey(cond.Value)
				if existing, ok := r.keywords[kw]; ok && existing.Source == model.SourceUser {
					continue
				}
				r.keywords[kw] = model.KeywordEntry{Keyword: kw, Tag: rule.ResultTag, Source: model.SourceSystem}
				added++
			}
		case model.RuleTypeCategoryAssignment:
			// Category inference rules are regex-shaped and stay code-defined.
		}
	}
	return added, nil
}

// ResetToDefaults clears all user and learned entries, leaving only the
// system defaults.
func (r *Registry) ResetToDefaults(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetLocked(ctx)
}

func (r *Registry) resetLocked(ctx context.Context) error {
	for cat, subs := range r.mappings {
		for sub, leaf := range subs {
			if leaf.Source == model.SourceUser {
				delete(subs, sub)
			}
		}
		if len(subs) == 0 {
			delete(r.mappings, cat)
		}
	}
	for kw, entry := range r.keywords {
		if entry.Source == model.SourceUser {
			delete(r.keywords, kw)
		}
	}
	r.learned = make(map[string]model.LearnedRule)

	if r.store != nil {
		if err := r.store.DeleteMappingsBySource(ctx, model.SourceUser); err != nil {
			return fmt.Errorf("failed to clear user mappings: %w", err)
		}
		if err := r.store.DeleteLearnedRules(ctx); err != nil {
			return fmt.Errorf("failed to clear learned rules: %w", err)
		}
	}
	return nil
}

// SetLearnedRule installs the active learned rule for its tag, replacing
// any previous rule for the same tag.
func (r *Registry) SetLearnedRule(ctx context.Context, rule model.LearnedRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.learned[normKey(rule.Tag)] = rule
	if r.store != nil {
		if err := r.store.SaveLearnedRule(ctx, &rule); err != nil {
			return fmt.Errorf("failed to persist learned rule: %w", err)
		}
	}
	return nil
}

// LearnedRules returns the active learned rules in deterministic tag order.
func (r *Registry) LearnedRules() []model.LearnedRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.LearnedRule, 0, len(r.learned))
	for _, rule := range r.learned {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// RecordLearnedUse bumps the usage statistics of a learned rule. Usage
// stats never influence match results.
func (r *Registry) RecordLearnedUse(_ context.Context, tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := normKey(tag)
	rule, ok := r.learned[key]
	if !ok {
		return
	}
	rule.UseCount++
	rule.LastUsed = time.Now()
	r.learned[key] = rule
}

// KeywordEntries returns keyword -> tag entries, longest keyword first for
// deterministic, most-specific-wins evaluation.
func (r *Registry) KeywordEntries() []model.KeywordEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.KeywordEntry, 0, len(r.keywords))
	for _, entry := range r.keywords {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Keyword) != len(out[j].Keyword) {
			return len(out[i].Keyword) > len(out[j].Keyword)
		}
		return out[i].Keyword < out[j].Keyword
	})
	return out
}

// SystemKeywordRules returns the tier-5 system keyword rules that have not
// been extracted into the keyword table.
func (r *Registry) SystemKeywordRules() []model.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Rule
	for _, rule := range r.system {
		if rule.Tier != 5 || rule.Type != model.RuleTypeKeywordMapping {
			continue
		}
		extracted := false
		for _, cond := range rule.Conditions {
			if cond.Kind == model.ConditionKeyword {
				if _, ok := r.keywords[normKey(cond.Value)]; ok {
					extracted = true
				}
			}
		}
		if !extracted {
			out = append(out, rule)
		}
	}
	return out
}

func (r *Registry) setLeafLocked(category, subcategory, tag string, source model.RuleSource) {
	cat := normKey(category)
	sub := normKey(subcategory)
	if r.mappings[cat] == nil {
		r.mappings[cat] = make(map[string]mappingLeaf)
	}
	r.mappings[cat][sub] = mappingLeaf{Tag: strings.TrimSpace(tag), Source: source}
}

func normKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
