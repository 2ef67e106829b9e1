package learn

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tagwise/tagwise/internal/common"
	"github.com/tagwise/tagwise/internal/model"
	"github.com/tagwise/tagwise/internal/rules"
)

// Learned rules need at least two corroborating assignments, conditions
// retained at half the group or more, and an evidence score above half to
// fire. See DESIGN.md for the retention threshold decision.
const (
	minGroupSize       = 2
	retentionThreshold = 0.5
	fireThreshold      = 0.5
)

// AssignmentStore persists manual assignments. A nil store keeps the
// learner purely in-memory.
type AssignmentStore interface {
	SaveManualAssignment(ctx context.Context, assignment *model.ManualAssignment) error
	ListManualAssignments(ctx context.Context) ([]model.ManualAssignment, error)
	IncrementLearnedRuleUse(ctx context.Context, id string) error
}

// Match is one learned rule that fired for a transaction.
type Match struct {
	Rule   model.LearnedRule
	Reason string
	Score  float64
}

// Learner records manual corrections and synthesizes learned rules from
// them. The resulting rules live in the rule registry.
type Learner struct {
	registry    *rules.Registry
	store       AssignmentStore
	extractors  []Extractor
	assignments []model.ManualAssignment
	mu          sync.Mutex
}

// NewLearner creates a learner with the default extraction pipeline.
func NewLearner(registry *rules.Registry, store AssignmentStore) *Learner {
	return &Learner{
		registry:   registry,
		store:      store,
		extractors: DefaultExtractors(),
	}
}

// LoadAssignments restores previously recorded assignments from the store.
func (l *Learner) LoadAssignments(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	assignments, err := l.store.ListManualAssignments(ctx)
	if err != nil {
		return fmt.Errorf("failed to load manual assignments: %w", err)
	}

	l.mu.Lock()
	l.assignments = assignments
	l.mu.Unlock()
	return nil
}

// LearnFromAssignment records one user correction as an immutable
// ManualAssignment with the patterns extracted from its description.
func (l *Learner) LearnFromAssignment(ctx context.Context, txn model.Transaction, tag string) (*model.ManualAssignment, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, fmt.Errorf("%w: tag must be non-empty", common.ErrInvalidMapping)
	}

	assignment := model.ManualAssignment{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now(),
		Tag:          tag,
		Description:  txn.Description,
		Category:     txn.Category,
		Subcategory:  txn.Subcategory,
		Counterparty: txn.Counterparty,
		Amount:       txn.Amount,
		Patterns:     l.extract(txn.Description),
	}

	l.mu.Lock()
	l.assignments = append(l.assignments, assignment)
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.SaveManualAssignment(ctx, &assignment); err != nil {
			return nil, fmt.Errorf("failed to persist assignment: %w", err)
		}
	}
	return &assignment, nil
}

// extract runs every strategy and dedupes patterns by (type, value) so a
// repeated token counts once per assignment.
func (l *Learner) extract(description string) []model.Pattern {
	seen := make(map[string]bool)
	var patterns []model.Pattern
	for _, ex := range l.extractors {
		for _, p := range ex.Extract(description) {
			key := string(p.Type) + "\x00" + p.Value
			if seen[key] {
				continue
			}
			seen[key] = true
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// AnalyzeAndCreateRules groups assignments by tag and synthesizes one
// learned rule per tag with at least two assignments, replacing any prior
// rule for that tag.
func (l *Learner) AnalyzeAndCreateRules(ctx context.Context) ([]model.LearnedRule, error) {
	l.mu.Lock()
	groups := make(map[string][]model.ManualAssignment)
	for _, a := range l.assignments {
		groups[a.Tag] = append(groups[a.Tag], a)
	}
	l.mu.Unlock()

	tags := make([]string, 0, len(groups))
	for tag := range groups {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	var created []model.LearnedRule
	for _, tag := range tags {
		group := groups[tag]
		if len(group) < minGroupSize {
			continue
		}

		rule := synthesize(tag, group)
		if len(rule.Conditions) == 0 {
			continue
		}
		if err := l.registry.SetLearnedRule(ctx, rule); err != nil {
			return created, err
		}
		created = append(created, rule)
	}
	return created, nil
}

// synthesize counts pattern frequency across a tag group and retains the
// patterns present in at least half of its assignments.
func synthesize(tag string, group []model.ManualAssignment) model.LearnedRule {
	type stat struct {
		pattern model.Pattern
		count   int
	}
	counts := make(map[string]*stat)
	for _, a := range group {
		for _, p := range a.Patterns {
			key := string(p.Type) + "\x00" + p.Value
			if s, ok := counts[key]; ok {
				s.count++
			} else {
				counts[key] = &stat{pattern: p, count: 1}
			}
		}
	}

	n := len(group)
	var conditions []model.LearnedCondition
	var confSum float64
	for _, s := range counts {
		freq := float64(s.count) / float64(n)
		if freq < retentionThreshold {
			continue
		}
		conditions = append(conditions, model.LearnedCondition{
			Type:       s.pattern.Type,
			Pattern:    s.pattern.Value,
			Confidence: s.pattern.Confidence,
			Frequency:  freq,
		})
		confSum += s.pattern.Confidence * freq
	}

	sort.Slice(conditions, func(i, j int) bool {
		if conditions[i].Type != conditions[j].Type {
			return conditions[i].Type < conditions[j].Type
		}
		return conditions[i].Pattern < conditions[j].Pattern
	})

	confidence := 0.0
	if len(conditions) > 0 {
		confidence = confSum / float64(len(conditions))
		if confidence > specialConfidence {
			confidence = specialConfidence
		}
	}

	return model.LearnedRule{
		ID:               uuid.NewString(),
		Tag:              tag,
		CreatedAt:        time.Now(),
		Conditions:       conditions,
		Confidence:       confidence,
		AssignmentsCount: n,
	}
}

// ApplyLearnedRules evaluates every active learned rule against the
// transaction and returns the rules that fired, best score first with ties
// broken by tag for determinism. Usage statistics are not touched here;
// callers record use once a match is actually trusted.
func (l *Learner) ApplyLearnedRules(_ context.Context, txn model.Transaction) []Match {
	text := strings.ToLower(txn.Description)

	var matches []Match
	for _, rule := range l.registry.LearnedRules() {
		score, matched := scoreRule(rule, text)
		if matched == 0 || score <= fireThreshold {
			continue
		}
		matches = append(matches, Match{
			Rule:   rule,
			Score:  score,
			Reason: fmt.Sprintf("learned rule for %s (%d/%d conditions, score %.2f)", rule.Tag, matched, len(rule.Conditions), score),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Rule.Tag < matches[j].Rule.Tag
	})
	return matches
}

// scoreRule returns the frequency-weighted mean confidence of the matched
// conditions. An unmatched rule scores zero.
func scoreRule(rule model.LearnedRule, text string) (float64, int) {
	var confSum, freqSum float64
	matched := 0
	for _, cond := range rule.Conditions {
		if !common.ContainsWord(text, cond.Pattern) {
			continue
		}
		matched++
		confSum += cond.Confidence * cond.Frequency
		freqSum += cond.Frequency
	}
	if matched == 0 || freqSum == 0 {
		return 0, 0
	}
	return confSum / freqSum, matched
}

// RecordUse bumps usage statistics for a trusted match.
func (l *Learner) RecordUse(ctx context.Context, rule model.LearnedRule) {
	l.registry.RecordLearnedUse(ctx, rule.Tag)
	if l.store != nil {
		if err := l.store.IncrementLearnedRuleUse(ctx, rule.ID); err != nil {
			common.LogDebug("failed to persist learned rule use", common.Fields{"rule": rule.ID, "error": err})
		}
	}
}

// AssignmentCount returns the number of recorded manual assignments.
func (l *Learner) AssignmentCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.assignments)
}
