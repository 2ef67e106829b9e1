package rules

import (
	"regexp"
	"strings"
	"sync"

	"github.com/tagwise/tagwise/internal/common"
	"github.com/tagwise/tagwise/internal/model"
)

// Matcher evaluates declarative rule conditions against transactions.
// Regex conditions are compiled once and cached; invalid patterns never
// match rather than failing classification.
type Matcher struct {
	compiled map[string]*regexp.Regexp
	mu       sync.RWMutex
}

// NewMatcher creates a condition matcher with an empty regex cache.
func NewMatcher() *Matcher {
	return &Matcher{compiled: make(map[string]*regexp.Regexp)}
}

// Matches reports whether every condition of the rule holds for the
// transaction. A rule with no conditions matches nothing.
func (m *Matcher) Matches(txn model.Transaction, rule model.Rule) bool {
	if len(rule.Conditions) == 0 {
		return false
	}
	for _, cond := range rule.Conditions {
		if !m.matchCondition(txn, cond) {
			return false
		}
	}
	return true
}

func (m *Matcher) matchCondition(txn model.Transaction, cond model.Condition) bool {
	matched := m.evaluate(txn, cond)
	if cond.Negate {
		return !matched
	}
	return matched
}

func (m *Matcher) evaluate(txn model.Transaction, cond model.Condition) bool {
	switch cond.Kind {
	case model.ConditionKeyword:
		return common.ContainsWord(strings.ToLower(txn.Description), strings.ToLower(cond.Value))
	case model.ConditionRegex:
		re := m.regex(cond.Value)
		if re == nil {
			return false
		}
		return re.MatchString(txn.Description)
	case model.ConditionSubcategory:
		return strings.EqualFold(strings.TrimSpace(txn.Subcategory), strings.TrimSpace(cond.Value))
	case model.ConditionAmountThreshold:
		if cond.Amount >= 0 {
			return txn.Amount >= cond.Amount
		}
		return txn.Amount <= cond.Amount
	case model.ConditionExclusionSet:
		text := strings.ToLower(txn.Description)
		for _, kw := range cond.Values {
			if common.ContainsWord(text, strings.ToLower(kw)) {
				return false
			}
		}
		return true
	}
	return false
}

func (m *Matcher) regex(pattern string) *regexp.Regexp {
	m.mu.RLock()
	re, ok := m.compiled[pattern]
	m.mu.RUnlock()
	if ok {
		return re
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		re = nil
	}

	m.mu.Lock()
	m.compiled[pattern] = re
	m.mu.Unlock()
	return re
}

