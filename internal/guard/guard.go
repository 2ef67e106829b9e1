// Package guard provides the fail-safe exclusion logic that vetoes
// false-positive candidate tags for the ambiguous Savings / Transfers /
// Investments triangle.
package guard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tagwise/tagwise/internal/model"
)

// DefaultMinInvestmentMinor is the minimum |amount| in minor units for an
// investment candidate: 10 major currency units.
const DefaultMinInvestmentMinor int64 = 10 * model.MinorUnitsPerMajor

// Config tunes the guard's thresholds.
type Config struct {
	// MinInvestmentMinor is the minimum absolute amount, in minor units,
	// below which an investment candidate is vetoed.
	MinInvestmentMinor int64
}

// Guard evaluates candidate tags against ordered veto chains. It is
// stateless after construction and safe for concurrent use.
type Guard struct {
	fee               *regexp.Regexp
	withdrawal        *regexp.Regexp
	tax               *regexp.Regexp
	savings           *regexp.Regexp
	savingsProvider   *regexp.Regexp
	transfer          *regexp.Regexp
	purchase          *regexp.Regexp
	strictPurchase    *regexp.Regexp
	providerAccount   *regexp.Regexp
	investmentSubcats map[string]bool
	cfg               Config
}

// New creates a guard with the given configuration. Zero-valued config
// fields fall back to defaults.
func New(cfg Config) *Guard {
	if cfg.MinInvestmentMinor <= 0 {
		cfg.MinInvestmentMinor = DefaultMinInvestmentMinor
	}

	subcats := make(map[string]bool, len(investmentSubcategories))
	for _, s := range investmentSubcategories {
		subcats[s] = true
	}

	return &Guard{
		cfg:               cfg,
		fee:               compileSet(feeKeywords),
		withdrawal:        compileSet(withdrawalKeywords),
		tax:               compileSet(taxKeywords),
		savings:           compileSet(savingsKeywords),
		savingsProvider:   compileSet(savingsProviders),
		transfer:          compileSet(transferKeywords),
		purchase:          compileSet(purchaseKeywords),
		strictPurchase:    compileSet(strictPurchaseKeywords),
		providerAccount:   compileAlternation(investmentProviderPatterns),
		investmentSubcats: subcats,
	}
}

// compileSet builds a case-insensitive word-boundary alternation from
// literal keywords.
func compileSet(keywords []string) *regexp.Regexp {
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

// compileAlternation joins already-escaped regex fragments.
func compileAlternation(patterns []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(` + strings.Join(patterns, "|") + `)`)
}

// searchText returns the lowercased text the keyword checks run against.
func searchText(txn model.Transaction) string {
	return strings.ToLower(strings.TrimSpace(txn.Description + " " + txn.Counterparty))
}

// vetoCheck is one link in the ordered veto chain. The first check that
// matches vetoes the candidate.
type vetoCheck struct {
	matches func(model.Transaction, string) bool
	name    string
}

// investmentVetoes returns the fixed-order veto chain for an investment
// candidate. Order matters: cheap structural checks run before keyword scans.
func (g *Guard) investmentVetoes() []vetoCheck {
	return []vetoCheck{
		{name: "incoming amount", matches: func(txn model.Transaction, _ string) bool {
			return txn.Amount >= 0
		}},
		{name: "below minimum amount", matches: func(txn model.Transaction, _ string) bool {
			abs := txn.Amount
			if abs < 0 {
				abs = -abs
			}
			return abs < g.cfg.MinInvestmentMinor
		}},
		{name: "fee keyword", matches: func(_ model.Transaction, text string) bool {
			return g.fee.MatchString(text)
		}},
		{name: "withdrawal keyword", matches: func(_ model.Transaction, text string) bool {
			return g.withdrawal.MatchString(text)
		}},
		{name: "tax keyword", matches: func(_ model.Transaction, text string) bool {
			return g.tax.MatchString(text)
		}},
		{name: "savings keyword", matches: func(_ model.Transaction, text string) bool {
			return g.savings.MatchString(text)
		}},
		{name: "savings provider", matches: func(_ model.Transaction, text string) bool {
			return g.savingsProvider.MatchString(text)
		}},
	}
}

// IsInvestment runs the full veto chain and, if nothing vetoes, the positive
// purchase check. The returned reason explains the decision either way.
func (g *Guard) IsInvestment(txn model.Transaction) (bool, string) {
	text := searchText(txn)

	for _, veto := range g.investmentVetoes() {
		if veto.matches(txn, text) {
			return false, fmt.Sprintf("investment vetoed: %s", veto.name)
		}
	}

	if g.purchase.MatchString(text) {
		return true, "purchase keyword match"
	}
	if g.providerAccount.MatchString(text) && g.strictPurchase.MatchString(text) {
		return true, "broker account with purchase keyword"
	}
	if g.investmentSubcats[strings.ToLower(strings.TrimSpace(txn.Subcategory))] {
		return true, "investment subcategory match"
	}

	return false, "no positive investment signal"
}

// IsSavings uses a union test: any savings keyword, subcategory, or
// provider token qualifies.
func (g *Guard) IsSavings(txn model.Transaction) (bool, string) {
	text := searchText(txn)

	if strings.EqualFold(strings.TrimSpace(txn.Subcategory), "savings") {
		return true, "savings subcategory"
	}
	if g.savingsProvider.MatchString(text) {
		return true, "savings provider match"
	}
	if g.savings.MatchString(text) {
		return true, "savings keyword match"
	}

	return false, "no savings signal"
}

// IsTransfer uses a union test: any transfer keyword or subcategory qualifies.
func (g *Guard) IsTransfer(txn model.Transaction) (bool, string) {
	text := searchText(txn)

	sub := strings.ToLower(strings.TrimSpace(txn.Subcategory))
	if sub == "transfers" || sub == "internal transfer" {
		return true, "transfer subcategory"
	}
	if g.transfer.MatchString(text) {
		return true, "transfer keyword match"
	}

	return false, "no transfer signal"
}

// MatchAmbiguous evaluates the ambiguous candidates in canonical precedence
// order: Savings first, then Transfers, then Investments (most restrictive,
// evaluated last).
func (g *Guard) MatchAmbiguous(txn model.Transaction) (string, string, bool) {
	if ok, reason := g.IsSavings(txn); ok {
		return model.TagSavings, reason, true
	}
	if ok, reason := g.IsTransfer(txn); ok {
		return model.TagTransfers, reason, true
	}
	if ok, reason := g.IsInvestment(txn); ok {
		return model.TagInvestments, reason, true
	}
	return "", "", false
}

// Validate re-checks an already-assigned ambiguous tag. Investments gets the
// full veto chain; Savings and Transfers their union tests. Unknown tags are
// not the guard's concern and validate as false.
func (g *Guard) Validate(tag string, txn model.Transaction) (bool, string) {
	switch tag {
	case model.TagSavings:
		return g.IsSavings(txn)
	case model.TagTransfers:
		return g.IsTransfer(txn)
	case model.TagInvestments:
		return g.IsInvestment(txn)
	}
	return false, "no validator for tag"
}

// Handles reports whether the guard owns validation for the given tag.
func (g *Guard) Handles(tag string) bool {
	switch tag {
	case model.TagSavings, model.TagTransfers, model.TagInvestments:
		return true
	}
	return false
}
