package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tagwise/tagwise/internal/common"
	"github.com/tagwise/tagwise/internal/model"
)

// TransactionStore persists tag changes applied during bulk
// reclassification. A nil store keeps changes in-memory only.
type TransactionStore interface {
	UpdateTransactionTag(ctx context.Context, txn *model.Transaction) error
}

// FixReport aggregates the outcome of one bulk reclassification run.
type FixReport struct {
	Transitions map[string]int
	Processed   int
	Fixed       int
	Skipped     int
}

// TransitionKey formats an oldTag -> newTag pair for the report tally.
func TransitionKey(oldTag, newTag string) string {
	if oldTag == "" {
		oldTag = "(untagged)"
	}
	return fmt.Sprintf("%s -> %s", oldTag, newTag)
}

// Reclassifier replays the classifier over a transaction collection to
// converge historical tags onto the current rule set.
type Reclassifier struct {
	classifier *Classifier
	store      TransactionStore
}

// NewReclassifier creates a bulk reclassifier. store may be nil.
func NewReclassifier(classifier *Classifier, store TransactionStore) *Reclassifier {
	return &Reclassifier{
		classifier: classifier,
		store:      store,
	}
}

// FixAllExistingTagAssignments re-runs the classifier over every
// transaction. Pinned transactions (non-empty override history) are never
// touched. Every applied change is appended to the transaction's fix
// history and logged, so the run is fully auditable. progress may be nil.
func (r *Reclassifier) FixAllExistingTagAssignments(ctx context.Context, txns []*model.Transaction, progress func(done, total int)) (*FixReport, error) {
	report := &FixReport{Transitions: make(map[string]int)}
	total := len(txns)

	for i, txn := range txns {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		report.Processed++
		if txn.IsPinned() {
			report.Skipped++
			if progress != nil {
				progress(i+1, total)
			}
			continue
		}

		res := r.classifier.Classify(ctx, *txn)
		if res.Tag != txn.Tag {
			oldTag := txn.Tag
			txn.Tag = res.Tag
			txn.Category = res.Category
			txn.Subcategory = res.Subcategory
			txn.Confidence = res.Confidence
			txn.Reason = res.Reason
			txn.FixHistory = append(txn.FixHistory, model.FixEntry{
				Timestamp: time.Now(),
				OldTag:    oldTag,
				NewTag:    res.Tag,
				Reason:    res.Reason,
			})

			report.Fixed++
			report.Transitions[TransitionKey(oldTag, res.Tag)]++

			common.LogInfo("reclassified transaction", common.Fields{
				"id":      txn.ID,
				"old_tag": oldTag,
				"new_tag": res.Tag,
				"reason":  res.Reason,
			})

			if r.store != nil {
				if err := r.store.UpdateTransactionTag(ctx, txn); err != nil {
					return report, fmt.Errorf("failed to persist fix for %s: %w", txn.ID, err)
				}
			}
		}

		if progress != nil {
			progress(i+1, total)
		}
	}

	return report, nil
}
