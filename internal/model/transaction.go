// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// MinorUnitsPerMajor is the number of minor currency units in one major unit.
const MinorUnitsPerMajor = 100

// Transaction represents a single bank transaction from any import source.
// Amount is signed and expressed in minor currency units (cents): negative
// for outgoing money, positive for incoming.
type Transaction struct {
	Date            time.Time
	ID              string
	Description     string // Raw transaction description
	Counterparty    string // Cleaned counterparty name
	Category        string
	Subcategory     string
	Tag             string // Assigned tag; empty until classified
	Reason          string // Human-readable explanation for the current tag
	OverrideHistory []OverrideEntry
	FixHistory      []FixEntry
	Amount          int64
	Confidence      float64
}

// OverrideEntry records a manual tag edit by the user. A transaction with a
// non-empty override history is pinned: bulk reclassification never touches it.
type OverrideEntry struct {
	Timestamp time.Time `json:"timestamp"`
	OldTag    string    `json:"old_tag"`
	NewTag    string    `json:"new_tag"`
}

// FixEntry records a tag change applied by bulk reclassification.
type FixEntry struct {
	Timestamp time.Time `json:"timestamp"`
	OldTag    string    `json:"old_tag"`
	NewTag    string    `json:"new_tag"`
	Reason    string    `json:"reason"`
}

// IsPinned reports whether the user has manually set the tag, making it
// immutable to bulk reclassification.
func (t *Transaction) IsPinned() bool {
	return len(t.OverrideHistory) > 0
}

// MajorAmount returns the absolute amount in major currency units.
func (t *Transaction) MajorAmount() float64 {
	amount := t.Amount
	if amount < 0 {
		amount = -amount
	}
	return float64(amount) / MinorUnitsPerMajor
}

// GenerateHash creates a stable hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%d:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Description,
		t.Counterparty)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
