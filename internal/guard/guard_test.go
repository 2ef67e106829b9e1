package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tagwise/tagwise/internal/model"
)

func TestIsInvestment_VetoChain(t *testing.T) {
	g := New(Config{})

	tests := []struct {
		name       string
		txn        model.Transaction
		wantReason string
		want       bool
	}{
		{
			name: "incoming amount is vetoed",
			txn: model.Transaction{
				Description: "Stock purchase AAPL via Degiro",
				Amount:      15000,
			},
			want:       false,
			wantReason: "investment vetoed: incoming amount",
		},
		{
			name: "below minimum amount is vetoed",
			txn: model.Transaction{
				Description: "Stock purchase AAPL via Degiro",
				Amount:      -500,
			},
			want:       false,
			wantReason: "investment vetoed: below minimum amount",
		},
		{
			name: "broker fee is vetoed",
			txn: model.Transaction{
				Description: "Monthly fee from Degiro",
				Amount:      -1500,
			},
			want:       false,
			wantReason: "investment vetoed: fee keyword",
		},
		{
			name: "sale proceeds keyword is vetoed",
			txn: model.Transaction{
				Description: "Sale of ETF position Degiro",
				Amount:      -2000,
			},
			want:       false,
			wantReason: "investment vetoed: withdrawal keyword",
		},
		{
			name: "dividend tax is vetoed",
			txn: model.Transaction{
				Description: "Dividendbelasting Degiro",
				Amount:      -1200,
			},
			want:       false,
			wantReason: "investment vetoed: tax keyword",
		},
		{
			name: "savings provider is vetoed",
			txn: model.Transaction{
				Description:  "Deposit to account",
				Counterparty: "bunq",
				Amount:       -5000,
			},
			want:       false,
			wantReason: "investment vetoed: savings provider",
		},
		{
			name: "purchase keyword passes the chain",
			txn: model.Transaction{
				Description: "Stock purchase AAPL via Degiro",
				Amount:      -15000,
			},
			want:       true,
			wantReason: "purchase keyword match",
		},
		{
			name: "broker account with strict purchase keyword",
			txn: model.Transaction{
				Description: "Aankoop VWRL flatex account",
				Amount:      -25000,
			},
			want:       true,
			wantReason: "broker account with purchase keyword",
		},
		{
			name: "investment subcategory",
			txn: model.Transaction{
				Description: "Order 123456",
				Subcategory: "ETF purchase",
				Amount:      -10000,
			},
			want:       true,
			wantReason: "investment subcategory match",
		},
		{
			name: "no positive signal",
			txn: model.Transaction{
				Description: "Payment to hardware store",
				Amount:      -15000,
			},
			want:       false,
			wantReason: "no positive investment signal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := g.IsInvestment(tt.txn)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestIsInvestment_ConfigurableMinimum(t *testing.T) {
	g := New(Config{MinInvestmentMinor: 5000})

	txn := model.Transaction{
		Description: "Stock purchase AAPL via Degiro",
		Amount:      -4999,
	}
	ok, reason := g.IsInvestment(txn)
	assert.False(t, ok)
	assert.Equal(t, "investment vetoed: below minimum amount", reason)

	txn.Amount = -5000
	ok, _ = g.IsInvestment(txn)
	assert.True(t, ok)
}

func TestIsSavings(t *testing.T) {
	g := New(Config{})

	tests := []struct {
		name string
		txn  model.Transaction
		want bool
	}{
		{
			name: "savings subcategory",
			txn:  model.Transaction{Description: "Monthly top-up", Subcategory: "Savings", Amount: -1000},
			want: true,
		},
		{
			name: "savings provider in counterparty",
			txn:  model.Transaction{Description: "Top-up", Counterparty: "bunq", Amount: -1000},
			want: true,
		},
		{
			name: "savings keyword in description",
			txn:  model.Transaction{Description: "To spaarrekening", Amount: -1000},
			want: true,
		},
		{
			name: "no savings signal",
			txn:  model.Transaction{Description: "Grocery run", Amount: -1000},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := g.IsSavings(tt.txn)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsTransfer(t *testing.T) {
	g := New(Config{})

	tests := []struct {
		name string
		txn  model.Transaction
		want bool
	}{
		{
			name: "transfer subcategory",
			txn:  model.Transaction{Description: "Monthly move", Subcategory: "Transfers", Amount: -1000},
			want: true,
		},
		{
			name: "transfer keyword",
			txn:  model.Transaction{Description: "Transfer to own account", Amount: -1000},
			want: true,
		},
		{
			name: "no transfer signal",
			txn:  model.Transaction{Description: "Lunch", Amount: -1000},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := g.IsTransfer(tt.txn)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchAmbiguous_Precedence(t *testing.T) {
	g := New(Config{})

	// Qualifies as both savings (provider) and transfer (keyword):
	// savings wins.
	txn := model.Transaction{
		Description:  "Transfer to savings",
		Counterparty: "bunq",
		Amount:       -2000,
	}
	tag, _, ok := g.MatchAmbiguous(txn)
	assert.True(t, ok)
	assert.Equal(t, model.TagSavings, tag)

	// Transfer only: transfers before investments.
	txn = model.Transaction{
		Description: "Wire to own account",
		Amount:      -200000,
	}
	tag, _, ok = g.MatchAmbiguous(txn)
	assert.True(t, ok)
	assert.Equal(t, model.TagTransfers, tag)

	// Investment only.
	txn = model.Transaction{
		Description: "Buy order IWDA via Degiro",
		Amount:      -50000,
	}
	tag, _, ok = g.MatchAmbiguous(txn)
	assert.True(t, ok)
	assert.Equal(t, model.TagInvestments, tag)

	// Nothing matches.
	txn = model.Transaction{Description: "Bakery", Amount: -450}
	_, _, ok = g.MatchAmbiguous(txn)
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	g := New(Config{})

	ok, _ := g.Validate(model.TagInvestments, model.Transaction{
		Description: "Monthly fee from Degiro",
		Amount:      -1500,
	})
	assert.False(t, ok, "fee should not validate as investment")

	ok, _ = g.Validate(model.TagSavings, model.Transaction{
		Description: "Deposit",
		Subcategory: "savings",
		Amount:      -1000,
	})
	assert.True(t, ok)

	ok, _ = g.Validate("Groceries", model.Transaction{Description: "supermarket"})
	assert.False(t, ok, "guard does not own non-ambiguous tags")
}

func TestHandles(t *testing.T) {
	g := New(Config{})

	assert.True(t, g.Handles(model.TagSavings))
	assert.True(t, g.Handles(model.TagTransfers))
	assert.True(t, g.Handles(model.TagInvestments))
	assert.False(t, g.Handles(model.TagOther))
	assert.False(t, g.Handles("Groceries"))
}
