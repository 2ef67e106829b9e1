package guard

// Keyword sets for the ambiguous-tag checks. Each set is compiled into a
// single case-insensitive word-boundary alternation at construction time.

// feeKeywords veto an investment candidate that is really a broker cost.
var feeKeywords = []string{
	"fee",
	"fees",
	"commission",
	"charge",
	"charges",
	"custody",
	"service cost",
	"transaction cost",
	"kosten",
}

// withdrawalKeywords veto candidates that move money out of a position.
var withdrawalKeywords = []string{
	"withdrawal",
	"withdraw",
	"sale",
	"sell",
	"sold",
	"redemption",
	"verkoop",
}

// taxKeywords veto tax-related broker bookings.
var taxKeywords = []string{
	"tax",
	"taxes",
	"withholding",
	"dividendbelasting",
	"belasting",
}

// savingsKeywords qualify a transaction as a savings movement.
var savingsKeywords = []string{
	"savings",
	"saving",
	"spaarrekening",
	"save the change",
	"rainy day",
}

// savingsProviders are counterparty tokens of known savings providers.
var savingsProviders = []string{
	"bunq",
	"raisin",
	"marcus",
	"openbank",
}

// transferKeywords qualify a transaction as an account-to-account transfer.
var transferKeywords = []string{
	"transfer",
	"internal transfer",
	"own account",
	"eigen rekening",
	"wire",
	"xfer",
}

// purchaseKeywords are exact signals that an outgoing amount bought securities.
var purchaseKeywords = []string{
	"stock purchase",
	"etf purchase",
	"fund purchase",
	"buy order",
	"purchase of securities",
}

// strictPurchaseKeywords are the narrower words accepted only together with a
// provider account pattern.
var strictPurchaseKeywords = []string{
	"purchase",
	"buy",
	"aankoop",
}

// investmentProviderPatterns match broker account references in descriptions.
var investmentProviderPatterns = []string{
	`\bdegiro\b`,
	`\bflatex\b`,
	`\betoro\b`,
	`\binteractive\s*brokers\b`,
	`\btrading\s*212\b`,
}

// investmentSubcategories is the whitelist of subcategories that directly
// qualify as a securities purchase.
var investmentSubcategories = []string{
	"stock purchase",
	"etf purchase",
	"fund purchase",
}
