package model

// MappingEntry is one persisted leaf of the category mapping tree:
// (category, subcategory) -> tag. Keys are stored normalized (lowercase,
// trimmed); Tag keeps its display casing.
type MappingEntry struct {
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory"`
	Tag         string     `json:"tag"`
	Source      RuleSource `json:"source"`
}

// KeywordEntry maps a description keyword to a tag. Produced by extracting
// system keyword rules into editable data.
type KeywordEntry struct {
	Keyword string     `json:"keyword"`
	Tag     string     `json:"tag"`
	Source  RuleSource `json:"source"`
}
