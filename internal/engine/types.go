// Package engine orchestrates the recognition layers — pattern, neural,
// generative — into the three public operations the rest of this module is
// built around: redact, unredact, and analyze. It is the one package that
// knows the full pipeline ordering; every other package sees only its own
// slice of the problem.
package engine

// Entity describes one accepted span in the coordinates of the original
// input text, paired with the placeholder that replaced it. OriginalStart
// and OriginalEnd are byte offsets into the text passed to Redact, which the
// document projector needs to map spans back into structural units (runs,
// cells, page rectangles).
type Entity struct {
	EntityType    string `json:"entity_type"`
	OriginalStart int    `json:"original_start"`
	OriginalEnd   int    `json:"original_end"`
	Placeholder   string `json:"placeholder"`
}

// RedactResult is the return value of Redact.
type RedactResult struct {
	RedactedText  string   `json:"redacted_text"`
	SessionID     string   `json:"session_id"`
	EntitiesFound int      `json:"entities_found"`
	Entities      []Entity `json:"entities"`
}

// UnredactResult is the return value of Unredact.
type UnredactResult struct {
	OriginalText     string `json:"original_text"`
	EntitiesRestored int    `json:"entities_restored"`
}

// AnalyzeEntity is one detection reported by Analyze. Unlike Entity, it
// never lands in a session and carries a masked preview instead of a
// placeholder.
type AnalyzeEntity struct {
	EntityType string  `json:"type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// AnalyzeResult is the return value of Analyze.
type AnalyzeResult struct {
	Entities []AnalyzeEntity `json:"entities"`
}
