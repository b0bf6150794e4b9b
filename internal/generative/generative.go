// Package generative implements the optional generative reviewer (L3): a
// second-pass span proposer that re-reads the original text, told which
// substrings the pattern and neural layers already found, and proposes
// additional spans it believes are PII. It asks the model for verbatim
// substrings, an entity type and start/end offsets, but not for a
// confidence; the engine assigns every accepted span a fixed confidence
// (0.7) instead of trusting a model-reported score.
package generative

import (
	"context"
)

// Candidate is a proposed span naming a substring the reviewer believes is
// PII not yet covered by an earlier layer. Start and End are byte offsets
// into the text the reviewer was given; Text must equal text[Start:End]
// verbatim or the engine discards the candidate.
type Candidate struct {
	Text       string `json:"text"`
	EntityType string `json:"entity_type"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

// Reviewer is the L3 generative-review interface. Implementations must be
// safe for concurrent use and must fail open: any error is equivalent to an
// empty result, never a failed redaction.
type Reviewer interface {
	// Review proposes additional spans over text, given the substrings
	// already found by earlier layers (so the reviewer does not waste its
	// attention re-flagging them). A non-nil error means the caller should
	// proceed as if Review had returned no candidates.
	Review(ctx context.Context, text string, alreadyFound []string) ([]Candidate, error)

	// IsAvailable reports whether the host environment advertises a
	// reachable generative backend. A reviewer that is not available is
	// never invoked by the engine.
	IsAvailable() bool
}

// Disabled is a Reviewer that proposes nothing and is never available. It
// is used when UseGenerativeReviewer is false in configuration.
type Disabled struct{}

// Review always returns an empty result.
func (Disabled) Review(context.Context, string, []string) ([]Candidate, error) {
	return nil, nil
}

// IsAvailable always returns false.
func (Disabled) IsAvailable() bool { return false }
