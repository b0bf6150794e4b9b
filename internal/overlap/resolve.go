package overlap

import (
	"sort"

	"pii-redaction-engine/internal/recognizers"
)

// Resolve takes the union of candidate spans from every recognition layer
// and returns a non-overlapping set, sorted by position in the original
// text. Candidates are considered in descending order of (score, length):
// higher-scoring spans win; among equal scores, longer spans win (they
// subsume more of the ambiguous text); spans that are byte-for-byte
// coincident but of different types break the tie on score then
// alphabetical entity-type order. A candidate that overlaps any
// already-accepted span is discarded — overlap resolution is greedy, not
// exhaustive search for a global optimum.
//
// Format-invalid spans (per Validate) are dropped before the greedy pass so
// they never suppress a competing, valid candidate over the same text.
func Resolve(candidates []recognizers.Span) []recognizers.Span {
	valid := make([]recognizers.Span, 0, len(candidates))
	for _, c := range candidates {
		if Validate(c) {
			valid = append(valid, c)
		}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		a, b := valid[i], valid[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		lenA, lenB := a.End-a.Start, b.End-b.Start
		if lenA != lenB {
			return lenA > lenB
		}
		if a.Start == b.Start && a.End == b.End && a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Start < b.Start
	})

	var accepted []recognizers.Span
	for _, cand := range valid {
		overlaps := false
		for _, acc := range accepted {
			if cand.Start < acc.End && acc.Start < cand.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			accepted = append(accepted, cand)
		}
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Start < accepted[j].Start
	})
	return accepted
}
