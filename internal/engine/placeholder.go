package engine

import (
	"fmt"

	"pii-redaction-engine/internal/recognizers"
)

// assignPlaceholders walks spans in left-to-right order and assigns each one
// a placeholder of the form [<ENTITY_TYPE>_<N>], with N a dense per-type
// counter starting at 1. spans must already be sorted by Start and
// pairwise non-overlapping.
func assignPlaceholders(spans []recognizers.Span) []Entity {
	counters := make(map[string]int, len(spans))
	entities := make([]Entity, 0, len(spans))
	for _, s := range spans {
		counters[s.Type]++
		entities = append(entities, Entity{
			EntityType:    s.Type,
			OriginalStart: s.Start,
			OriginalEnd:   s.End,
			Placeholder:   fmt.Sprintf("[%s_%d]", s.Type, counters[s.Type]),
		})
	}
	return entities
}

// substitute applies each entity's placeholder over text, right-to-left so
// earlier offsets remain valid as later ones are rewritten. entities must be
// sorted ascending by OriginalStart and pairwise non-overlapping.
func substitute(text string, entities []Entity) string {
	result := text
	for i := len(entities) - 1; i >= 0; i-- {
		e := entities[i]
		result = result[:e.OriginalStart] + e.Placeholder + result[e.OriginalEnd:]
	}
	return result
}
