package recognizers

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pii-redaction-engine/internal/logger"
)

// contextWindow is the number of characters inspected on each side of a
// match when looking for a score-boosting context keyword.
const contextWindow = 30

// contextBoost is added to a match's base score when a context keyword is
// found in its surrounding window, capped at 0.99 so a boosted match never
// reads as absolute certainty.
const contextBoost = 0.15

const maxBoostedScore = 0.99

var fold = cases.Fold(cases.Compact, language.Und)

func foldString(s string) string { return fold.String(s) }

// Registry holds the active set of recognition patterns: the built-in table
// plus any user-registered patterns, in the single ordered list both live in
// so overlap resolution treats them identically.
type Registry struct {
	mu       sync.RWMutex
	patterns []Pattern
	log      *logger.Logger
}

// NewRegistry returns a Registry pre-loaded with the built-in pattern table.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		patterns: Builtins(),
		log:      log,
	}
}

// Register appends a user-supplied pattern to the active set. It takes
// effect on the next Recognize call and coexists with built-ins on equal
// footing in overlap resolution — there is no precedence distinction.
func (r *Registry) Register(p Pattern) {
	r.mu.Lock()
	r.patterns = append(r.patterns, p)
	r.mu.Unlock()
	if r.log != nil {
		r.log.Infof("register", "added pattern for type %s", p.EntityType)
	}
}

// customPatternFile is the on-disk shape accepted by LoadCustomPatterns.
type customPatternFile struct {
	Patterns []struct {
		Expr            string   `json:"expr"`
		EntityType      string   `json:"entityType"`
		BaseScore       float64  `json:"baseScore"`
		ContextKeywords []string `json:"contextKeywords"`
		DenyList        []string `json:"denyList"`
	} `json:"patterns"`
}

// LoadCustomPatterns reads a JSON file of user-registered patterns and adds
// each to the registry. The file format mirrors the built-in patternSpec
// shape so a deployment can extend detection without a code change.
func (r *Registry) LoadCustomPatterns(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G703: path is an operator-controlled config file, not user input
	if err != nil {
		return fmt.Errorf("read custom patterns file %q: %w", path, err)
	}
	var parsed customPatternFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse custom patterns file %q: %w", path, err)
	}
	specs := make([]patternSpec, 0, len(parsed.Patterns))
	for _, p := range parsed.Patterns {
		specs = append(specs, patternSpec{
			expr:            p.Expr,
			entityType:      p.EntityType,
			baseScore:       p.BaseScore,
			contextKeywords: p.ContextKeywords,
			denyList:        p.DenyList,
		})
	}
	compiled := compile(specs)
	r.mu.Lock()
	r.patterns = append(r.patterns, compiled...)
	r.mu.Unlock()
	if r.log != nil {
		r.log.Infof("load_custom_patterns", "loaded %d pattern(s) from %s", len(compiled), path)
	}
	return nil
}

// EntityTypes returns the sorted, de-duplicated set of entity types covered
// by the active pattern table — built-in plus any registered at runtime.
// Used by the `configure` tool entry point to report active_entities.
func (r *Registry) EntityTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool, len(r.patterns))
	out := make([]string, 0, len(r.patterns))
	for _, p := range r.patterns {
		if !seen[p.EntityType] {
			seen[p.EntityType] = true
			out = append(out, p.EntityType)
		}
	}
	sort.Strings(out)
	return out
}

// Recognize runs every active pattern against text and returns one Span per
// match that is not vetoed by its deny list. Context keyword boosting is
// applied using a fixed window on each side of the match.
func (r *Registry) Recognize(text string) []Span {
	r.mu.RLock()
	patterns := make([]Pattern, len(r.patterns))
	copy(patterns, r.patterns)
	r.mu.RUnlock()

	var spans []Span
	for _, p := range patterns {
		locs := p.Regex.FindAllStringIndex(text, -1)
		for _, loc := range locs {
			start, end := loc[0], loc[1]
			matched := text[start:end]

			if denied(foldString(matched), p.DenyList) {
				continue
			}

			score := p.BaseScore
			if len(p.ContextKeywords) > 0 && hasContextKeyword(text, start, end, p.ContextKeywords) {
				score += contextBoost
				if score > maxBoostedScore {
					score = maxBoostedScore
				}
			}

			spans = append(spans, Span{
				Start:  start,
				End:    end,
				Type:   p.EntityType,
				Score:  score,
				Text:   matched,
				Source: "pattern",
			})
		}
	}
	return spans
}

func denied(foldedMatch string, denyList []string) bool {
	for _, d := range denyList {
		if strings.Contains(foldedMatch, foldString(d)) {
			return true
		}
	}
	return false
}

func hasContextKeyword(text string, start, end int, keywords []string) bool {
	winStart := start - contextWindow
	if winStart < 0 {
		winStart = 0
	}
	winEnd := end + contextWindow
	if winEnd > len(text) {
		winEnd = len(text)
	}
	window := foldString(text[winStart:winEnd])
	for _, kw := range keywords {
		if strings.Contains(window, foldString(kw)) {
			return true
		}
	}
	return false
}
