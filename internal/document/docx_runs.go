package document

import (
	"regexp"
	"strings"
)

// run is one <w:r>...</w:r> element inside a paragraph's raw XML, with the
// byte range of its <w:t> text content both within the paragraph XML and
// within the paragraph's concatenated plain text.
type run struct {
	xmlStart, xmlEnd     int // byte range of the <w:t>...</w:t> element in the paragraph XML
	textStart, textEnd   int // byte range of this run's contribution to the paragraph's plain text
	tagOpen, tagClose    string
}

var (
	paragraphRe = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>|<w:p/>`)
	runTextRe   = regexp.MustCompile(`(?s)<w:t[^>]*>(.*?)</w:t>`)
)

// splitParagraphs returns the byte ranges of every <w:p>...</w:p> element in
// a document.xml body.
func splitParagraphs(xml string) [][2]int {
	matches := paragraphRe.FindAllStringIndex(xml, -1)
	return matches
}

// paragraphRuns parses the runs of a single paragraph's XML fragment,
// returning the plain text concatenation and a run table mapping each run's
// plain-text contribution back to its XML byte range.
func paragraphRuns(paragraphXML string) (plainText string, runs []run) {
	matches := runTextRe.FindAllStringSubmatchIndex(paragraphXML, -1)
	var b strings.Builder
	for _, m := range matches {
		// m[0],m[1] = whole <w:t>...</w:t>; m[2],m[3] = captured text content.
		text := unescapeXML(paragraphXML[m[2]:m[3]])
		runs = append(runs, run{
			xmlStart:  m[0],
			xmlEnd:    m[1],
			textStart: b.Len(),
			textEnd:   b.Len() + len(text),
			tagOpen:   paragraphXML[m[0]:m[2]],
			tagClose:  paragraphXML[m[3]:m[1]],
		})
		b.WriteString(text)
	}
	return b.String(), runs
}

// spliceParagraph rewrites paragraphXML so that each (start, end) text range
// in entities is replaced by its placeholder, performed right-to-left so
// earlier run XML offsets stay valid. entities must be sorted ascending by
// start and expressed in the paragraph's plain-text coordinates (not the
// document's). Returns the rewritten XML and whether surgical replacement
// succeeded — a false result means the run-text concatenation didn't match
// the reported plain text and the caller should fall back to whole-paragraph
// replacement.
func spliceParagraph(paragraphXML string, plainText string, runs []run, spans []textSpan) (string, bool) {
	if len(runs) == 0 {
		return paragraphXML, len(spans) == 0
	}

	result := paragraphXML
	for i := len(spans) - 1; i >= 0; i-- {
		span := spans[i]
		firstIdx, lastIdx := -1, -1
		for ri, r := range runs {
			if span.start < r.textEnd && r.textStart < span.end {
				if firstIdx == -1 {
					firstIdx = ri
				}
				lastIdx = ri
			}
		}
		if firstIdx == -1 {
			return paragraphXML, false
		}

		if firstIdx == lastIdx {
			r := runs[firstIdx]
			localStart := span.start - r.textStart
			localEnd := span.end - r.textStart
			oldText := plainText[r.textStart:r.textEnd]
			if localStart < 0 || localEnd > len(oldText) {
				return paragraphXML, false
			}
			newText := oldText[:localStart] + span.placeholder + oldText[localEnd:]
			newRun := r.tagOpen + escapeXML(newText) + r.tagClose
			result = result[:r.xmlStart] + newRun + result[r.xmlEnd:]
			continue
		}

		// Spans multiple runs: prefix+placeholder into the first run,
		// clear interior runs, truncate the last run to the suffix.
		firstRun, lastRun := runs[firstIdx], runs[lastIdx]
		firstLocalStart := span.start - firstRun.textStart
		firstOld := plainText[firstRun.textStart:firstRun.textEnd]
		if firstLocalStart < 0 || firstLocalStart > len(firstOld) {
			return paragraphXML, false
		}
		prefix := firstOld[:firstLocalStart]

		lastLocalEnd := span.end - lastRun.textStart
		lastOld := plainText[lastRun.textStart:lastRun.textEnd]
		if lastLocalEnd < 0 || lastLocalEnd > len(lastOld) {
			return paragraphXML, false
		}
		suffix := lastOld[lastLocalEnd:]

		// Rewrite from the last run backward to the first so earlier XML
		// offsets in `result` stay valid while we splice later ones first.
		lastNewRun := lastRun.tagOpen + escapeXML(suffix) + lastRun.tagClose
		result = result[:lastRun.xmlStart] + lastNewRun + result[lastRun.xmlEnd:]

		for ri := lastIdx - 1; ri > firstIdx; ri-- {
			interior := runs[ri]
			emptyRun := interior.tagOpen + interior.tagClose
			result = result[:interior.xmlStart] + emptyRun + result[interior.xmlEnd:]
		}

		firstNewRun := firstRun.tagOpen + escapeXML(prefix+span.placeholder) + firstRun.tagClose
		result = result[:firstRun.xmlStart] + firstNewRun + result[firstRun.xmlEnd:]
	}
	return result, true
}

// textSpan is a placeholder substitution expressed in a paragraph's
// plain-text coordinates.
type textSpan struct {
	start, end  int
	placeholder string
}

// fallbackParagraph is used when the concatenated run text doesn't
// byte-equal the paragraph's reported plain text (non-run content between
// runs). It abandons surgical splicing: the whole redacted text goes into
// the first run, and every other run's text is cleared.
func fallbackParagraph(paragraphXML string, runs []run, redactedText string) string {
	if len(runs) == 0 {
		return paragraphXML
	}
	result := paragraphXML
	for ri := len(runs) - 1; ri > 0; ri-- {
		r := runs[ri]
		emptyRun := r.tagOpen + r.tagClose
		result = result[:r.xmlStart] + emptyRun + result[r.xmlEnd:]
	}
	first := runs[0]
	firstNewRun := first.tagOpen + escapeXML(redactedText) + first.tagClose
	return result[:first.xmlStart] + firstNewRun + result[first.xmlEnd:]
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func unescapeXML(s string) string {
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&apos;", "'")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}
