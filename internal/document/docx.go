package document

import (
	"context"
	"fmt"
	"os"

	"github.com/nguyenthenguyen/docx"

	"pii-redaction-engine/internal/engine"
)

// RedactDOCX processes each paragraph and table-cell paragraph of a Word
// document independently, splicing placeholders into the runs that overlap
// a detected span and leaving every other run's formatting untouched. A
// paragraph whose run text doesn't reconstruct its reported plain text
// (unusual XML with non-run content between runs) falls back to whole-
// paragraph replacement in the first run.
//
// All paragraphs share one session (see Engine.RedactInto), so two
// paragraphs that each contain exactly one value of the same entity type
// produce the same placeholder and collide in the session map. Paragraphs
// are redacted from last to first, so the earlier paragraph's original
// value is recorded last, wins, and is what un-redaction restores into both
// places.
func RedactDOCX(ctx context.Context, e *engine.Engine, path string, entityTypes []string) (outputPath string, sessionID string, entitiesFound int, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if os.IsNotExist(statErr) {
			return "", "", 0, ErrFileNotFound
		}
		return "", "", 0, statErr
	}

	reader, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", "", 0, fmt.Errorf("%w: %v", ErrCorruptedDocument, err)
	}
	defer reader.Close() //nolint:errcheck // best-effort close once saved

	doc := reader.Editable()
	content := doc.GetContent()

	sessionID, err = e.NewSession()
	if err != nil {
		return "", "", 0, err
	}

	paragraphRanges := splitParagraphs(content)
	for i := len(paragraphRanges) - 1; i >= 0; i-- {
		pr := paragraphRanges[i]
		ps, pe := pr[0], pr[1]
		paragraphXML := content[ps:pe]

		plainText, runs := paragraphRuns(paragraphXML)
		if plainText == "" {
			continue
		}

		result, rerr := e.RedactInto(ctx, sessionID, plainText, entityTypes)
		if rerr != nil || result.EntitiesFound == 0 {
			continue // ProjectorFailure or nothing to do: leave the paragraph unchanged
		}

		spans := make([]textSpan, 0, len(result.Entities))
		for _, ent := range result.Entities {
			spans = append(spans, textSpan{start: ent.OriginalStart, end: ent.OriginalEnd, placeholder: ent.Placeholder})
		}

		reconstructed := ""
		for _, r := range runs {
			reconstructed += plainText[r.textStart:r.textEnd]
		}

		var newParagraphXML string
		if reconstructed == plainText {
			var ok bool
			newParagraphXML, ok = spliceParagraph(paragraphXML, plainText, runs, spans)
			if !ok {
				newParagraphXML = fallbackParagraph(paragraphXML, runs, result.RedactedText)
			}
		} else {
			newParagraphXML = fallbackParagraph(paragraphXML, runs, result.RedactedText)
		}

		content = content[:ps] + newParagraphXML + content[pe:]
		entitiesFound += result.EntitiesFound
	}

	doc.SetContent(content)
	outputPath = OutputPath(path, "redacted")
	if err := doc.WriteToFile(outputPath); err != nil {
		return "", "", 0, err
	}
	return outputPath, sessionID, entitiesFound, nil
}

// UnredactDOCX restores every placeholder occurrence inside each run's text
// directly. A placeholder that straddles run boundaries (possible if run
// boundaries shifted after redaction) falls back to paragraph-level
// string replacement.
func UnredactDOCX(e *engine.Engine, path, sessionID string) (outputPath string, entitiesRestored int, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if os.IsNotExist(statErr) {
			return "", 0, ErrFileNotFound
		}
		return "", 0, statErr
	}

	reader, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrCorruptedDocument, err)
	}
	defer reader.Close() //nolint:errcheck // best-effort close once saved

	doc := reader.Editable()
	content := doc.GetContent()

	paragraphRanges := splitParagraphs(content)
	for i := len(paragraphRanges) - 1; i >= 0; i-- {
		pr := paragraphRanges[i]
		ps, pe := pr[0], pr[1]
		paragraphXML := content[ps:pe]

		plainText, runs := paragraphRuns(paragraphXML)
		if plainText == "" {
			continue
		}

		paragraphResult, uerr := e.Unredact(plainText, sessionID)
		if uerr != nil {
			return "", 0, uerr
		}
		if paragraphResult.EntitiesRestored == 0 {
			continue
		}

		// Try per-run replacement first: each placeholder was spliced
		// wholly inside one run by RedactDOCX, so this is the common case.
		newParagraphXML, restoredByRun := unredactRuns(paragraphXML, runs, e, sessionID)

		if restoredByRun != paragraphResult.EntitiesRestored {
			// A placeholder straddled a run boundary; fall back to
			// writing the whole-paragraph result into the first run.
			newParagraphXML = fallbackParagraph(paragraphXML, runs, paragraphResult.OriginalText)
		}

		content = content[:ps] + newParagraphXML + content[pe:]
		entitiesRestored += paragraphResult.EntitiesRestored
	}

	doc.SetContent(content)
	outputPath = OutputPath(path, "unredacted")
	if err := doc.WriteToFile(outputPath); err != nil {
		return "", 0, err
	}
	return outputPath, entitiesRestored, nil
}
