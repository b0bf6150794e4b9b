package document

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/ledongthuc/pdf"

	"pii-redaction-engine/internal/engine"
)

// PDF has no widely available in-repo library for in-place text annotation:
// the content stream would need to be rewritten operator by operator with
// byte-exact glyph positioning preserved. Instead, RedactPDF and UnredactPDF
// re-compose the document: extract text row by row (ledongthuc/pdf reports
// each row's approximate baseline position together with the font name and
// size reported by the source PDF), run it through the engine, and lay the
// result back out with gofpdf in reading order. Absolute glyph coordinates
// are not reproduced — a redacted or unredacted paragraph can reflow if the
// replacement text is a different length — but font family and size track
// the source within a few points, which is what distinguishes this from a
// flat re-typeset dump.
const pdfLineSpacing = 1.25 // multiplier applied to font size for line height

// mapPDFFont classifies a source PDF font name into one of the three
// built-in gofpdf core families. Source font names are vendor- and
// subset-prefixed (e.g. "ABCDEF+TimesNewRomanPSMT"), so this matches on
// lowercase substrings rather than exact names.
func mapPDFFont(sourceFont string) (family, style string) {
	f := strings.ToLower(sourceFont)
	style = ""
	if strings.Contains(f, "bold") {
		style += "B"
	}
	if strings.Contains(f, "italic") || strings.Contains(f, "oblique") {
		style += "I"
	}

	switch {
	case strings.Contains(f, "courier") || strings.Contains(f, "mono") || strings.Contains(f, "consol"):
		return "Courier", style
	case strings.Contains(f, "times") || strings.Contains(f, "georgia") || strings.Contains(f, "serif") || strings.Contains(f, "garamond") || strings.Contains(f, "cambria"):
		return "Times", style
	default:
		return "Arial", style
	}
}

// pdfRow is one line of extracted text, carrying enough of the source
// formatting to reproduce an approximately matching font on output.
type pdfRow struct {
	text     string
	font     string
	fontSize float64
}

func extractPDFRows(path string) ([]pdfRow, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedDocument, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	var rows []pdfRow
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		textRows, err := page.GetTextByRow()
		if err != nil {
			continue // ProjectorFailure: skip an unreadable page, keep the rest
		}
		for _, row := range textRows {
			var sb strings.Builder
			font, size := "Helvetica", 11.0
			for i, t := range row.Content {
				if i > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(t.S)
				if t.Font != "" {
					font = t.Font
				}
				if t.FontSize > 0 {
					size = t.FontSize
				}
			}
			line := strings.TrimSpace(sb.String())
			if line == "" {
				continue
			}
			rows = append(rows, pdfRow{text: line, font: font, fontSize: size})
		}
	}
	return rows, nil
}

func renderPDFRows(rows []pdfRow, outputPath string) error {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()

	for _, row := range rows {
		family, style := mapPDFFont(row.font)
		size := row.fontSize
		if size <= 0 {
			size = 11
		}
		doc.SetFont(family, style, size)
		lineHeight := size * pdfLineSpacing * 25.4 / 72 // pt -> mm
		doc.MultiCell(0, lineHeight, row.text, "", "L", false)
	}

	if err := doc.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// RedactPDF redacts a PDF's text content row by row, accumulating all
// mappings into a single shared session, and writes a re-composed PDF with
// the same row text replaced by placeholders.
//
// Rows share one session (see Engine.RedactInto), so two rows that each
// contain exactly one value of the same entity type land on the same
// placeholder and collide in the session map; whichever row was recorded
// last determines what un-redaction restores at both locations.
func RedactPDF(ctx context.Context, e *engine.Engine, path string, entityTypes []string) (outputPath string, sessionID string, entitiesFound int, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if os.IsNotExist(statErr) {
			return "", "", 0, ErrFileNotFound
		}
		return "", "", 0, statErr
	}

	rows, err := extractPDFRows(path)
	if err != nil {
		return "", "", 0, err
	}

	sessionID, err = e.NewSession()
	if err != nil {
		return "", "", 0, err
	}

	out := make([]pdfRow, 0, len(rows))
	for _, row := range rows {
		result, err := e.RedactInto(ctx, sessionID, row.text, entityTypes)
		if err != nil {
			out = append(out, row) // ProjectorFailure: keep the original row text
			continue
		}
		entitiesFound += result.EntitiesFound
		out = append(out, pdfRow{text: result.RedactedText, font: row.font, fontSize: row.fontSize})
	}

	outputPath = OutputPath(path, "redacted")
	if err := renderPDFRows(out, outputPath); err != nil {
		return "", "", 0, err
	}
	return outputPath, sessionID, entitiesFound, nil
}

// UnredactPDF restores a redacted PDF's text content from a single shared
// session and writes a re-composed PDF with the original values in place of
// their placeholders.
func UnredactPDF(e *engine.Engine, path, sessionID string) (outputPath string, entitiesRestored int, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if os.IsNotExist(statErr) {
			return "", 0, ErrFileNotFound
		}
		return "", 0, statErr
	}

	rows, err := extractPDFRows(path)
	if err != nil {
		return "", 0, err
	}

	out := make([]pdfRow, 0, len(rows))
	for _, row := range rows {
		result, err := e.Unredact(row.text, sessionID)
		if err != nil {
			return "", 0, err
		}
		entitiesRestored += result.EntitiesRestored
		out = append(out, pdfRow{text: result.OriginalText, font: row.font, fontSize: row.fontSize})
	}

	outputPath = OutputPath(path, "unredacted")
	if err := renderPDFRows(out, outputPath); err != nil {
		return "", 0, err
	}
	return outputPath, entitiesRestored, nil
}

// blackoutBlock is repeated to cover a redacted span's original width; PDF
// black-box mode has no placeholder text to size against, so the block run
// is sized to the original span length rather than a fixed width.
const blackoutBlock = "█"

// RedactPDFBlackBox destructively blanks every detected span in a PDF's text
// with solid block characters instead of a placeholder and returns no
// session id: black-box mode is irreversible by design, since
// nothing about the original substring is retained anywhere.
func RedactPDFBlackBox(ctx context.Context, e *engine.Engine, path string, entityTypes []string) (outputPath string, entitiesFound int, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if os.IsNotExist(statErr) {
			return "", 0, ErrFileNotFound
		}
		return "", 0, statErr
	}

	rows, err := extractPDFRows(path)
	if err != nil {
		return "", 0, err
	}

	out := make([]pdfRow, 0, len(rows))
	for _, row := range rows {
		result, err := e.Analyze(ctx, row.text, entityTypes)
		if err != nil {
			out = append(out, row) // ProjectorFailure: keep the original row text
			continue
		}
		entitiesFound += len(result.Entities)
		out = append(out, pdfRow{text: blackoutRow(row.text, result.Entities), font: row.font, fontSize: row.fontSize})
	}

	outputPath = OutputPath(path, "redacted")
	if err := renderPDFRows(out, outputPath); err != nil {
		return "", 0, err
	}
	return outputPath, entitiesFound, nil
}

// blackoutRow replaces each entity span in text with a run of block
// characters matching its original width, working right to left so earlier
// offsets stay valid as the string is rebuilt.
func blackoutRow(text string, entities []engine.AnalyzeEntity) string {
	for i := len(entities) - 1; i >= 0; i-- {
		ent := entities[i]
		if ent.Start < 0 || ent.End > len(text) || ent.Start >= ent.End {
			continue
		}
		text = text[:ent.Start] + strings.Repeat(blackoutBlock, ent.End-ent.Start) + text[ent.End:]
	}
	return text
}
