package document

import (
	"context"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"pii-redaction-engine/internal/engine"
)

// RedactXLSX redacts every non-empty string cell across every sheet of an
// XLSX workbook, accumulating all mappings into a single session so a
// caller unredacting the whole file only needs one session id. Formatting,
// formulas in non-text cells, merged ranges, and sheet order are left
// untouched: only the cell values the engine actually rewrote are changed.
//
// Because placeholder numbering restarts at 1 for every cell (see
// Engine.RedactInto), two cells that each contain exactly one value of the
// same entity type collide on the same placeholder within the shared
// session, and the later cell's mapping wins. Unredacting restores the
// correct placeholder text everywhere it appears, but a cell whose
// placeholder was overwritten by a later collision restores the wrong
// original value.
func RedactXLSX(ctx context.Context, e *engine.Engine, path string, entityTypes []string) (outputPath string, sessionID string, entitiesFound int, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if os.IsNotExist(statErr) {
			return "", "", 0, ErrFileNotFound
		}
		return "", "", 0, statErr
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", "", 0, fmt.Errorf("%w: %v", ErrCorruptedDocument, err)
	}
	defer f.Close() //nolint:errcheck // best-effort close once saved

	sessionID, err = e.NewSession()
	if err != nil {
		return "", "", 0, err
	}

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue // ProjectorFailure: log-and-continue at the sheet level
		}
		for rowIdx, row := range rows {
			for colIdx, value := range row {
				if value == "" {
					continue
				}
				axis, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
				if err != nil {
					continue
				}
				result, err := e.RedactInto(ctx, sessionID, value, entityTypes)
				if err != nil {
					continue // ProjectorFailure: leave this cell's value unchanged
				}
				if result.EntitiesFound == 0 {
					continue
				}
				if err := f.SetCellValue(sheet, axis, result.RedactedText); err != nil {
					continue
				}
				entitiesFound += result.EntitiesFound
			}
		}
	}

	outputPath = OutputPath(path, "redacted")
	if err := f.SaveAs(outputPath); err != nil {
		return "", "", 0, err
	}
	return outputPath, sessionID, entitiesFound, nil
}

// UnredactXLSX restores every string cell in a redacted workbook using the
// mappings from a single shared session.
func UnredactXLSX(e *engine.Engine, path, sessionID string) (outputPath string, entitiesRestored int, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if os.IsNotExist(statErr) {
			return "", 0, ErrFileNotFound
		}
		return "", 0, statErr
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrCorruptedDocument, err)
	}
	defer f.Close() //nolint:errcheck // best-effort close once saved

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for rowIdx, row := range rows {
			for colIdx, value := range row {
				if value == "" {
					continue
				}
				axis, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
				if err != nil {
					continue
				}
				result, err := e.Unredact(value, sessionID)
				if err != nil {
					return "", 0, err
				}
				if result.EntitiesRestored == 0 {
					continue
				}
				if err := f.SetCellValue(sheet, axis, result.OriginalText); err != nil {
					continue
				}
				entitiesRestored += result.EntitiesRestored
			}
		}
	}

	outputPath = OutputPath(path, "unredacted")
	if err := f.SaveAs(outputPath); err != nil {
		return "", 0, err
	}
	return outputPath, entitiesRestored, nil
}
