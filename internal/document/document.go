// Package document projects the detection engine's output onto whole files:
// plain text, DOCX paragraphs and table cells, XLSX cells, and PDF pages.
// The projector never re-runs detection on reassembled text — it always
// works from the engine's Entity list, extracted once per structural unit,
// to preserve the offset fidelity the engine already computed.
package document

import (
	"errors"
	"path/filepath"
	"strings"
)

// Format identifies a supported document kind by its file extension.
type Format string

const (
	FormatText Format = "text"
	FormatDOCX Format = "docx"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
	FormatDOC  Format = "doc"
)

var textExtensions = map[string]bool{
	".txt": true, ".csv": true, ".log": true, ".md": true,
}

// ErrUnknownFormat is returned when a file extension isn't one of the
// supported formats.
var ErrUnknownFormat = errors.New("unsupported file format")

// ErrFileNotFound is returned when the input path does not exist.
var ErrFileNotFound = errors.New("input file not found")

// ErrExternalConverterUnavailable is returned for legacy .doc input when no
// DOC-to-DOCX converter is configured.
var ErrExternalConverterUnavailable = errors.New("no external converter configured for legacy .doc input; install a DOC-to-DOCX converter")

// ErrCorruptedDocument is returned when the document opener rejects a file
// as unreadable. This is fatal for the call, unlike a single bad
// paragraph/cell/page, which is logged and skipped.
var ErrCorruptedDocument = errors.New("document could not be opened")

// DetectFormat maps a file path's extension to a supported Format.
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case textExtensions[ext]:
		return FormatText, nil
	case ext == ".docx":
		return FormatDOCX, nil
	case ext == ".xlsx":
		return FormatXLSX, nil
	case ext == ".pdf":
		return FormatPDF, nil
	case ext == ".doc":
		return FormatDOC, nil
	default:
		return "", ErrUnknownFormat
	}
}

// OutputPath builds the redacted or unredacted sibling path for an input
// file: <base>_redacted<ext> or <base>_unredacted<ext>. DOC inputs always
// produce a .docx output, since DOC redaction delegates to the DOCX path.
func OutputPath(inputPath, suffix string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	if strings.EqualFold(ext, ".doc") {
		ext = ".docx"
	}
	return base + "_" + suffix + ext
}
