package document

import (
	"context"
	"os"

	"pii-redaction-engine/internal/engine"
)

// RedactTextFile redacts a plain-text file (.txt, .csv, .log, .md) in a
// single engine call over the whole file content — there is no structural
// unit smaller than the file to preserve.
func RedactTextFile(ctx context.Context, e *engine.Engine, path string, entityTypes []string) (outputPath string, result *engine.RedactResult, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, ErrFileNotFound
		}
		return "", nil, err
	}

	result, err = e.Redact(ctx, string(content), entityTypes)
	if err != nil {
		return "", nil, err
	}

	outputPath = OutputPath(path, "redacted")
	if err := os.WriteFile(outputPath, []byte(result.RedactedText), 0600); err != nil {
		return "", nil, err
	}
	return outputPath, result, nil
}

// UnredactTextFile restores a previously redacted plain-text file from its
// session mappings.
func UnredactTextFile(e *engine.Engine, path, sessionID string) (outputPath string, result *engine.UnredactResult, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, ErrFileNotFound
		}
		return "", nil, err
	}

	result, err = e.Unredact(string(content), sessionID)
	if err != nil {
		return "", nil, err
	}

	outputPath = OutputPath(path, "unredacted")
	if err := os.WriteFile(outputPath, []byte(result.OriginalText), 0600); err != nil {
		return "", nil, err
	}
	return outputPath, result, nil
}
