// Package neural implements the zero-shot neural recognizer (L2): a
// token-classification model that catches entities the pattern layer's
// regexes structurally cannot — person and organization names, free-text
// addresses, anything without a fixed format.
//
// Two implementations are provided: a real ONNX-backed adapter for
// production, which reports not-ready when its model cannot be loaded, and a
// no-op stub for when the neural layer is switched off in configuration. The
// redaction engine never fails a pass because the neural layer is
// unavailable — it just proceeds pattern-only.
package neural

import (
	"context"

	"pii-redaction-engine/internal/recognizers"
)

// Recognizer is the L2 neural recognition interface. Implementations must
// be safe for concurrent use.
type Recognizer interface {
	// Recognize returns candidate spans for text. On failure it returns a
	// nil slice rather than partial results, together with the error; the
	// engine logs the error and proceeds without this layer.
	Recognize(ctx context.Context, text string) ([]recognizers.Span, error)

	// IsReady reports whether the model loaded successfully.
	IsReady() bool

	// Close releases any resources (ONNX session, model memory) held by
	// the recognizer.
	Close() error
}

// labelToEntityType is the fixed mapping from the token-classification
// model's label set to the engine's entity type vocabulary. Labels outside
// this map (e.g. structured-format labels the model was never trained to
// emit, since those are the pattern layer's job) are dropped rather than
// passed through as unknown types.
var labelToEntityType = map[string]string{
	"person":            recognizers.TypePerson,
	"organization":       recognizers.TypeOrganization,
	"address":            recognizers.TypeLocation,
	"location":           recognizers.TypeLocation,
	"email":              recognizers.TypeEmailAddress,
	"phone":              recognizers.TypePhoneNumber,
	"mobile":             recognizers.TypePhoneNumber,
	"date of birth":      recognizers.TypeDateTime,
	"date_of_birth":      recognizers.TypeDateTime,
	"medication":         recognizers.TypeDrugName,
	"medical condition":  recognizers.TypeMedicalCondition,
	"medical_condition":  recognizers.TypeMedicalCondition,
	"username":           recognizers.TypeUsername,
}

// mapLabel translates a model label to an engine entity type. ok is false
// for labels the engine intentionally does not project (e.g. structured
// formats the pattern layer already owns).
func mapLabel(label string) (entityType string, ok bool) {
	t, ok := labelToEntityType[label]
	return t, ok
}

// Disabled is a Recognizer that finds nothing and is never ready. It is
// used when UseNeuralRecognizer is false in configuration; a production
// adapter that failed to load its model is kept instead and reports
// IsReady() false.
type Disabled struct{}

// Recognize always returns an empty result.
func (Disabled) Recognize(context.Context, string) ([]recognizers.Span, error) {
	return nil, nil
}

// IsReady always returns false.
func (Disabled) IsReady() bool { return false }

// Close is a no-op.
func (Disabled) Close() error { return nil }
