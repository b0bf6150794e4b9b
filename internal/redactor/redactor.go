// Package redactor is the function-level entry point behind the tool
// surface: redact, unredact, analyze, configure, redact_file, unredact_file.
// A dispatch layer (CLI, RPC, HTTP) can wrap Service directly; this package
// itself does no transport work beyond the management HTTP server started
// alongside it in cmd/redactor.
package redactor

import (
	"context"
	"fmt"

	"pii-redaction-engine/internal/document"
	"pii-redaction-engine/internal/engine"
	"pii-redaction-engine/internal/management"
)

// Service implements the six tool-surface operations over a single engine
// and entity registry. It holds no per-call state of its own — the engine's
// session store is the only thing that outlives a call.
type Service struct {
	engine   *engine.Engine
	entities *management.EntityRegistry
	doc      Converter
}

// Converter lets redact_file delegate legacy .doc input to an external
// converter; nil means document.NoConverter.
type Converter = document.Converter

// New builds a Service over an already-constructed engine and entity
// registry. conv may be nil, in which case .doc input is rejected with
// ErrExternalConverterUnavailable.
func New(eng *engine.Engine, entities *management.EntityRegistry, conv Converter) *Service {
	if conv == nil {
		conv = document.NoConverter{}
	}
	return &Service{engine: eng, entities: entities, doc: conv}
}

// Redact implements the `redact` tool.
func (s *Service) Redact(ctx context.Context, text string, entityTypes []string) (*engine.RedactResult, error) {
	return s.engine.Redact(ctx, text, entityTypes)
}

// Unredact implements the `unredact` tool.
func (s *Service) Unredact(redactedText, sessionID string) (*engine.UnredactResult, error) {
	return s.engine.Unredact(redactedText, sessionID)
}

// Analyze implements the `analyze` tool.
func (s *Service) Analyze(ctx context.Context, text string, entityTypes []string) (*engine.AnalyzeResult, error) {
	return s.engine.Analyze(ctx, text, entityTypes)
}

// ConfigureRequest mirrors the `configure` tool's parameters.
type ConfigureRequest struct {
	CustomPatternsFile string
	DisabledEntities   []string
	EnabledEntities    []string
	ScoreThreshold     *float64
}

// ConfigureResponse is the exact response shape for the `configure` tool.
type ConfigureResponse struct {
	Status         string   `json:"status"`
	ActiveEntities []string `json:"active_entities"`
	ScoreThreshold float64  `json:"score_threshold"`
	LLMAvailable   bool     `json:"llm_available"`
}

// Configure implements the `configure` tool. It never fails except on
// malformed input — here, an unreadable or unparsable custom-patterns file.
func (s *Service) Configure(req ConfigureRequest) (*ConfigureResponse, error) {
	if req.ScoreThreshold != nil {
		s.engine.SetScoreThreshold(*req.ScoreThreshold)
	}
	for _, t := range req.DisabledEntities {
		s.entities.Disable(t)
	}
	for _, t := range req.EnabledEntities {
		s.entities.Enable(t)
	}
	s.engine.SetEntityFilter(s.entities.Filter())

	if req.CustomPatternsFile != "" {
		if err := s.engine.Patterns().LoadCustomPatterns(req.CustomPatternsFile); err != nil {
			return nil, fmt.Errorf("load custom patterns: %w", err)
		}
	}

	filter := s.entities.Filter()
	active := []string{}
	for _, t := range s.engine.Patterns().EntityTypes() {
		if filter(t) {
			active = append(active, t)
		}
	}

	return &ConfigureResponse{
		Status:         "ok",
		ActiveEntities: active,
		ScoreThreshold: s.engine.ScoreThreshold(),
		LLMAvailable:   s.engine.GenerativeAvailable(),
	}, nil
}

// RedactFileResult is the shape `redact_file` returns. SessionID is empty in
// black-box mode, which is absent from the response rather than
// zero-valued; the dispatch layer is responsible for omitting the field in
// that case.
type RedactFileResult struct {
	RedactedFilePath string
	EntitiesFound    int
	SessionID        string
	HasSession       bool
}

// RedactFile implements the `redact_file` tool. usePlaceholders selects
// between placeholder mode (reversible, session-backed) and black-box mode
// (destructive, PDF-only); for every format other than PDF,
// black-box mode is not defined and usePlaceholders is treated as always
// true.
func (s *Service) RedactFile(ctx context.Context, filePath string, entityTypes []string, usePlaceholders bool) (*RedactFileResult, error) {
	format, err := document.DetectFormat(filePath)
	if err != nil {
		return nil, err
	}

	if format == document.FormatPDF && !usePlaceholders {
		out, found, err := document.RedactPDFBlackBox(ctx, s.engine, filePath, entityTypes)
		if err != nil {
			return nil, err
		}
		return &RedactFileResult{RedactedFilePath: out, EntitiesFound: found}, nil
	}

	switch format {
	case document.FormatText:
		out, result, err := document.RedactTextFile(ctx, s.engine, filePath, entityTypes)
		if err != nil {
			return nil, err
		}
		return &RedactFileResult{RedactedFilePath: out, EntitiesFound: result.EntitiesFound, SessionID: result.SessionID, HasSession: true}, nil
	case document.FormatDOCX:
		out, sessionID, found, err := document.RedactDOCX(ctx, s.engine, filePath, entityTypes)
		if err != nil {
			return nil, err
		}
		return &RedactFileResult{RedactedFilePath: out, EntitiesFound: found, SessionID: sessionID, HasSession: true}, nil
	case document.FormatXLSX:
		out, sessionID, found, err := document.RedactXLSX(ctx, s.engine, filePath, entityTypes)
		if err != nil {
			return nil, err
		}
		return &RedactFileResult{RedactedFilePath: out, EntitiesFound: found, SessionID: sessionID, HasSession: true}, nil
	case document.FormatPDF:
		out, sessionID, found, err := document.RedactPDF(ctx, s.engine, filePath, entityTypes)
		if err != nil {
			return nil, err
		}
		return &RedactFileResult{RedactedFilePath: out, EntitiesFound: found, SessionID: sessionID, HasSession: true}, nil
	case document.FormatDOC:
		out, sessionID, found, err := document.RedactDOC(ctx, s.doc, s.engine, filePath, entityTypes)
		if err != nil {
			return nil, err
		}
		return &RedactFileResult{RedactedFilePath: out, EntitiesFound: found, SessionID: sessionID, HasSession: true}, nil
	default:
		return nil, document.ErrUnknownFormat
	}
}

// UnredactFileResult is the shape `unredact_file` returns.
type UnredactFileResult struct {
	UnredactedFilePath string
	EntitiesRestored   int
}

// UnredactFile implements the `unredact_file` tool. Black-box redacted
// files have no session and cannot be un-redacted; attempting to do so
// surfaces ErrSessionMissing like any other missing session id.
func (s *Service) UnredactFile(ctx context.Context, filePath, sessionID string) (*UnredactFileResult, error) {
	format, err := document.DetectFormat(filePath)
	if err != nil {
		return nil, err
	}

	switch format {
	case document.FormatText:
		out, result, err := document.UnredactTextFile(s.engine, filePath, sessionID)
		if err != nil {
			return nil, err
		}
		return &UnredactFileResult{UnredactedFilePath: out, EntitiesRestored: result.EntitiesRestored}, nil
	case document.FormatDOCX, document.FormatDOC:
		out, restored, err := document.UnredactDOCX(s.engine, filePath, sessionID)
		if err != nil {
			return nil, err
		}
		return &UnredactFileResult{UnredactedFilePath: out, EntitiesRestored: restored}, nil
	case document.FormatXLSX:
		out, restored, err := document.UnredactXLSX(s.engine, filePath, sessionID)
		if err != nil {
			return nil, err
		}
		return &UnredactFileResult{UnredactedFilePath: out, EntitiesRestored: restored}, nil
	case document.FormatPDF:
		out, restored, err := document.UnredactPDF(s.engine, filePath, sessionID)
		if err != nil {
			return nil, err
		}
		return &UnredactFileResult{UnredactedFilePath: out, EntitiesRestored: restored}, nil
	default:
		return nil, document.ErrUnknownFormat
	}
}
