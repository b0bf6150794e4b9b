package neural

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"

	"pii-redaction-engine/internal/logger"
	"pii-redaction-engine/internal/recognizers"
)

// Config configures the ONNX-backed token-classification recognizer.
type Config struct {
	ModelPath       string
	ModelName       string
	OnnxLibraryPath string
	Timeout         time.Duration
}

// DefaultConfig returns a default configuration pointing at a local model
// directory.
func DefaultConfig() Config {
	return Config{
		ModelPath:       "./models/pii-token-classifier",
		ModelName:       "distilbert-ner",
		OnnxLibraryPath: os.Getenv("ONNX_LIBRARY_PATH"),
		Timeout:         10 * time.Second,
	}
}

// HugotRecognizer is the production Recognizer, backed by an ONNX
// token-classification pipeline run through hugot.
type HugotRecognizer struct {
	session  *hugot.Session
	pipeline *pipelines.TokenClassificationPipeline
	mu       sync.RWMutex
	ready    bool
	cfg      Config
	log      *logger.Logger
}

// New creates a HugotRecognizer. On failure it logs a warning and returns a
// non-nil *HugotRecognizer whose IsReady() is false, so callers can treat
// "model unavailable" and "model loaded" uniformly through the same
// interface rather than branching on a constructor error.
func New(cfg Config, log *logger.Logger) Recognizer {
	r := &HugotRecognizer{cfg: cfg, log: log}
	if err := r.initialize(); err != nil {
		if log != nil {
			log.Warnf("init", "neural recognizer unavailable, proceeding pattern-only: %v", err)
		}
		return r
	}
	return r
}

func (r *HugotRecognizer) initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cfg.ModelPath == "" {
		return fmt.Errorf("no model path configured")
	}
	if _, err := os.Stat(r.cfg.ModelPath); err != nil {
		return fmt.Errorf("model path does not exist: %s", r.cfg.ModelPath)
	}

	session, err := r.createSession()
	if err != nil {
		return fmt.Errorf("create hugot session: %w", err)
	}
	r.session = session

	config := hugot.TokenClassificationConfig{
		ModelPath: r.cfg.ModelPath,
		Name:      "pii-entity-tagger",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = r.session.Destroy() //nolint:errcheck // best-effort cleanup on init failure
		return fmt.Errorf("create token-classification pipeline: %w", err)
	}

	r.pipeline = pipeline
	r.ready = true
	if r.log != nil {
		r.log.Infof("init", "neural recognizer ready (model: %s)", r.cfg.ModelPath)
	}
	return nil
}

func (r *HugotRecognizer) createSession() (*hugot.Session, error) {
	if r.cfg.OnnxLibraryPath != "" {
		opts := []options.WithOption{options.WithOnnxLibraryPath(r.cfg.OnnxLibraryPath)}
		session, err := hugot.NewORTSession(opts...)
		if err == nil {
			return session, nil
		}
		if r.log != nil {
			r.log.Warnf("init", "ONNX Runtime unavailable, falling back to Go backend: %v", err)
		}
	}
	return hugot.NewGoSession()
}

// IsReady reports whether the model loaded successfully.
func (r *HugotRecognizer) IsReady() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ready
}

// Recognize runs the token-classification pipeline over text and maps its
// output labels to engine entity types via the fixed label mapping.
func (r *HugotRecognizer) Recognize(ctx context.Context, text string) ([]recognizers.Span, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.ready || r.pipeline == nil {
		return nil, nil
	}

	done := make(chan struct{})
	var result *pipelines.TokenClassificationOutput
	var runErr error
	go func() {
		result, runErr = r.pipeline.RunPipeline([]string{text})
		close(done)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}
	if runErr != nil {
		return nil, fmt.Errorf("token classification: %w", runErr)
	}
	if result == nil || len(result.Entities) == 0 {
		return nil, nil
	}

	var spans []recognizers.Span
	for _, entity := range result.Entities[0] {
		entityType, ok := mapLabel(entity.Label)
		if !ok {
			continue
		}
		spans = append(spans, recognizers.Span{
			Start:  entity.Start,
			End:    entity.End,
			Type:   entityType,
			Score:  float64(entity.Score),
			Text:   text[entity.Start:entity.End],
			Source: "neural",
		})
	}
	return spans, nil
}

// Close releases the ONNX session.
func (r *HugotRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = false
	if r.session != nil {
		return r.session.Destroy()
	}
	return nil
}
