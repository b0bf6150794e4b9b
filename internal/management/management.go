// Package management provides a lightweight HTTP API for runtime inspection
// and configuration of the running redaction engine.
//
// Endpoints:
//
//	GET  /status           - engine health, active entity types, layer availability
//	GET  /metrics          - metrics snapshot
//	POST /configure        - adjust score threshold, enabled/disabled entity
//	                          types, and load custom patterns
//	POST /entities/enable  - re-enable a previously disabled entity type
//	POST /entities/disable - disable an entity type process-wide
package management

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"pii-redaction-engine/internal/engine"
	"pii-redaction-engine/internal/logger"
	"pii-redaction-engine/internal/metrics"
)

// Server is the management API server.
type Server struct {
	engine    *engine.Engine
	entities  *EntityRegistry
	startTime time.Time
	token     string           // bearer token for auth; empty = no auth
	metrics   *metrics.Metrics // nil = no metrics
	port      int
	log       *logger.Logger
}

// EntityRegistry holds the mutable set of disabled entity types. It is
// shared between the engine and the management server: disabling a type
// here takes effect on the engine's next detection call via the
// EntityFilter installed at construction. Changes are persisted to disk via
// atomic file writes so overrides survive process restarts.
type EntityRegistry struct {
	mu          sync.RWMutex
	disabled    map[string]bool
	persistPath string // empty = no persistence
	log         *logger.Logger
}

// NewEntityRegistry creates a registry seeded from initiallyDisabled. If
// persistPath is non-empty and the file exists, its contents take
// precedence over initiallyDisabled, since it represents a runtime override
// from a previous process.
func NewEntityRegistry(initiallyDisabled []string, persistPath string, log *logger.Logger) *EntityRegistry {
	r := &EntityRegistry{
		disabled:    make(map[string]bool, len(initiallyDisabled)),
		persistPath: persistPath,
		log:         log,
	}

	if persistPath != "" {
		types, err := r.loadFromDisk()
		switch {
		case err == nil:
			for _, t := range types {
				r.disabled[t] = true
			}
			if log != nil {
				log.Infof("init", "loaded %d disabled entity type(s) from %s", len(types), persistPath)
			}
			return r
		case !os.IsNotExist(err):
			if log != nil {
				log.Warnf("init", "failed to load %s: %v (using config defaults)", persistPath, err)
			}
		}
	}

	for _, t := range initiallyDisabled {
		r.disabled[strings.ToUpper(t)] = true
	}
	return r
}

// Filter returns an engine.EntityFilter backed by this registry.
func (r *EntityRegistry) Filter() engine.EntityFilter {
	return func(entityType string) bool {
		return !r.isDisabled(entityType)
	}
}

func (r *EntityRegistry) isDisabled(entityType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.disabled[strings.ToUpper(entityType)]
}

// Disable removes an entity type from the active set and persists the change.
func (r *EntityRegistry) Disable(entityType string) {
	r.mu.Lock()
	r.disabled[strings.ToUpper(entityType)] = true
	snapshot := r.snapshotLocked()
	r.mu.Unlock()
	r.persist(snapshot)
}

// Enable restores a previously disabled entity type and persists the change.
func (r *EntityRegistry) Enable(entityType string) {
	r.mu.Lock()
	delete(r.disabled, strings.ToUpper(entityType))
	snapshot := r.snapshotLocked()
	r.mu.Unlock()
	r.persist(snapshot)
}

// Disabled returns a sorted slice of all currently disabled entity types.
func (r *EntityRegistry) Disabled() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// snapshotLocked returns a sorted copy of the current disabled set.
// Caller must hold r.mu.
func (r *EntityRegistry) snapshotLocked() []string {
	out := make([]string, 0, len(r.disabled))
	for t := range r.disabled {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (r *EntityRegistry) loadFromDisk() ([]string, error) {
	data, err := os.ReadFile(r.persistPath)
	if err != nil {
		return nil, err
	}
	var types []string
	if err := json.Unmarshal(data, &types); err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.persistPath, err)
	}
	return types, nil
}

// persist writes the given snapshot to disk atomically. It does not hold
// r.mu, so it never blocks a concurrent Filter lookup.
func (r *EntityRegistry) persist(types []string) {
	if r.persistPath == "" {
		return
	}

	data, err := json.MarshalIndent(types, "", "  ")
	if err != nil {
		if r.log != nil {
			r.log.Errorf("persist", "marshal error: %v", err)
		}
		return
	}

	dir := filepath.Dir(r.persistPath)
	tmp, err := os.CreateTemp(dir, ".disabled-entities-*.tmp")
	if err != nil {
		if r.log != nil {
			r.log.Errorf("persist", "create temp: %v", err)
		}
		return
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()        //nolint:errcheck // best-effort cleanup
		os.Remove(tmpName) //nolint:errcheck // #nosec G703 -- tmpName from os.CreateTemp, not user input
		if r.log != nil {
			r.log.Errorf("persist", "write: %v", err)
		}
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck // #nosec G703 -- tmpName from os.CreateTemp, not user input
		if r.log != nil {
			r.log.Errorf("persist", "close: %v", err)
		}
		return
	}
	if err := os.Rename(tmpName, r.persistPath); err != nil { // #nosec G703 -- paths from trusted config
		os.Remove(tmpName) //nolint:errcheck // #nosec G703 -- tmpName from os.CreateTemp, not user input
		if r.log != nil {
			r.log.Errorf("persist", "rename: %v", err)
		}
		return
	}
}

// New creates a management server wired to a live engine and entity registry.
func New(eng *engine.Engine, entities *EntityRegistry, m *metrics.Metrics, port int, token string, log *logger.Logger) *Server {
	s := &Server{
		engine:    eng,
		entities:  entities,
		startTime: time.Now(),
		token:     token,
		metrics:   m,
		port:      port,
		log:       log,
	}
	if s.token != "" && log != nil {
		log.Infof("init", "bearer token authentication enabled")
	}
	return s
}

// Handler returns the HTTP handler for the management API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/configure", s.handleConfigure)
	mux.HandleFunc("/entities/enable", s.handleEnableEntity)
	mux.HandleFunc("/entities/disable", s.handleDisableEntity)
	return s.authMiddleware(mux)
}

// authMiddleware checks for a valid Bearer token if one is configured.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) ||
			subtle.ConstantTimeCompare([]byte(strings.TrimSpace(auth[len(prefix):])), []byte(s.token)) != 1 {
			if s.log != nil {
				s.log.Warnf("auth", "unauthorized access attempt from %s to %s", r.RemoteAddr, r.URL.Path)
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	type response struct {
		Status         string   `json:"status"`
		Uptime         string   `json:"uptime"`
		ScoreThreshold float64  `json:"scoreThreshold"`
		ActiveEntities []string `json:"activeEntities"`
		DisabledTypes  []string `json:"disabledEntityTypes"`
		LLMAvailable   bool     `json:"llmAvailable"`
	}

	resp := response{
		Status:         "running",
		Uptime:         time.Since(s.startTime).Round(time.Second).String(),
		ScoreThreshold: s.engine.ScoreThreshold(),
		ActiveEntities: s.engine.Patterns().EntityTypes(),
		DisabledTypes:  s.entities.Disabled(),
		LLMAvailable:   s.engine.GenerativeAvailable(),
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		http.Error(w, "metrics not enabled", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// configureRequest mirrors the `configure` tool's parameters; any
// field left at its zero value is left unchanged.
type configureRequest struct {
	ScoreThreshold      *float64 `json:"scoreThreshold"`
	EnabledEntityTypes  []string `json:"enabledEntityTypes"`
	DisabledEntityTypes []string `json:"disabledEntityTypes"`
	CustomPatternsFile  string   `json:"customPatternsFile"`
}

type configureResponse struct {
	ScoreThreshold float64  `json:"scoreThreshold"`
	ActiveEntities []string `json:"activeEntities"`
	LLMAvailable   bool     `json:"llmAvailable"`
	PatternsLoaded int      `json:"patternsLoaded,omitempty"`
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.ScoreThreshold != nil {
		s.engine.SetScoreThreshold(*req.ScoreThreshold)
	}
	for _, t := range req.DisabledEntityTypes {
		s.entities.Disable(t)
	}
	for _, t := range req.EnabledEntityTypes {
		s.entities.Enable(t)
	}
	s.engine.SetEntityFilter(s.entities.Filter())

	patternsLoaded := 0
	if req.CustomPatternsFile != "" {
		before := len(s.engine.Patterns().EntityTypes())
		if err := s.engine.Patterns().LoadCustomPatterns(req.CustomPatternsFile); err != nil {
			http.Error(w, fmt.Sprintf("load custom patterns: %v", err), http.StatusBadRequest)
			return
		}
		patternsLoaded = len(s.engine.Patterns().EntityTypes()) - before
	}

	if s.log != nil {
		s.log.Infof("configure", "threshold=%.2f enabled=%v disabled=%v patterns_file=%q",
			s.engine.ScoreThreshold(), req.EnabledEntityTypes, req.DisabledEntityTypes, req.CustomPatternsFile)
	}

	writeJSON(w, http.StatusOK, configureResponse{
		ScoreThreshold: s.engine.ScoreThreshold(),
		ActiveEntities: s.engine.Patterns().EntityTypes(),
		LLMAvailable:   s.engine.GenerativeAvailable(),
		PatternsLoaded: patternsLoaded,
	})
}

func (s *Server) handleEnableEntity(w http.ResponseWriter, r *http.Request) {
	s.handleEntityToggle(w, r, s.entities.Enable, "enabled")
}

func (s *Server) handleDisableEntity(w http.ResponseWriter, r *http.Request) {
	s.handleEntityToggle(w, r, s.entities.Disable, "disabled")
}

func (s *Server) handleEntityToggle(w http.ResponseWriter, r *http.Request, apply func(string), verb string) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1024)
	var req struct {
		EntityType string `json:"entityType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EntityType == "" {
		http.Error(w, `invalid request: need {"entityType":"..."}`, http.StatusBadRequest)
		return
	}
	apply(req.EntityType)
	s.engine.SetEntityFilter(s.entities.Filter())
	if s.log != nil {
		s.log.Infof("entity_toggle", "%s entity type %s", verb, strings.ToUpper(req.EntityType))
	}
	writeJSON(w, http.StatusOK, map[string]string{verb: strings.ToUpper(req.EntityType)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort; client disconnects are not actionable
}

// ListenAndServe starts the management HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	if s.log != nil {
		s.log.Infof("listen", "management API listening on %s", addr)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
