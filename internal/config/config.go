// Package config loads and holds all redaction engine configuration.
// Settings are layered: defaults → redactor-config.json → environment variables (env vars win).
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the full redaction engine configuration.
type Config struct {
	ManagementPort int    `json:"managementPort"`
	BindAddress    string `json:"bindAddress"`
	LogLevel       string `json:"logLevel"`

	// ScoreThreshold is the minimum recognizer score a span must reach to
	// survive overlap resolution and be redacted.
	ScoreThreshold float64 `json:"scoreThreshold"`

	// EnabledEntityTypes restricts detection to this set when non-empty.
	// An empty list means all built-in and registered types are active.
	EnabledEntityTypes []string `json:"enabledEntityTypes"`

	// DisabledEntityTypes removes types from the active set even if they
	// would otherwise be enabled. Applied after EnabledEntityTypes.
	DisabledEntityTypes []string `json:"disabledEntityTypes"`

	UseNeuralRecognizer bool   `json:"useNeuralRecognizer"`
	NeuralModelPath     string `json:"neuralModelPath"`
	NeuralModelName     string `json:"neuralModelName"`
	NeuralOnnxLibrary   string `json:"neuralOnnxLibrary"` // path to libonnxruntime.so; empty = hugot's own default search

	UseGenerativeReviewer  bool          `json:"useGenerativeReviewer"`
	GenerativeEndpoint     string        `json:"generativeEndpoint"`
	GenerativeModel        string        `json:"generativeModel"`
	GenerativeTimeout      time.Duration `json:"generativeTimeout"`
	GenerativeMaxConcurrent int          `json:"generativeMaxConcurrent"`
	GenerativeCacheFile    string        `json:"generativeCacheFile"` // path to bbolt cache; empty = in-memory only
	GenerativeCacheCapacity int          `json:"generativeCacheCapacity"` // S3-FIFO hot-entry bound; 0 = unbounded

	// SessionTTL bounds how long a session's reverse mapping is retained by
	// the in-memory store before it is pruned.
	SessionTTL time.Duration `json:"sessionTTL"`

	// SessionDurableFile, when non-empty, switches the session store to the
	// bbolt-backed durable implementation at this path instead of the
	// process-lifetime in-memory map.
	SessionDurableFile string `json:"sessionDurableFile"`

	// CustomPatternsFile, when non-empty, is a JSON file of user-registered
	// recognizer patterns loaded at startup alongside the built-ins.
	CustomPatternsFile string `json:"customPatternsFile"`

	ManagementToken string `json:"managementToken"`
}

// Load returns config with defaults overridden by redactor-config.json and env vars.
func Load() *Config {
	cfg := defaults()
	loadFile(cfg, "redactor-config.json")
	loadEnv(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		ManagementPort:          8081,
		BindAddress:             "127.0.0.1",
		LogLevel:                "info",
		ScoreThreshold:          0.4,
		EnabledEntityTypes:      nil,
		DisabledEntityTypes:     nil,
		UseNeuralRecognizer:     true,
		NeuralModelPath:         "./models/pii-token-classifier",
		NeuralModelName:         "distilbert-ner",
		UseGenerativeReviewer:   false,
		GenerativeEndpoint:      "http://localhost:11434",
		GenerativeModel:         "qwen2.5:3b",
		GenerativeTimeout:       5 * time.Second,
		GenerativeMaxConcurrent: 1,
		GenerativeCacheFile:     "generative-cache.db",
		GenerativeCacheCapacity: 5000,
		SessionTTL:              30 * time.Minute,
		SessionDurableFile:      "",
		CustomPatternsFile:      "",
	}
}

// IsEntityTypeEnabled reports whether typeName should be recognized given the
// enable/disable lists. An empty EnabledEntityTypes list means "all types
// unless explicitly disabled".
func (c *Config) IsEntityTypeEnabled(typeName string) bool {
	for _, d := range c.DisabledEntityTypes {
		if strings.EqualFold(d, typeName) {
			return false
		}
	}
	if len(c.EnabledEntityTypes) == 0 {
		return true
	}
	for _, e := range c.EnabledEntityTypes {
		if strings.EqualFold(e, typeName) {
			return true
		}
	}
	return false
}

func loadFile(cfg *Config, path string) {
	data, err := os.ReadFile(path) //nolint:gosec // G703: path is a controlled config file path, not user input
	if err != nil {
		return // file is optional
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Printf("[CONFIG] Warning: could not parse %s: %v", path, err)
	} else {
		log.Printf("[CONFIG] Loaded %s", path)
	}
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("MANAGEMENT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ManagementPort = n
		}
	}
	if v := os.Getenv("BIND_ADDRESS"); v != "" {
		cfg.BindAddress = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SCORE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ScoreThreshold = f
		}
	}
	if v := os.Getenv("ENABLED_ENTITY_TYPES"); v != "" {
		cfg.EnabledEntityTypes = splitCSV(v)
	}
	if v := os.Getenv("DISABLED_ENTITY_TYPES"); v != "" {
		cfg.DisabledEntityTypes = splitCSV(v)
	}
	if v := os.Getenv("USE_NEURAL_RECOGNIZER"); v == "false" {
		cfg.UseNeuralRecognizer = false
	}
	if v := os.Getenv("NEURAL_MODEL_PATH"); v != "" {
		cfg.NeuralModelPath = v
	}
	if v := os.Getenv("NEURAL_MODEL_NAME"); v != "" {
		cfg.NeuralModelName = v
	}
	if v := os.Getenv("NEURAL_ONNX_LIBRARY"); v != "" {
		cfg.NeuralOnnxLibrary = v
	}
	if v := os.Getenv("USE_GENERATIVE_REVIEWER"); v == "true" {
		cfg.UseGenerativeReviewer = true
	}
	if v := os.Getenv("GENERATIVE_ENDPOINT"); v != "" {
		cfg.GenerativeEndpoint = v
	}
	if v := os.Getenv("GENERATIVE_MODEL"); v != "" {
		cfg.GenerativeModel = v
	}
	if v := os.Getenv("GENERATIVE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GenerativeTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("GENERATIVE_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GenerativeMaxConcurrent = n
		}
	}
	if v := os.Getenv("GENERATIVE_CACHE_FILE"); v != "" {
		cfg.GenerativeCacheFile = v
	}
	if v := os.Getenv("GENERATIVE_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.GenerativeCacheCapacity = n
		}
	}
	if v := os.Getenv("SESSION_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTL = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("SESSION_DURABLE_FILE"); v != "" {
		cfg.SessionDurableFile = v
	}
	if v := os.Getenv("CUSTOM_PATTERNS_FILE"); v != "" {
		cfg.CustomPatternsFile = v
	}
	if v := os.Getenv("MANAGEMENT_TOKEN"); v != "" {
		cfg.ManagementToken = v
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
