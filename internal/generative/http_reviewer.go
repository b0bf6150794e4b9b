package generative

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pii-redaction-engine/internal/logger"
)

func cacheKey(text string, alreadyFound []string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	for _, s := range alreadyFound {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HTTPReviewer queries a generative model over HTTP for candidate PII spans:
// JSON body, context.WithTimeout, single synchronous call, speaking the
// span-proposal contract: the model returns verbatim substrings with an
// entity type and offsets, and is not asked for a confidence.
type HTTPReviewer struct {
	endpoint string
	model    string
	timeout  time.Duration
	client   *http.Client
	cache    responseCache
	log      *logger.Logger
	disabled bool
	sem      chan struct{}
}

// NewHTTPReviewer constructs an HTTPReviewer. If cachePath is empty, an
// in-memory cache is used; otherwise responses are cached in a bbolt
// database bounded by an S3-FIFO hot layer of cacheCapacity entries (see
// cache.go, s3fifo.go). IsAvailable returns true whenever endpoint and
// model are both non-empty; the endpoint is not contacted to check that it
// is reachable. maxConcurrent bounds the number of in-flight
// requests to the generative backend; values <= 0 default to 1, since the
// backend is typically a single local model server that serializes
// inference anyway.
func NewHTTPReviewer(endpoint, model string, timeout time.Duration, cachePath string, cacheCapacity int, maxConcurrent int, log *logger.Logger) *HTTPReviewer {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &HTTPReviewer{
		endpoint: strings.TrimSuffix(endpoint, "/") + "/api/generate",
		model:    model,
		timeout:  timeout,
		client:   http.DefaultClient,
		log:      log,
		disabled: endpoint == "" || model == "",
		cache:    newResponseCache(cachePath, cacheCapacity, log),
		sem:      make(chan struct{}, maxConcurrent),
	}
}

// IsAvailable reports whether the reviewer was configured with a non-empty
// endpoint and model name. It does not contact the endpoint.
func (r *HTTPReviewer) IsAvailable() bool {
	return !r.disabled
}

// Close releases the response cache.
func (r *HTTPReviewer) Close() error {
	return r.cache.Close()
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Review asks the generative backend to propose additional PII spans over
// text, excluding substrings already found by earlier layers. Any failure —
// network error, malformed response, unparseable JSON — yields an empty
// result and a nil error: the caller's fail-open policy is implemented here,
// not pushed onto callers.
func (r *HTTPReviewer) Review(ctx context.Context, text string, alreadyFound []string) ([]Candidate, error) {
	if r.disabled {
		return nil, nil
	}

	key := cacheKey(text, alreadyFound)
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, nil
	}
	defer func() { <-r.sem }()

	candidates, err := r.query(ctx, text, alreadyFound)
	if err != nil {
		if r.log != nil {
			r.log.Warnf("review", "generative review failed, proceeding without it: %v", err)
		}
		return nil, nil
	}

	r.cache.Set(key, candidates)
	return candidates, nil
}

func (r *HTTPReviewer) query(ctx context.Context, text string, alreadyFound []string) ([]Candidate, error) {
	prompt := buildPrompt(text, alreadyFound)

	reqBody, err := json.Marshal(generateRequest{
		Model:  r.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("encode generative request: %w", err)
	}

	timeout := r.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create generative request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req) // #nosec G704 -- endpoint from trusted config, not user input
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on HTTP response body

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, fmt.Errorf("generative response parse error: %w", err)
	}

	raw := strings.TrimSpace(genResp.Response)
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON array in generative response")
	}
	raw = raw[start : end+1]

	var candidates []Candidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil, fmt.Errorf("candidate parse error: %w", err)
	}

	verified := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Start < 0 || c.End > len(text) || c.Start >= c.End {
			continue
		}
		if text[c.Start:c.End] != c.Text {
			continue
		}
		verified = append(verified, c)
	}
	return verified, nil
}

func buildPrompt(text string, alreadyFound []string) string {
	already := "none"
	if len(alreadyFound) > 0 {
		already = strings.Join(alreadyFound, ", ")
	}
	return fmt.Sprintf(`Find personally identifiable information in the text below that is NOT already in this list of known values: %s

Return ONLY a JSON array. Each item must have:
- "text": the exact substring as it appears in the text below
- "entity_type": an uppercase symbolic tag (PERSON, ORGANIZATION, LOCATION, or similar)
- "start": the 0-based byte offset where the substring begins
- "end": the 0-based byte offset where the substring ends

Text:
%s

Return ONLY the JSON array, no explanation. Example: [{"text":"Jane Doe","entity_type":"PERSON","start":0,"end":8}]`,
		already, text)
}
