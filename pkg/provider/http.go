// ABOUTME: Remote terminology server provider over a small JSON REST protocol
// ABOUTME: Transient failures are retried with go-retryablehttp

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/nainya/codetree/pkg/hierarchy"
)

// HTTPConfig configures the remote provider
type HTTPConfig struct {
	BaseURL  string
	RetryMax int
	Timeout  time.Duration

	// Transport overrides the underlying round tripper, mainly for tests
	Transport http.RoundTripper
}

// HTTP fetches adjacency and terms from a terminology server.
//
// The server answers:
//
//	GET  {base}/codes/{code}/parents   -> {"codes": [...]}
//	GET  {base}/codes/{code}/children  -> {"codes": [...]}
//	POST {base}/names {"codes": [...]} -> {"names": {code: term}}
//
// A 404 on a code endpoint means the code is unknown.
type HTTP struct {
	baseURL string
	client  *http.Client
}

type codesPayload struct {
	Codes []string `json:"codes"`
}

type namesPayload struct {
	Names map[string]string `json:"names"`
}

// NewHTTP creates a remote provider
func NewHTTP(cfg HTTPConfig, log zerolog.Logger) *HTTP {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 50 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	if cfg.Transport != nil {
		retryClient.HTTPClient.Transport = cfg.Transport
	}
	retryClient.Logger = retryLogger{log: log}

	return &HTTP{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  retryClient.StandardClient(),
	}
}

// ParentsOf implements hierarchy.Provider
func (p *HTTP) ParentsOf(ctx context.Context, code hierarchy.Code) ([]hierarchy.Code, error) {
	return p.adjacent(ctx, code, "parents")
}

// ChildrenOf implements hierarchy.Provider
func (p *HTTP) ChildrenOf(ctx context.Context, code hierarchy.Code) ([]hierarchy.Code, error) {
	return p.adjacent(ctx, code, "children")
}

func (p *HTTP) adjacent(ctx context.Context, code hierarchy.Code, relation string) ([]hierarchy.Code, error) {
	endpoint := fmt.Sprintf("%s/codes/%s/%s", p.baseURL, url.PathEscape(string(code)), relation)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: build request: %w", err)
	}

	var payload codesPayload
	status, err := p.do(req, &payload)
	if status == http.StatusNotFound {
		return nil, &hierarchy.UnknownCodeError{Code: code}
	}
	if err != nil {
		return nil, err
	}

	return hierarchy.Codes(payload.Codes...), nil
}

// NamesOf implements hierarchy.Provider
func (p *HTTP) NamesOf(ctx context.Context, codes []hierarchy.Code) (map[hierarchy.Code]string, error) {
	out := make(map[hierarchy.Code]string, len(codes))
	if len(codes) == 0 {
		return out, nil
	}

	body, err := json.Marshal(codesPayload{Codes: hierarchy.Strings(codes)})
	if err != nil {
		return nil, fmt.Errorf("provider: encode names request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/names", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("provider: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var payload namesPayload
	if _, err := p.do(req, &payload); err != nil {
		return nil, err
	}

	for code, name := range payload.Names {
		out[hierarchy.Code(code)] = name
	}
	return out, nil
}

// do sends req and decodes a 200 response into v. The status code is
// returned even when err is set.
func (p *HTTP) do(req *http.Request, v any) (int, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("provider: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("provider: %s %s: status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("provider: decode %s: %w", req.URL.Path, err)
	}
	return resp.StatusCode, nil
}

// retryLogger routes retryablehttp's leveled logging into zerolog
type retryLogger struct {
	log zerolog.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}
