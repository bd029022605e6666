package steps

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

	"github.com/stack21/flowengine/internal/expressions"
	"github.com/stack21/flowengine/pkg/schema"
)

// HTTPConfig configures the http_request handler.
type HTTPConfig struct {
	MaxResponseBody int64
	DefaultTimeout  time.Duration
	Client          *http.Client // optional; a dedicated client is built when nil
}

const (
	defaultMaxResponseBody = 10 * 1024 * 1024 // 10MB
	defaultHTTPTimeout     = 30 * time.Second
)

// HTTPRequestHandler implements the http_request step.
//
// Config keys:
//   - url (required): may contain ${{ $.path }} references into the data bag
//   - method: default GET
//   - headers: map of header values, interpolated like url
//   - body: strings are sent as is, anything else is JSON-encoded
//   - timeout: milliseconds or a duration string; default from HTTPConfig
//   - fullResponse: when true the output is {status, headers, body} instead
//     of the parsed body alone
type HTTPRequestHandler struct {
	config HTTPConfig
	client *http.Client
}

func NewHTTPRequestHandler(cfg HTTPConfig) *HTTPRequestHandler {
	if cfg.MaxResponseBody <= 0 {
		cfg.MaxResponseBody = defaultMaxResponseBody
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultHTTPTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	return &HTTPRequestHandler{config: cfg, client: client}
}

func (h *HTTPRequestHandler) Type() schema.StepType { return schema.StepTypeHTTPRequest }

func (h *HTTPRequestHandler) Description() string {
	return "Call an HTTP endpoint and continue with its parsed JSON response."
}

func (h *HTTPRequestHandler) Validate(config map[string]any) error {
	rawURL := stringParam(config, "url", "")
	if rawURL == "" {
		return schema.NewError(schema.ErrCodeValidation, "http_request: missing required config 'url'")
	}
	// Templated URLs are checked after interpolation.
	if strings.Contains(rawURL, "${{") {
		return nil
	}
	return checkURL(rawURL)
}

func checkURL(rawURL string) error {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return schema.NewErrorf(schema.ErrCodeValidation, "http_request: invalid url %q", rawURL)
	}
	return nil
}

func (h *HTTPRequestHandler) Execute(ctx context.Context, in Input) (any, error) {
	cfg := in.Config()
	if err := h.Validate(cfg); err != nil {
		return nil, err
	}

	rawURL, err := expressions.Interpolate(stringParam(cfg, "url", ""), in.Data)
	if err != nil {
		return nil, err
	}
	if err := checkURL(rawURL); err != nil {
		return nil, err
	}
	method := strings.ToUpper(stringParam(cfg, "method", http.MethodGet))

	timeout, ok := durationParam(cfg, "timeout", h.config.DefaultTimeout)
	if !ok || timeout <= 0 {
		timeout = h.config.DefaultTimeout
	}

	var bodyReader io.Reader
	var contentType string
	if rawBody, ok := cfg["body"]; ok && rawBody != nil {
		body, err := expressions.InterpolateValue(rawBody, in.Data)
		if err != nil {
			return nil, err
		}
		if s, isString := body.(string); isString {
			bodyReader = strings.NewReader(s)
			contentType = "text/plain; charset=utf-8"
		} else {
			b, err := json.Marshal(body)
			if err != nil {
				return nil, schema.NewError(schema.ErrCodeExecution, "http_request: failed to encode body as JSON").WithCause(err)
			}
			bodyReader = bytes.NewReader(b)
			contentType = "application/json"
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, bodyReader)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeExecution, "http_request: failed to create request").WithCause(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range mapParam(cfg, "headers") {
		val, err := expressions.Interpolate(fmt.Sprintf("%v", v), in.Data)
		if err != nil {
			return nil, err
		}
		req.Header.Set(k, val)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "http_request: request failed: %v", err).WithCause(err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, h.config.MaxResponseBody))
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeExecution, "http_request: failed to read response body").WithCause(err)
	}
	parsed := parseBody(bodyBytes, resp.Header.Get("Content-Type"))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, schema.NewErrorf(schema.ErrCodeExecution, "HTTP error! status: %d", resp.StatusCode).
			WithDetails(map[string]any{
				"status": resp.StatusCode,
				"url":    rawURL,
				"body":   parsed,
			})
	}

	if boolParam(cfg, "fullResponse", false) {
		headers := make(map[string]any, len(resp.Header))
		for k := range resp.Header {
			headers[k] = resp.Header.Get(k)
		}
		return map[string]any{
			"status":  resp.StatusCode,
			"headers": headers,
			"body":    parsed,
		}, nil
	}
	return parsed, nil
}

// parseBody decodes JSON bodies and falls back to the raw text. Servers
// that send JSON as text/plain are common, so the content type is only a
// hint for when decoding is attempted first.
func parseBody(b []byte, contentType string) any {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	var v any
	if strings.Contains(contentType, "json") || json.Valid(b) {
		if err := json.Unmarshal(b, &v); err == nil {
			return v
		}
	}
	return string(b)
}
