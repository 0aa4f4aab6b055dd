// Package httptool provides a generic HTTP-request tool for agents that
// need to call REST APIs or webhooks.
package httptool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Tool makes outbound HTTP requests on the agent's behalf. Supports GET
// and POST; it carries a default 10s network-tool timeout applied by
// the caller via context, not internally.
type Tool struct {
	client          *http.Client
	allowedPatterns []string
}

// New returns an HTTP tool with a client that has no built-in timeout;
// callers drive timeouts via context per the executor's suspension model.
// allowedPatterns, if non-empty, restricts requests to URLs matching at
// least one doublestar glob (e.g. "https://api.example.com/**"); an
// empty list allows any URL.
func New(allowedPatterns ...string) *Tool {
	return &Tool{client: &http.Client{}, allowedPatterns: allowedPatterns}
}

func (t *Tool) urlAllowed(urlStr string) bool {
	if len(t.allowedPatterns) == 0 {
		return true
	}
	for _, pattern := range t.allowedPatterns {
		if ok, err := doublestar.Match(pattern, urlStr); err == nil && ok {
			return true
		}
	}
	return false
}

func (t *Tool) Name() string { return "http_request" }

func (t *Tool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	urlStr, ok := input["url"].(string)
	if !ok || urlStr == "" {
		return nil, fmt.Errorf("httptool: url parameter required (string)")
	}
	if !t.urlAllowed(urlStr) {
		return nil, fmt.Errorf("httptool: url %q is not permitted by the configured allowlist", urlStr)
	}

	method := "GET"
	if m, ok := input["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	if method != "GET" && method != "POST" {
		return nil, fmt.Errorf("httptool: unsupported method %q", method)
	}

	var body io.Reader
	if bodyStr, ok := input["body"].(string); ok && bodyStr != "" {
		body = bytes.NewBufferString(bodyStr)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, fmt.Errorf("httptool: build request: %w", err)
	}
	if headers, ok := input["headers"].(map[string]interface{}); ok {
		for key, value := range headers {
			if s, ok := value.(string); ok {
				req.Header.Set(key, s)
			}
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httptool: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httptool: read response: %w", err)
	}

	respHeaders := make(map[string]interface{}, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) == 1 {
			respHeaders[key] = values[0]
		} else {
			respHeaders[key] = values
		}
	}

	return map[string]interface{}{
		"status_code": resp.StatusCode,
		"headers":     respHeaders,
		"body":        string(respBody),
	}, nil
}

// DefaultTimeout is the network-tool default per the concurrency model.
const DefaultTimeout = 10 * time.Second
