package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/megamake/roleplay/internal/platform/policy"
)

// DefaultOpenAIBaseURL is used when OpenAIClient.BaseURL is empty.
const DefaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIClient is the shared HTTP plumbing of the OpenAI adapters.
// The credential is captured once at construction; adapters never read the
// environment themselves.
type OpenAIClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewOpenAIClient returns a client with a bounded per-request timeout.
func NewOpenAIClient(baseURL, apiKey string, timeout time.Duration) OpenAIClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return OpenAIClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (c OpenAIClient) NetworkHosts() []string {
	if h := policy.HostOf(c.baseURL()); h != "" {
		return []string{h}
	}
	return nil
}

func (c OpenAIClient) baseURL() string {
	if v := strings.TrimSpace(c.BaseURL); v != "" {
		return strings.TrimRight(v, "/")
	}
	return DefaultOpenAIBaseURL
}

func (c OpenAIClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 120 * time.Second}
}

func (c OpenAIClient) apiKey() (string, error) {
	k := strings.TrimSpace(c.APIKey)
	if k == "" {
		return "", fmt.Errorf("openai: missing API key")
	}
	return k, nil
}

// do sends req with the bearer credential and returns the body of a 2xx
// response (up to max bytes) together with the response headers.
func (c OpenAIClient) do(req *http.Request, what string, max int64) ([]byte, http.Header, error) {
	key, err := c.apiKey()
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("openai: %s request failed: %w", what, err)
	}
	defer resp.Body.Close()

	body, err := readAllLimit(resp.Body, max)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.Header, fmt.Errorf("openai: %s failed: status=%d body=%s", what, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err != nil {
		return nil, resp.Header, fmt.Errorf("openai: %s read failed: %w", what, err)
	}
	return body, resp.Header, nil
}

func (c OpenAIClient) postJSON(ctx context.Context, path, what string, payload any, accept string, max int64) ([]byte, http.Header, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("openai: marshal %s request: %w", what, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+path, bytes.NewReader(b))
	if err != nil {
		return nil, nil, fmt.Errorf("openai: build %s request: %w", what, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	return c.do(req, what, max)
}

func readAllLimit(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		max = 1_000_000
	}
	return io.ReadAll(io.LimitReader(r, max))
}
