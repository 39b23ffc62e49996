// Package binkclient is a Go client for the binkd REST API.
package binkclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"sync"
	"time"
)

// DefaultHTTPTimeout is used by clients created without a custom http.Client.
// Action execution involves an LLM round trip, so it is longer than a plain
// REST timeout.
const DefaultHTTPTimeout = 90 * time.Second

// Client wraps the HTTP interactions with a binkd server.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu       sync.RWMutex
	apiToken string
}

// Action describes an action exposed by the server.
type Action struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Examples     []string `json:"examples"`
}

// Result is the outcome of invoking an action. OK is false when the server
// answered with its fallback text.
type Result struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// Execution is a persisted execution record.
type Execution struct {
	ID             int64  `json:"id"`
	CorrelationID  string `json:"correlation_id"`
	Action         string `json:"action"`
	Input          string `json:"input"`
	Output         string `json:"output"`
	Status         string `json:"status"`
	ErrorCode      string `json:"error_code,omitempty"`
	DurationMillis int64  `json:"duration_ms"`
	CreatedAt      int64  `json:"created_at"`
}

// APIError represents a non-successful response.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("binkd api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the given base URL. When httpClient is
// nil, a default client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", rawURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// SetAPIToken sets the bearer token sent with every /api request.
func (c *Client) SetAPIToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiToken = token
}

// ListActions returns the actions registered on the server.
func (c *Client) ListActions(ctx context.Context) ([]Action, error) {
	var out struct {
		Actions []Action `json:"actions"`
	}
	if err := c.get(ctx, "/api/v1/actions", nil, &out); err != nil {
		return nil, err
	}
	return out.Actions, nil
}

// Invoke runs the named action with a free-form text instruction. A fallback
// reply is returned as a Result with OK set to false and a nil error.
func (c *Client) Invoke(ctx context.Context, name, text string) (Result, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/actions/"+url.PathEscape(name), nil, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result Result
	if err := c.do(req, &result, http.StatusBadGateway); err != nil {
		return Result{}, err
	}
	return result, nil
}

// Executions returns up to limit of the most recent execution records.
func (c *Client) Executions(ctx context.Context, limit int) ([]Execution, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Executions []Execution `json:"executions"`
	}
	if err := c.get(ctx, "/api/v1/executions", query, &out); err != nil {
		return nil, err
	}
	return out.Executions, nil
}

// Healthy reports whether the server answers its health probe.
func (c *Client) Healthy(ctx context.Context) error {
	return c.get(ctx, "/healthz", nil, nil)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint), RawQuery: query.Encode()}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.mu.RLock()
	token := c.apiToken
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do decodes the body into out for 2xx responses and for any status listed in
// accept.
func (c *Client) do(req *http.Request, out any, accept ...int) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	accepted := resp.StatusCode < 300
	for _, code := range accept {
		if resp.StatusCode == code {
			accepted = true
		}
	}
	if !accepted {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
