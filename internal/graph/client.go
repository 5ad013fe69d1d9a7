package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"contactreport/internal/apperr"
	"contactreport/internal/logging"
)

// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// TokenProvider hands out access tokens silently from an established session.
// It returns an apperr.CodeAuthenticationRequired error when nobody is signed in.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// APIError is a non-2xx response from Graph.
type APIError struct {
	Status     int
	StatusText string
	Body       string // raw response text, kept for diagnostics
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Graph API call failed: %d %s", e.Status, e.StatusText)
}

// Is lets errors.Is(err, apperr.ErrAPICallFailed) match.
func (e *APIError) Is(target error) bool {
	return target == apperr.ErrAPICallFailed
}

// Client performs single request/response calls against Graph. It does not
// retry, back off or follow @odata.nextLink.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
	log     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = logging.OrNop(l) }
}

func NewClient(tokens TokenProvider, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    http.DefaultClient,
		tokens:  tokens,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Call issues method on endpoint (relative to the base URL) with an optional
// JSON body and returns the raw JSON response. An empty method means GET.
// Successful responses with no body or a non-JSON content type yield "{}".
func (c *Client) Call(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	if method == "" {
		method = http.MethodGet
	}
	if c.tokens == nil {
		return nil, apperr.New(apperr.CodeAuthenticationRequired, "Please log in first.")
	}
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("graph request", zap.String("method", method), zap.String("endpoint", endpoint))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
			Body:       string(data),
		}
		c.log.Error("Graph API error response",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("body", apiErr.Body))
		return nil, apiErr
	}

	if !isJSON(resp.Header.Get("Content-Type")) || len(bytes.TrimSpace(data)) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(data) {
		return nil, apperr.New(apperr.CodeParseFailure,
			fmt.Sprintf("%s %s: response is not valid JSON", method, endpoint))
	}
	return json.RawMessage(data), nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "application/json")
	}
	return mt == "application/json"
}

// statusText returns the reason phrase the server sent, falling back to the
// standard text for the code.
func statusText(resp *http.Response) string {
	code := fmt.Sprintf("%d ", resp.StatusCode)
	if text := strings.TrimPrefix(resp.Status, code); text != resp.Status && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
