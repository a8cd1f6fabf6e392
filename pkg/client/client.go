package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/terra-clan/survey-tracker/internal/models"
)

// Client is a Go SDK for the survey-tracker API.
// The session cookie issued by the server is kept in the client's cookie jar,
// so one Client corresponds to one respondent.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
// A client without a cookie jar gets a fresh session on every request.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new survey-tracker client
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// APIError is returned when the server answers with an error envelope
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.StatusCode, e.Code, e.Message)
}

// Progress is the summary returned by progress and submission calls
type Progress struct {
	Categories []models.CategorySummary `json:"categories"`
	Submitted  *models.ResponseRecord   `json:"submitted,omitempty"`
}

// Category returns the summary of a single category
func (p *Progress) Category(category models.Category) (models.CategorySummary, bool) {
	for _, s := range p.Categories {
		if s.Key == category {
			return s, true
		}
	}
	return models.CategorySummary{}, false
}

// Catalog retrieves every category with its levels
func (c *Client) Catalog(ctx context.Context) ([]models.CategoryLevels, error) {
	var data struct {
		Categories []models.CategoryLevels `json:"categories"`
		Total      int                     `json:"total"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/catalog", nil, &data); err != nil {
		return nil, err
	}
	return data.Categories, nil
}

// Category retrieves the levels of one category
func (c *Client) Category(ctx context.Context, category models.Category) (*models.CategoryLevels, error) {
	var data models.CategoryLevels
	if err := c.call(ctx, http.MethodGet, "/api/v1/catalog/"+url.PathEscape(string(category)), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Progress retrieves the session's progress summary
func (c *Client) Progress(ctx context.Context) (*Progress, error) {
	var data Progress
	if err := c.call(ctx, http.MethodGet, "/api/v1/progress", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Survey retrieves the questions of the next level in a category
func (c *Client) Survey(ctx context.Context, category models.Category) (*models.SurveyPage, error) {
	var data models.SurveyPage
	if err := c.call(ctx, http.MethodGet, "/api/v1/survey/"+url.PathEscape(string(category)), nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Submit records answers for the next level in a category
func (c *Client) Submit(ctx context.Context, category models.Category, answers []string) (*Progress, error) {
	body, err := json.Marshal(models.SubmitRequest{Answers: answers})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var data Progress
	if err := c.call(ctx, http.MethodPost, "/api/v1/survey/"+url.PathEscape(string(category)), bytes.NewReader(body), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/health", nil, nil)
}

// call performs a request and decodes the data field of the response envelope into out
func (c *Client) call(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	status, respBody, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		if status >= 400 {
			return fmt.Errorf("HTTP %d: %s", status, string(respBody))
		}
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		apiErr := result.Error
		if apiErr == nil {
			apiErr = &APIError{Code: "unknown", Message: http.StatusText(status)}
		}
		apiErr.StatusCode = status
		return apiErr
	}

	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
