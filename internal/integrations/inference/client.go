package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"sentiment-service/internal/domain"
)

// predictRequest is the request shape accepted by the hosted sentiment
// endpoint.
type predictRequest struct {
	Inputs string `json:"inputs"`
}

// prediction is one (label, score) pair; the endpoint returns one list of
// pairs per input text, ordered arbitrarily.
type prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// tokenPayload is the expected JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("inference: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client calls a hosted binary sentiment model. The endpoint URL and API
// token live in the parameter store and are resolved on the first Predict
// call, then reused for the lifetime of the process. That first
// resolution, plus the remote model spin-up it may trigger, is the
// cold-start cost.
type Client struct {
	httpClient *http.Client
	getter     Getter

	cfgOnce  sync.Once
	endpoint string
	token    string
	cfgErr   error
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client backed by the given paramstore.Getter for
// endpoint and token retrieval.
func NewClient(ps Getter, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("inference: paramstore getter must not be nil")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		getter:     ps,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// resolveConfig fetches endpoint and token from the parameter store on the
// first call and returns the cached result on every subsequent call within
// the same process lifetime.
func (c *Client) resolveConfig(ctx context.Context) (string, string, error) {
	c.cfgOnce.Do(func() {
		c.endpoint, c.token, c.cfgErr = fetchConfigFromParamStore(ctx, c.getter)
	})
	return c.endpoint, c.token, c.cfgErr
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// Predict classifies one text and returns the predicted label with the
// model's probability mass on it. No thresholding or calibration is
// applied here.
func (c *Client) Predict(ctx context.Context, text string) (domain.Sentiment, float64, error) {
	endpoint, token, err := c.resolveConfig(ctx)
	if err != nil {
		return "", 0, err
	}

	body, err := json.Marshal(predictRequest{Inputs: text})
	if err != nil {
		return "", 0, fmt.Errorf("inference: marshal request: %w", err)
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if reqErr != nil {
		return "", 0, fmt.Errorf("inference: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	raw, err := c.doJSONRequest(req, endpoint)
	if err != nil {
		return "", 0, fmt.Errorf("inference: request failed: %w", err)
	}

	var payload [][]prediction
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return "", 0, fmt.Errorf("inference: decode response: %w", decErr)
	}
	if len(payload) == 0 || len(payload[0]) == 0 {
		return "", 0, errors.New("inference: no predictions in response")
	}
	return pickLabel(payload[0])
}

// pickLabel selects the highest-scoring class from one prediction list.
func pickLabel(preds []prediction) (domain.Sentiment, float64, error) {
	best := preds[0]
	for _, p := range preds[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	var label domain.Sentiment
	switch best.Label {
	case string(domain.SentimentPositive), "LABEL_1":
		label = domain.SentimentPositive
	case string(domain.SentimentNegative), "LABEL_0":
		label = domain.SentimentNegative
	default:
		return "", 0, fmt.Errorf("inference: unknown label %q", best.Label)
	}
	if best.Score < 0 || best.Score > 1 {
		return "", 0, fmt.Errorf("inference: score %v out of range", best.Score)
	}
	return label, best.Score, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func fetchConfigFromParamStore(ctx context.Context, getter Getter) (string, string, error) {
	if getter == nil {
		return "", "", errors.New("inference: paramstore getter is nil")
	}

	endpoint, err := getter.GetParameter(ctx, "model-endpoint")
	if err != nil {
		return "", "", fmt.Errorf("inference: fetch model endpoint: %w", err)
	}
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", "", errors.New("inference: model endpoint is empty")
	}

	raw, err := getter.GetParameter(ctx, "model-token")
	if err != nil {
		return "", "", fmt.Errorf("inference: fetch model token: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", "", fmt.Errorf("inference: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", "", errors.New("inference: API token is empty")
	}
	return endpoint, tp.Token, nil
}
