// Package client talks to a ledgerd HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/ledger"
	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

// Client is an HTTP client with retry and timeout support for the ledger API
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logrus.Logger
}

// ClientConfig holds configuration for the ledger client
type ClientConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *logrus.Logger
}

// NewClient creates a new ledger client with retry support
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       cfg.Logger,
	}
}

// call performs one API request with retries. Transport failures, 409, 429 and
// 5xx responses are retried; any other error status is returned as *APIError.
// Resubmitting a transaction is safe because the ledger rejects a replayed
// signature.
func (c *Client) call(ctx context.Context, method, path string, body, result any) error {
	var data []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		data = b
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryBackoff

	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		err := c.doRequest(ctx, method, path, data, result)
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(c.maxRetries+1)),
		backoff.WithNotify(func(err error, d time.Duration) {
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": d,
				"path":    path,
			}).WithError(err).Debug("retrying ledger call")
		}),
	)
	return err
}

func (c *Client) doRequest(ctx context.Context, method, path string, data []byte, result any) error {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Name == "" {
			apiErr.Name = http.StatusText(resp.StatusCode)
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.call(ctx, http.MethodGet, "/v1/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitTransaction sends a base64-encoded signed transaction.
func (c *Client) SubmitTransaction(ctx context.Context, encoded string) (*TransactionResponse, error) {
	var out TransactionResponse
	req := map[string]string{"transaction": encoded}
	if err := c.call(ctx, http.MethodPost, "/v1/transactions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Account(ctx context.Context, key solana.PublicKey) (*AccountResponse, error) {
	var out AccountResponse
	if err := c.call(ctx, http.MethodGet, "/v1/accounts/"+key.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Pool(ctx context.Context, key solana.PublicKey) (*ledger.PoolAccount, error) {
	var out ledger.PoolAccount
	if err := c.call(ctx, http.MethodGet, "/v1/pools/"+key.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Launch(ctx context.Context, key solana.PublicKey) (*ledger.LaunchAccount, error) {
	var out ledger.LaunchAccount
	if err := c.call(ctx, http.MethodGet, "/v1/launches/"+key.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Contribution(ctx context.Context, key solana.PublicKey) (*ledger.ContributionAccount, error) {
	var out ledger.ContributionAccount
	if err := c.call(ctx, http.MethodGet, "/v1/contributions/"+key.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Config(ctx context.Context) (*ledger.ConfigAccount, error) {
	var out ledger.ConfigAccount
	if err := c.call(ctx, http.MethodGet, "/v1/config", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Quote previews a swap of amountIn against pool.
func (c *Client) Quote(ctx context.Context, pool solana.PublicKey, amountIn uint64, aToB bool, slippageBps uint16) (*QuoteResponse, error) {
	q := url.Values{}
	q.Set("amountIn", strconv.FormatUint(amountIn, 10))
	q.Set("aToB", strconv.FormatBool(aToB))
	q.Set("slippageBps", strconv.FormatUint(uint64(slippageBps), 10))

	var out QuoteResponse
	if err := c.call(ctx, http.MethodGet, "/v1/pools/"+pool.String()+"/quote?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RecentEvents(ctx context.Context, limit int) (*EventsResponse, error) {
	var out EventsResponse
	path := "/v1/events/recent?limit=" + strconv.Itoa(limit)
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetFlag creates or updates a policy flag.
func (c *Client) SetFlag(ctx context.Context, key string, value bool) error {
	req := map[string]any{"key": key, "value": value}
	return c.call(ctx, http.MethodPost, "/v1/flags", req, nil)
}
