// Package meli talks to the Mercado Livre public API with an app-level
// client_credentials token.
package meli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"affiliate-link-resolver/internal/pkg/tokencache"
)

const (
	DefaultBaseURL = "https://api.mercadolibre.com"
	tokenSkew      = 60 * time.Second
	maxBody        = 1 << 20
)

var ErrNotConfigured = errors.New("mercadolivre credentials not configured")

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercadolivre api status %d", e.StatusCode)
}

type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
}

type Client struct {
	cfg    Config
	http   *http.Client
	tokens *tokencache.Cache
}

func NewClient(cfg Config, httpClient *http.Client, tokens *tokencache.Cache) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient, tokens: tokens}
}

func (c *Client) Configured() bool {
	return c != nil && c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) tokenKey() string {
	return "meli:" + c.cfg.ClientID
}

// Token returns a cached app token, refreshing it expires_in-60s after issue.
func (c *Client) Token(ctx context.Context) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	return c.tokens.GetOrFetch(ctx, c.tokenKey(), c.fetchToken)
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return "", 0, fmt.Errorf("mercadolivre token: %w", err)
	}
	if status != http.StatusOK {
		return "", 0, &APIError{StatusCode: status, Body: body}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, fmt.Errorf("decode mercadolivre token: %w", err)
	}
	if tr.AccessToken == "" {
		return "", 0, errors.New("mercadolivre token response has no access_token")
	}
	return tr.AccessToken, time.Duration(tr.ExpiresIn)*time.Second - tokenSkew, nil
}

// GetItem fetches /items/{id}. A 401 drops the cached token and retries once.
func (c *Client) GetItem(ctx context.Context, id string) (json.RawMessage, error) {
	for attempt := 0; attempt < 2; attempt++ {
		tok, err := c.Token(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/items/"+url.PathEscape(id), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Accept", "application/json")

		body, status, err := c.do(req)
		if err != nil {
			return nil, fmt.Errorf("mercadolivre item %s: %w", id, err)
		}
		if status == http.StatusUnauthorized && attempt == 0 {
			c.tokens.Invalidate(c.tokenKey())
			continue
		}
		if status < 200 || status > 299 {
			return nil, &APIError{StatusCode: status, Body: body}
		}
		return body, nil
	}
	return nil, &APIError{StatusCode: http.StatusUnauthorized}
}

func (c *Client) do(req *http.Request) (json.RawMessage, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	if !json.Valid(body) {
		body, _ = json.Marshal(string(body))
	}
	return body, resp.StatusCode, nil
}
