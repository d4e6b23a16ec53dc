package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client performs the refresh-token grant against the provider's token
// endpoint. Every call is bounded by the configured timeout.
type Client struct {
	tokenURL     string
	clientID     string
	clientSecret string
	timeout      time.Duration
	httpClient   *http.Client
}

func NewClient(tokenURL, clientID, clientSecret string, timeout time.Duration) *Client {
	return &Client{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		timeout:      timeout,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c *Client) Authorize(ctx context.Context, grant Grant) (*Authorization, error) {
	if grant.RefreshToken == "" {
		return nil, ErrAuthorizationFailed
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", grant.RefreshToken)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and transport faults count as a denial; the caller's
		// taxonomy has no slot for "provider unreachable".
		return nil, ErrAuthorizationFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrAuthorizationFailed
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, ErrAuthorizationFailed
	}
	if tr.AccessToken == "" {
		return nil, ErrAuthorizationFailed
	}

	next := grant.RefreshToken
	if tr.RefreshToken != "" {
		next = tr.RefreshToken
	}
	return &Authorization{
		PrincipalName: grant.PrincipalName,
		RefreshToken:  next,
	}, nil
}
