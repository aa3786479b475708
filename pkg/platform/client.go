// Package platform registers account profiles on the external science platform.
package platform

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/vdjaccounts/pkg/accounts"
	"github.com/platinummonkey/vdjaccounts/pkg/broker"
)

// DefaultTimeout bounds every platform call
const DefaultTimeout = 30 * time.Second

// RequestError is returned when the platform answers with a failure
type RequestError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("platform request failed: %d %s", e.StatusCode, e.Status)
}

// TokenProvider supplies the bearer token for one call. *broker.Session
// satisfies it.
type TokenProvider interface {
	Token(ctx context.Context) (*broker.Token, error)
}

// Client calls the platform API with the service's bearer token
type Client struct {
	baseURL     string
	serviceUser string
	tokens      TokenProvider
	httpClient  *http.Client
	logger      *logrus.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a platform client. Bearer tokens are taken from tokens
// with the caller's context on every call.
func NewClient(baseURL, serviceUser string, tokens TokenProvider, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "https" && parsed.Scheme != "http") {
		return nil, fmt.Errorf("invalid platform URL %q", baseURL)
	}
	if serviceUser == "" {
		return nil, fmt.Errorf("platform service user is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("platform token provider is required")
	}

	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		serviceUser: serviceUser,
		tokens:      tokens,
		logger:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		base.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		c.httpClient = &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(base),
		}
	}
	return c, nil
}

type profileRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Country   string `json:"country"`
}

type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// RegisterProfile creates the platform user matching account
func (c *Client) RegisterProfile(ctx context.Context, account *accounts.Account) error {
	payload, err := json.Marshal(profileRequest{
		Username:  account.Username,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Country:   account.Country,
	})
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain platform token: %w", err)
	}

	endpoint := fmt.Sprintf("%s/profiles/%s/users/", c.baseURL, url.PathEscape(c.serviceUser))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	tok.ToOAuth2Token().SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read profile response: %w", err)
	}

	var parsed response
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || parsed.Status != "success" {
		return &RequestError{StatusCode: resp.StatusCode, Status: parsed.Status, Body: string(body)}
	}

	c.logger.WithField("username", account.Username).Debug("Registered platform profile")
	return nil
}
