package broker

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// DefaultTimeout bounds every call to the authorization server
	DefaultTimeout = 30 * time.Second

	// DefaultMaxAttempts is the total number of tries for network failures
	DefaultMaxAttempts = 3

	// DefaultBackoffBase is the first retry delay, doubled per retry
	DefaultBackoffBase = 200 * time.Millisecond

	// DefaultScope is requested when no scope is configured
	DefaultScope = "PRODUCTION"

	maxResponseBytes = 1 << 20
)

// Recorder receives per-request outcomes, typically for metrics
type Recorder interface {
	RecordBrokerRequest(operation, outcome string, duration time.Duration)
}

// Client talks to the authorization server's /token endpoint. It holds no token state.
type Client struct {
	tokenURL    string
	scope       string
	httpClient  *http.Client
	timeout     time.Duration
	insecure    bool
	maxAttempts uint64
	backoffBase time.Duration
	logger      *logrus.Logger
	recorder    Recorder
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default instrumented client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithScope sets the scope sent with every token request
func WithScope(scope string) Option {
	return func(c *Client) { c.scope = scope }
}

// WithTimeout sets the per-request timeout of the default client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetry sets the total attempts and first backoff delay for network failures
func WithRetry(maxAttempts uint64, base time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if base > 0 {
			c.backoffBase = base
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRecorder sets the request outcome recorder
func WithRecorder(recorder Recorder) Option {
	return func(c *Client) { c.recorder = recorder }
}

// WithInsecureSkipVerify disables certificate verification on the default
// client. Only for talking to test servers.
func WithInsecureSkipVerify() Option {
	return func(c *Client) { c.insecure = true }
}

// NewClient creates a client for the authorization server at baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid broker URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return nil, fmt.Errorf("invalid broker URL %q: scheme must be http or https", baseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid broker URL %q: missing host", baseURL)
	}

	c := &Client{
		tokenURL:    strings.TrimSuffix(baseURL, "/") + "/token",
		scope:       DefaultScope,
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
		backoffBase: DefaultBackoffBase,
		logger:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = c.defaultHTTPClient()
	} else if c.insecure {
		c.logger.Warn("Insecure TLS requested but a custom HTTP client was supplied; leaving its TLS settings alone")
	}

	return c, nil
}

func (c *Client) defaultHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	if c.insecure {
		transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec // explicit opt-in for test servers
		c.logger.WithField("url", c.tokenURL).
			Error("TLS CERTIFICATE VERIFICATION IS DISABLED for the authorization server. Never use this outside tests.")
	}

	return &http.Client{
		Timeout:   c.timeout,
		Transport: otelhttp.NewTransport(transport),
	}
}

// FetchToken obtains a new token with client credentials
func (c *Client) FetchToken(ctx context.Context, clientID, clientSecret string) (*Token, error) {
	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {c.scope},
	}
	return c.do(ctx, "fetch", http.MethodPost, clientID, clientSecret, form)
}

// RefreshToken exchanges a refresh token for a new token.
// The refresh token is also the Basic auth password, as the platform requires.
func (c *Client) RefreshToken(ctx context.Context, clientID, refreshToken string) (*Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"scope":         {c.scope},
	}
	return c.do(ctx, "refresh", http.MethodPut, clientID, refreshToken, form)
}

func (c *Client) do(ctx context.Context, operation, method, username, password string, form url.Values) (*Token, error) {
	start := time.Now()
	backoff := retry.WithMaxRetries(c.maxAttempts-1, retry.NewExponential(c.backoffBase))

	var token *Token
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		t, err := c.attempt(ctx, method, username, password, form)
		if err != nil {
			var netErr *NetworkError
			if errors.As(err, &netErr) {
				c.logger.WithError(err).WithFields(logrus.Fields{
					"operation": operation,
					"attempt":   attempt,
				}).Warn("Token request failed, retrying")
				return retry.RetryableError(err)
			}
			return err
		}
		token = t
		return nil
	})

	if c.recorder != nil {
		c.recorder.RecordBrokerRequest(operation, outcome(err), time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (c *Client) attempt(ctx context.Context, method, username, password string, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(username, password)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("token request cancelled: %w", ctxErr)
		}
		return nil, &NetworkError{Op: method, URL: c.tokenURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Op: method, URL: c.tokenURL, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		failure := &AuthFailure{StatusCode: resp.StatusCode, Body: string(body)}
		var env envelope
		if json.Unmarshal(body, &env) == nil {
			failure.Status = env.Status
		}
		return nil, failure
	}

	return parseToken(resp.StatusCode, body)
}

// parseToken decodes {"status":..., "result":{...}} into a Token
func parseToken(statusCode int, body []byte) (*Token, error) {
	var env struct {
		Status string          `json:"status"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if env.Status != "" && env.Status != "success" {
		return nil, &AuthFailure{StatusCode: statusCode, Status: env.Status, Body: string(body)}
	}

	var result tokenResult
	if len(env.Result) == 0 {
		return nil, fmt.Errorf("%w: missing result", ErrMalformedResponse)
	}
	if err := json.Unmarshal(env.Result, &result); err != nil {
		return nil, fmt.Errorf("%w: result: %v", ErrMalformedResponse, err)
	}

	switch {
	case result.AccessToken == nil || *result.AccessToken == "":
		return nil, fmt.Errorf("%w: missing access_token", ErrMalformedResponse)
	case result.TokenType == nil || *result.TokenType == "":
		return nil, fmt.Errorf("%w: missing token_type", ErrMalformedResponse)
	case result.ExpiresIn == nil:
		return nil, fmt.Errorf("%w: missing expires_in", ErrMalformedResponse)
	case *result.ExpiresIn < 0:
		return nil, fmt.Errorf("%w: negative expires_in", ErrMalformedResponse)
	}

	token := &Token{
		TokenType:    *result.TokenType,
		AccessToken:  *result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    int(*result.ExpiresIn),
		Scope:        result.Scope,
	}
	// expires_in 0 means the token is already spent
	token.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return token, nil
}

func outcome(err error) string {
	var authErr *AuthFailure
	var netErr *NetworkError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &authErr):
		return "rejected"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.As(err, &netErr):
		return "network"
	default:
		return "error"
	}
}
