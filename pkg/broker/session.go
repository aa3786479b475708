package broker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle state of a Session
type State int

const (
	StateUnauthenticated State = iota
	StateAcquiring
	StateAuthenticated
	StateRefreshing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAcquiring:
		return "acquiring"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Failure describes the last failed fetch or refresh
type Failure struct {
	StatusCode int // zero for non-HTTP failures
	Body       string
	Err        error
	At         time.Time
}

// StateObserver is told about every state transition
type StateObserver interface {
	RecordBrokerState(state string)
}

// Session caches one process-wide token and renews it on demand.
// Concurrent callers share a single in-flight fetch or refresh.
type Session struct {
	client       *Client
	clientID     string
	clientSecret string
	margin       time.Duration
	logger       *logrus.Logger
	observer     StateObserver
	now          func() time.Time

	mu          sync.RWMutex
	state       State
	token       *Token
	lastFailure *Failure

	group singleflight.Group
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithExpiryMargin sets how early a token is renewed
func WithExpiryMargin(margin time.Duration) SessionOption {
	return func(s *Session) { s.margin = margin }
}

// WithSessionLogger sets the logger
func WithSessionLogger(logger *logrus.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithStateObserver sets the state transition observer
func WithStateObserver(observer StateObserver) SessionOption {
	return func(s *Session) { s.observer = observer }
}

// NewSession creates an unauthenticated session for the given client identity
func NewSession(client *Client, clientID, clientSecret string, opts ...SessionOption) *Session {
	s := &Session{
		client:       client,
		clientID:     clientID,
		clientSecret: clientSecret,
		margin:       DefaultExpiryMargin,
		logger:       client.logger,
		now:          time.Now,
		state:        StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.observer != nil {
		s.observer.RecordBrokerState(s.state.String())
	}
	return s
}

// Token returns a snapshot of a usable token, fetching or refreshing as needed
func (s *Session) Token(ctx context.Context) (*Token, error) {
	if tok := s.current(); tok != nil {
		return tok, nil
	}
	return s.renew(ctx, false)
}

// Refresh forces a renewal of the held token
func (s *Session) Refresh(ctx context.Context) (*Token, error) {
	return s.renew(ctx, true)
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastFailure returns the most recent failure, or nil
func (s *Session) LastFailure() *Failure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastFailure == nil {
		return nil
	}
	f := *s.lastFailure
	return &f
}

// TokenSource adapts the session for oauth2.Transport
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &sessionTokenSource{ctx: ctx, session: s}
}

type sessionTokenSource struct {
	ctx     context.Context
	session *Session
}

func (ts *sessionTokenSource) Token() (*oauth2.Token, error) {
	tok, err := ts.session.Token(ts.ctx)
	if err != nil {
		return nil, err
	}
	return tok.ToOAuth2Token(), nil
}

// current returns the held token if it is still outside the expiry margin
func (s *Session) current() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil || s.token.IsExpiredWithMargin(s.now(), s.margin) {
		return nil
	}
	return s.token.clone()
}

// Flight keys. Forced renewals never join an on-demand flight, which may
// answer with the held token.
const (
	flightToken   = "token"
	flightRefresh = "refresh"
)

// renew runs one shared flight. Callers stop waiting when their own context
// ends; the flight itself is bounded by the client timeout.
func (s *Session) renew(ctx context.Context, force bool) (*Token, error) {
	flightCtx := context.WithoutCancel(ctx)

	key := flightToken
	if force {
		key = flightRefresh
	}

	ch := s.group.DoChan(key, func() (any, error) {
		if !force {
			if tok := s.current(); tok != nil {
				return tok, nil
			}
		}

		s.mu.RLock()
		held := s.token
		s.mu.RUnlock()

		if held != nil && held.RefreshToken != "" {
			return s.refresh(flightCtx, held)
		}
		return s.acquire(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Token).clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) acquire(ctx context.Context) (*Token, error) {
	s.transition(StateAcquiring)

	tok, err := s.client.FetchToken(ctx, s.clientID, s.clientSecret)
	if err != nil {
		s.fail(err)
		return nil, err
	}

	s.authenticated(tok)
	s.logger.WithField("expires_in", tok.ExpiresIn).Info("Acquired platform token")
	return tok.clone(), nil
}

// refresh renews with the held refresh token, falling back to a full fetch
// when the server rejects it
func (s *Session) refresh(ctx context.Context, held *Token) (*Token, error) {
	s.transition(StateRefreshing)

	tok, err := s.client.RefreshToken(ctx, s.clientID, held.RefreshToken)
	if err != nil {
		var authErr *AuthFailure
		if errors.As(err, &authErr) {
			s.logger.WithError(err).Warn("Token refresh rejected, fetching a new token")
			return s.acquire(ctx)
		}
		s.fail(err)
		return nil, err
	}

	if tok.RefreshToken == "" {
		tok.RefreshToken = held.RefreshToken
	}
	s.authenticated(tok)
	s.logger.WithField("expires_in", tok.ExpiresIn).Debug("Refreshed platform token")
	return tok.clone(), nil
}

func (s *Session) authenticated(tok *Token) {
	s.mu.Lock()
	s.token = tok.clone()
	s.state = StateAuthenticated
	s.mu.Unlock()
	s.observe(StateAuthenticated)
}

func (s *Session) fail(err error) {
	failure := &Failure{Err: err, At: s.now()}
	var authErr *AuthFailure
	if errors.As(err, &authErr) {
		failure.StatusCode = authErr.StatusCode
		failure.Body = authErr.Body
	}

	s.mu.Lock()
	s.token = nil
	s.state = StateFailed
	s.lastFailure = failure
	s.mu.Unlock()
	s.observe(StateFailed)

	s.logger.WithError(err).WithField("status_code", failure.StatusCode).Error("Platform token request failed")
}

func (s *Session) transition(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.observe(state)
}

func (s *Session) observe(state State) {
	if s.observer != nil {
		s.observer.RecordBrokerState(state.String())
	}
}
