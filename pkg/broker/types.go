package broker

import (
	"time"

	"golang.org/x/oauth2"
)

// DefaultExpiryMargin is how long before expiry a token is treated as stale
const DefaultExpiryMargin = 30 * time.Second

// Token is a bearer token issued by the authorization server
type Token struct {
	TokenType    string    `json:"token_type"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int       `json:"expires_in"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"-"`
}

// IsExpiredWithMargin reports whether the token expires within margin of now.
// A zero ExpiresAt, as on tokens not built from a server answer, never expires.
func (t *Token) IsExpiredWithMargin(now time.Time, margin time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(t.ExpiresAt)
}

// ToOAuth2Token converts to the golang.org/x/oauth2 representation
func (t *Token) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt,
	}
}

func (t *Token) clone() *Token {
	c := *t
	return &c
}

// envelope is the response wrapper used by the authorization server
type envelope struct {
	Status string `json:"status"`
	Result any    `json:"result"`
}

// tokenResult uses pointers so missing required fields can be detected
type tokenResult struct {
	TokenType    *string  `json:"token_type"`
	AccessToken  *string  `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    *float64 `json:"expires_in"`
	Scope        string   `json:"scope"`
}
