package api

import (
	"github.com/platinummonkey/vdjaccounts/pkg/accounts"
	"github.com/platinummonkey/vdjaccounts/pkg/broker"
)

// AccountResponse is the public view of an account. The credential never leaves the service.
type AccountResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	Country   string `json:"country,omitempty"`
	Date      string `json:"date"`
}

func newAccountResponse(a *accounts.Account) AccountResponse {
	return AccountResponse{
		Username:  a.Username,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Country:   a.Country,
		Date:      a.Date(),
	}
}

// AuthenticateRequest is the body of POST /user/authenticate
type AuthenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ResetRequest is the body of POST /user/reset-password
type ResetRequest struct {
	Email string `json:"email"`
}

// ResetVerifyRequest is the body of POST /user/reset-password/verify
type ResetVerifyRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// TokenResponse mirrors the authorization server's token result
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

func newTokenResponse(t *broker.Token) TokenResponse {
	return TokenResponse{
		TokenType:    t.TokenType,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
		Scope:        t.Scope,
	}
}
