package api

import (
	"net/http"

	"github.com/platinummonkey/vdjaccounts/pkg/audit"
	"github.com/platinummonkey/vdjaccounts/pkg/httputil"
)

const tokenRealm = "token"

// fetchToken handles POST /token with client_id:client_secret Basic credentials
func (s *Server) fetchToken(w http.ResponseWriter, r *http.Request) {
	clientID, clientSecret, ok := httputil.BasicAuthOrError(w, r, tokenRealm)
	if !ok {
		return
	}

	token, err := s.tokens.FetchToken(r.Context(), clientID, clientSecret)
	s.recordAudit(r, audit.EventTypeTokenFetch, clientID, err)
	if err != nil {
		s.writeError(w, r, "fetch_token", err)
		return
	}

	_ = httputil.WriteSuccess(w, http.StatusOK, newTokenResponse(token))
}

// refreshToken handles PUT /token with client_id:refresh_token Basic credentials.
// A refresh_token form field, when present, takes precedence over the Basic password.
func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	clientID, refresh, ok := httputil.BasicAuthOrError(w, r, tokenRealm)
	if !ok {
		return
	}
	if fromForm, err := httputil.ParseFormValue(r, "refresh_token"); err == nil {
		refresh = fromForm
	}

	token, err := s.tokens.RefreshToken(r.Context(), clientID, refresh)
	s.recordAudit(r, audit.EventTypeTokenRefresh, clientID, err)
	if err != nil {
		s.writeError(w, r, "refresh_token", err)
		return
	}

	_ = httputil.WriteSuccess(w, http.StatusOK, newTokenResponse(token))
}
