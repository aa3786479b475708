package api

import (
	"net/http"

	"github.com/platinummonkey/vdjaccounts/pkg/accounts"
	"github.com/platinummonkey/vdjaccounts/pkg/audit"
	"github.com/platinummonkey/vdjaccounts/pkg/httputil"
	"github.com/platinummonkey/vdjaccounts/pkg/middleware"
)

// resetRequestedMessage is returned whether or not the address is registered
const resetRequestedMessage = "If the address is registered, a password reset link has been sent"

// register handles POST /user
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req accounts.RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	account, err := s.accounts.Register(r.Context(), req)
	if err != nil {
		s.recordAudit(r, audit.EventTypeAccountRegister, req.Username, err)
		s.writeError(w, r, "register", err)
		return
	}
	s.recordAudit(r, audit.EventTypeAccountRegister, account.Username, nil)

	_ = httputil.WriteCreated(w, newAccountResponse(account))
}

// authenticate handles POST /user/authenticate
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) {
	var req AuthenticateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w,
		httputil.RequireNonEmpty(req.Username, "username"),
		httputil.RequireNonEmpty(req.Password, "password"),
	) {
		return
	}

	account, err := s.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		// unknown user and wrong password look the same to the caller
		if statusFor(err) == http.StatusNotFound {
			err = accounts.ErrInvalidPassword
		}
		s.recordAudit(r, audit.EventTypeAuthLoginFailed, req.Username, err)
		s.writeError(w, r, "authenticate", err)
		return
	}
	s.recordAudit(r, audit.EventTypeAuthLogin, account.Username, nil)

	_ = httputil.WriteSuccess(w, http.StatusOK, newAccountResponse(account))
}

// updateProfile handles POST /user/profile
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	current := middleware.GetAccount(r)
	if current == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var update accounts.ProfileUpdate
	if !httputil.ParseJSONOrError(w, r, &update) {
		return
	}

	account, err := s.accounts.UpdateProfile(r.Context(), current.Username, update)
	s.recordAudit(r, audit.EventTypeAccountUpdate, current.Username, err)
	if err != nil {
		s.writeError(w, r, "update_profile", err)
		return
	}

	_ = httputil.WriteSuccess(w, http.StatusOK, newAccountResponse(account))
}

// deleteAccount handles DELETE /user
func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	current := middleware.GetAccount(r)
	if current == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	err := s.accounts.DeleteAccount(r.Context(), current.Username)
	s.recordAudit(r, audit.EventTypeAccountDelete, current.Username, err)
	if err != nil {
		s.writeError(w, r, "delete", err)
		return
	}

	_ = httputil.WriteSuccessMessage(w, "account deleted", nil)
}

// requestPasswordReset handles POST /user/reset-password.
// Only malformed input is reported; every other outcome answers the same way.
func (s *Server) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	err := s.accounts.RequestPasswordReset(r.Context(), req.Email)
	s.recordAudit(r, audit.EventTypeResetRequest, "", err)
	if err != nil {
		if accounts.IsValidationError(err) {
			s.writeError(w, r, "request_reset", err)
			return
		}
		s.log(r).WithError(err).Error("Password reset request failed")
	}

	_ = httputil.WriteSuccessMessage(w, resetRequestedMessage, nil)
}

// verifyPasswordReset handles POST /user/reset-password/verify
func (s *Server) verifyPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetVerifyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w,
		httputil.RequireNonEmpty(req.Token, "token"),
		httputil.RequireNonEmpty(req.Password, "password"),
	) {
		return
	}

	err := s.accounts.ResetPassword(r.Context(), req.Token, req.Password)
	s.recordAudit(r, audit.EventTypeResetComplete, "", err)
	if err != nil {
		s.writeError(w, r, "reset_password", err)
		return
	}

	_ = httputil.WriteSuccessMessage(w, "password updated", nil)
}
