package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	gateAuth "github.com/MrEthical07/gateAuth"
	"github.com/MrEthical07/gateAuth/middleware"
)

type loginRequest struct {
	Secret string `json:"secret" validate:"required,max=1024"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type logoutRequest struct {
	SessionID string `json:"sessionId" validate:"required,max=128"`
}

// tokenResponse renders an empty refresh token as null.
type tokenResponse struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken *string `json:"refreshToken"`
	SessionID    string  `json:"sessionId"`
}

type principalResponse struct {
	Provider  string `json:"provider"`
	Subject   string `json:"subject"`
	SessionID string `json:"sessionId,omitempty"`
	Email     string `json:"email,omitempty"`
}

func newTokenResponse(t *gateAuth.AuthTokens) tokenResponse {
	resp := tokenResponse{AccessToken: t.AccessToken, SessionID: t.SessionID}
	if t.RefreshToken != "" {
		refresh := t.RefreshToken
		resp.RefreshToken = &refresh
	}
	return resp
}

// decode reads one JSON object into dst and validates it.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest)
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest)
		return false
	}
	return true
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}

	tokens, err := a.auth.Login(r.Context(), req.Secret)
	if err != nil {
		a.writeEngineError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(tokens))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !a.decode(w, r, &req) {
		return
	}

	tokens, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.writeEngineError(w, r, "refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, newTokenResponse(tokens))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if !a.decode(w, r, &req) {
		return
	}
	// A session-bound bearer may only end its own session. Static principals
	// and unauthenticated callers holding the id are not restricted.
	if p, ok := middleware.PrincipalFromContext(r.Context()); ok && p.SessionID != "" && p.SessionID != req.SessionID {
		writeError(w, http.StatusForbidden, ErrCodeForbidden)
		return
	}

	if err := a.auth.Logout(r.Context(), req.SessionID); err != nil {
		a.writeEngineError(w, r, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, principalResponse{
		Provider:  p.Provider,
		Subject:   p.Subject,
		SessionID: p.SessionID,
		Email:     p.Email,
	})
}
