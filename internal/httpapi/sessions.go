// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package httpapi

import (
	"encoding/json"
	"net/http"
)

// loginRequest is the credential pair presented to POST /api/v1/sessions.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleSessions serves POST /api/v1/sessions: authenticate, issue a
// session, and hand the token to the client through the cookie adapter.
// On failure the client-held cookie is actively invalidated.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writePayload(w, payloadInvalidRequest)
		return
	}

	user, err := s.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.recordLogin(false)
		clearSessionCookie(w)
		s.writeError(w, err)
		return
	}

	session, err := s.sessions.Create(r.Context(), user.ID)
	if err != nil {
		s.recordLogin(false)
		clearSessionCookie(w)
		s.writeError(w, err)
		return
	}

	s.recordLogin(true)
	setSessionCookie(w, session.Token, s.sessions.Lifetime())
	s.logger.Info("session created", "session_id", session.ID.String(), "user_id", user.ID.String())
	writeJSON(w, http.StatusCreated, session)
}

// handleCurrentUser serves GET /api/v1/user: validate the session
// cookie, renew the session, and return the owning user. Every
// successful authenticated access renews; idle sessions are the only
// ones that ever expire.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	token := ""
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		token = cookie.Value
	}

	session, err := s.sessions.FindByValidToken(r.Context(), token)
	if err != nil {
		clearSessionCookie(w)
		s.writeError(w, err)
		return
	}

	renewed, err := s.sessions.Renew(r.Context(), session.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.SessionRenewalsTotal.Inc()
	}

	user, err := s.users.FindByID(r.Context(), renewed.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	setSessionCookie(w, renewed.Token, s.sessions.Lifetime())
	// The body names the caller; intermediaries must not cache it.
	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	writeJSON(w, http.StatusOK, user)
}
