// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/keyfold/keyfold/internal/auth"
)

// handleUsers serves POST /api/v1/users: user registration.
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var input auth.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writePayload(w, payloadInvalidRequest)
		return
	}

	user, err := s.users.Create(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.SignupsTotal.Inc()
	}
	s.logger.Info("user registered", "id", user.ID.String(), "username", user.Username)
	writeJSON(w, http.StatusCreated, user)
}

// handleUserByUsername serves GET and PATCH /api/v1/users/{username}.
func (s *Server) handleUserByUsername(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
	if username == "" || strings.Contains(username, "/") {
		s.handleUnknown(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := s.users.FindByUsername(r.Context(), username)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)

	case http.MethodPatch:
		var patch auth.UpdateUserInput
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			s.writePayload(w, payloadInvalidRequest)
			return
		}
		user, err := s.users.Update(r.Context(), username, patch)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.logger.Info("user updated", "id", user.ID.String(), "username", user.Username)
		writeJSON(w, http.StatusOK, user)

	default:
		w.Header().Set("Allow", "GET, PATCH")
		s.writePayload(w, payloadMethodNotAllowed)
	}
}
