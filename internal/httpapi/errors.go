// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/keyfold/keyfold/pkg/errutil"
)

// ErrorPayload is the fixed error shape of the API. Every failure the
// boundary emits, whatever its internal cause, serializes to this.
type ErrorPayload struct {
	Name       string `json:"name"`
	Message    string `json:"message"`
	Action     string `json:"action"`
	StatusCode int    `json:"statusCode"`
}

// Canonical payloads. Internal diagnostics stay in the logs; the bodies
// below are all a client ever sees.
var (
	payloadUsernameTaken = ErrorPayload{
		Name:       "ValidationError",
		Message:    "The username is already in use.",
		Action:     "Choose another username and try again.",
		StatusCode: http.StatusBadRequest,
	}
	payloadEmailTaken = ErrorPayload{
		Name:       "ValidationError",
		Message:    "The email is already in use.",
		Action:     "Choose another email and try again.",
		StatusCode: http.StatusBadRequest,
	}
	payloadEmptyPassword = ErrorPayload{
		Name:       "ValidationError",
		Message:    "The password must not be empty.",
		Action:     "Provide a password and try again.",
		StatusCode: http.StatusBadRequest,
	}
	payloadInvalidRequest = ErrorPayload{
		Name:       "ValidationError",
		Message:    "The request body could not be parsed.",
		Action:     "Check the submitted data and try again.",
		StatusCode: http.StatusBadRequest,
	}
	payloadInvalidCredentials = ErrorPayload{
		Name:       "UnauthorizedError",
		Message:    "Invalid authentication credentials.",
		Action:     "Check the provided credentials and try again.",
		StatusCode: http.StatusUnauthorized,
	}
	payloadNoActiveSession = ErrorPayload{
		Name:       "UnauthorizedError",
		Message:    "User does not have an active session.",
		Action:     "Check whether this user is signed in and try again.",
		StatusCode: http.StatusUnauthorized,
	}
	payloadUserNotFound = ErrorPayload{
		Name:       "NotFoundError",
		Message:    "The requested user was not found in the system.",
		Action:     "Check the username and try again.",
		StatusCode: http.StatusNotFound,
	}
	payloadMethodNotAllowed = ErrorPayload{
		Name:       "MethodNotAllowedError",
		Message:    "Method not allowed for this endpoint.",
		Action:     "Check whether the HTTP method is valid for this endpoint.",
		StatusCode: http.StatusMethodNotAllowed,
	}
	payloadInternalError = ErrorPayload{
		Name:       "InternalServerError",
		Message:    "An unexpected internal error occurred.",
		Action:     "Contact support if the problem persists.",
		StatusCode: http.StatusInternalServerError,
	}
)

// payloadFor maps an internal error to its public payload by oops code.
// Unrecognized codes, and errors with no code at all, collapse into the
// generic internal error so raw diagnostics never leak.
func payloadFor(err error) ErrorPayload {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return payloadInternalError
	}
	switch oopsErr.Code() {
	case "USER_USERNAME_TAKEN":
		return payloadUsernameTaken
	case "USER_EMAIL_TAKEN":
		return payloadEmailTaken
	case "AUTH_EMPTY_PASSWORD":
		return payloadEmptyPassword
	case "AUTH_INVALID_CREDENTIALS":
		return payloadInvalidCredentials
	case "SESSION_INVALID":
		return payloadNoActiveSession
	case "USER_NOT_FOUND":
		return payloadUserNotFound
	default:
		return payloadInternalError
	}
}

// writeError logs the internal error and writes its public payload.
// Client-fault statuses log at warning; everything else is a fault.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	payload := payloadFor(err)
	if payload.StatusCode >= http.StatusInternalServerError {
		errutil.LogError(s.logger, "request failed", err)
	} else {
		errutil.LogWarn(s.logger, "request rejected", err)
	}
	writeJSON(w, payload.StatusCode, payload)
}

// writePayload writes a pre-built error payload without an internal
// error behind it (bad request bodies, wrong methods).
func (s *Server) writePayload(w http.ResponseWriter, payload ErrorPayload) {
	writeJSON(w, payload.StatusCode, payload)
}

// writeJSON writes v with the given status. Encoding failures after the
// header is out can only be logged.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
