// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package httpapi

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session_id"

// invalidCookieValue is the sentinel written when a client-held token
// must be discarded.
const invalidCookieValue = "invalid"

// setSessionCookie hands the session token to the client. The max-age
// mirrors the session store's expiration window so cookie and session
// die together.
func setSessionCookie(w http.ResponseWriter, token string, lifetime time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(lifetime.Seconds()),
		HttpOnly: true,
	})
}

// clearSessionCookie actively invalidates whatever token the client
// holds: sentinel value, immediate expiry, same path and flags.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    invalidCookieValue,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
