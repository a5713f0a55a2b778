// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/keyfold/internal/auth"
	"github.com/keyfold/keyfold/internal/httpapi"
)

// sessionCookie extracts the session cookie from a recorded response.
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpapi.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", httpapi.SessionCookieName)
	return nil
}

func TestLogin(t *testing.T) {
	loginBody := `{"email": "alice@example.com", "password": "secret123"}`

	knownUser := func(t *testing.T, ts *testServer) *auth.User {
		t.Helper()
		hash, err := ts.hasher.Hash("secret123")
		require.NoError(t, err)
		return &auth.User{
			ID:           ulid.Make(),
			Username:     "alice",
			Email:        "alice@example.com",
			PasswordHash: hash,
		}
	}

	t.Run("valid credentials issue a session", func(t *testing.T) {
		ts := newTestServer(t, nil)
		user := knownUser(t, ts)

		ts.userRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(user, nil)
		ts.sessionRepo.On("Create", mock.Anything, mock.AnythingOfType("*auth.Session")).Return(nil)

		rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(loginBody)))

		require.Equal(t, http.StatusCreated, rec.Code)

		var session map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))
		token, _ := session["token"].(string)
		assert.Len(t, token, auth.SessionTokenLength)
		assert.Equal(t, user.ID.String(), session["user_id"])

		cookie := sessionCookie(t, rec)
		assert.Equal(t, token, cookie.Value)
		assert.Equal(t, "/", cookie.Path)
		assert.Equal(t, int(time.Hour.Seconds()), cookie.MaxAge)
		assert.True(t, cookie.HttpOnly)
	})

	t.Run("wrong password rejects and invalidates the cookie", func(t *testing.T) {
		ts := newTestServer(t, nil)
		user := knownUser(t, ts)

		ts.userRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(user, nil)

		rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/v1/sessions",
			strings.NewReader(`{"email": "alice@example.com", "password": "wrong"}`)))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		payload := decodePayload(t, rec.Body)
		assert.Equal(t, "UnauthorizedError", payload.Name)
		assert.Equal(t, "Invalid authentication credentials.", payload.Message)

		cookie := sessionCookie(t, rec)
		assert.Equal(t, "invalid", cookie.Value)
		assert.Less(t, cookie.MaxAge, 1)
	})

	t.Run("unknown email and wrong password are byte-identical", func(t *testing.T) {
		ts := newTestServer(t, nil)
		user := knownUser(t, ts)

		ts.userRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(user, nil)
		ts.userRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, notFoundErr())

		recMismatch := ts.do(httptest.NewRequest(http.MethodPost, "/api/v1/sessions",
			strings.NewReader(`{"email": "alice@example.com", "password": "wrong"}`)))
		recMissing := ts.do(httptest.NewRequest(http.MethodPost, "/api/v1/sessions",
			strings.NewReader(`{"email": "ghost@example.com", "password": "wrong"}`)))

		assert.Equal(t, http.StatusUnauthorized, recMismatch.Code)
		assert.Equal(t, http.StatusUnauthorized, recMissing.Code)
		assert.Equal(t, recMismatch.Body.Bytes(), recMissing.Body.Bytes())
	})

	t.Run("session persistence failure returns internal error", func(t *testing.T) {
		ts := newTestServer(t, nil)
		user := knownUser(t, ts)

		ts.userRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(user, nil)
		ts.sessionRepo.On("Create", mock.Anything, mock.AnythingOfType("*auth.Session")).Return(assert.AnError)

		rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(loginBody)))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		cookie := sessionCookie(t, rec)
		assert.Equal(t, "invalid", cookie.Value)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		ts := newTestServer(t, nil)

		rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader("{")))

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCurrentUser(t *testing.T) {
	token := strings.Repeat("ab", auth.SessionTokenBytes)

	t.Run("valid session renews and returns the user", func(t *testing.T) {
		ts := newTestServer(t, nil)
		userID := ulid.Make()
		session := &auth.Session{
			ID:     ulid.Make(),
			UserID: userID,
			Token:  token,
		}
		renewed := &auth.Session{
			ID:        session.ID,
			UserID:    userID,
			Token:     token,
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}
		user := &auth.User{ID: userID, Username: "alice", Email: "alice@example.com"}

		ts.sessionRepo.On("GetByValidToken", mock.Anything, token, mock.AnythingOfType("time.Time")).
			Return(session, nil)
		ts.sessionRepo.On("Renew", mock.Anything, session.ID,
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
			Return(renewed, nil)
		ts.userRepo.On("GetByID", mock.Anything, userID).Return(user, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
		req.AddCookie(&http.Cookie{Name: httpapi.SessionCookieName, Value: token})
		rec := ts.do(req)

		require.Equal(t, http.StatusOK, rec.Code)

		var got map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "alice", got["username"])

		cookie := sessionCookie(t, rec)
		assert.Equal(t, token, cookie.Value, "token survives renewal unchanged")
		assert.Equal(t, int(time.Hour.Seconds()), cookie.MaxAge)

		assert.Equal(t, "no-store, no-cache, max-age=0, must-revalidate",
			rec.Header().Get("Cache-Control"))
	})

	t.Run("missing cookie rejects with the session payload", func(t *testing.T) {
		ts := newTestServer(t, nil)

		ts.sessionRepo.On("GetByValidToken", mock.Anything, "", mock.AnythingOfType("time.Time")).
			Return(nil, auth.ErrNotFound)

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/user", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		payload := decodePayload(t, rec.Body)
		assert.Equal(t, "UnauthorizedError", payload.Name)
		assert.Equal(t, "User does not have an active session.", payload.Message)

		cookie := sessionCookie(t, rec)
		assert.Equal(t, "invalid", cookie.Value)
	})

	t.Run("expired token is indistinguishable from an unknown one", func(t *testing.T) {
		ts := newTestServer(t, nil)

		ts.sessionRepo.On("GetByValidToken", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Return(nil, auth.ErrNotFound)

		reqStale := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
		reqStale.AddCookie(&http.Cookie{Name: httpapi.SessionCookieName, Value: token})
		recStale := ts.do(reqStale)

		reqBogus := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
		reqBogus.AddCookie(&http.Cookie{Name: httpapi.SessionCookieName, Value: "bogus"})
		recBogus := ts.do(reqBogus)

		assert.Equal(t, recStale.Code, recBogus.Code)
		assert.Equal(t, recStale.Body.Bytes(), recBogus.Body.Bytes())
	})

	t.Run("renewal failure returns internal error", func(t *testing.T) {
		ts := newTestServer(t, nil)
		session := &auth.Session{ID: ulid.Make(), UserID: ulid.Make(), Token: token}

		ts.sessionRepo.On("GetByValidToken", mock.Anything, token, mock.AnythingOfType("time.Time")).
			Return(session, nil)
		ts.sessionRepo.On("Renew", mock.Anything, session.ID,
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
			Return(nil, assert.AnError)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
		req.AddCookie(&http.Cookie{Name: httpapi.SessionCookieName, Value: token})
		rec := ts.do(req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
