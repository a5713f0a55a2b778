// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/keyfold/internal/httpapi"
)

func newStatusServer(t *testing.T) (*testServer, pgxmock.PgxPoolIface) {
	t.Helper()

	db, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(db.Close)
	t.Cleanup(func() {
		assert.NoError(t, db.ExpectationsWereMet(), "unfulfilled expectations")
	})

	ts := newTestServer(t, func(cfg *httpapi.ServerConfig) {
		cfg.StatusDB = db
		cfg.DatabaseName = "keyfold_test"
	})
	return ts, db
}

func TestStatusEndpoint(t *testing.T) {
	t.Run("reports database health", func(t *testing.T) {
		ts, db := newStatusServer(t)

		db.ExpectQuery(`SHOW server_version`).
			WillReturnRows(pgxmock.NewRows([]string{"server_version"}).AddRow("16.0"))
		db.ExpectQuery(`SHOW max_connections`).
			WillReturnRows(pgxmock.NewRows([]string{"max_connections"}).AddRow("100"))
		db.ExpectQuery(`SELECT COUNT\(\*\)::int FROM pg_stat_activity WHERE datname = \$1`).
			WithArgs("keyfold_test").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			UpdatedAt    string `json:"updated_at"`
			Dependencies struct {
				Database struct {
					Version            string `json:"version"`
					MaxConnections     int    `json:"max_connections"`
					CurrentConnections int    `json:"current_connections"`
				} `json:"database"`
			} `json:"dependencies"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.UpdatedAt)
		assert.Equal(t, "16.0", resp.Dependencies.Database.Version)
		assert.Equal(t, 100, resp.Dependencies.Database.MaxConnections)
		assert.Equal(t, 3, resp.Dependencies.Database.CurrentConnections)
	})

	t.Run("query failure returns internal error", func(t *testing.T) {
		ts, db := newStatusServer(t)

		db.ExpectQuery(`SHOW server_version`).WillReturnError(assert.AnError)

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		payload := decodePayload(t, rec.Body)
		assert.Equal(t, "InternalServerError", payload.Name)
	})

	t.Run("unparseable max_connections returns internal error", func(t *testing.T) {
		ts, db := newStatusServer(t)

		db.ExpectQuery(`SHOW server_version`).
			WillReturnRows(pgxmock.NewRows([]string{"server_version"}).AddRow("16.0"))
		db.ExpectQuery(`SHOW max_connections`).
			WillReturnRows(pgxmock.NewRows([]string{"max_connections"}).AddRow("lots"))

		rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
