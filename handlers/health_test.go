package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name     string
		db       pinger
		redis    pinger
		wantCode int
		want     healthResponse
	}{
		{"all up", up, up, http.StatusOK, healthResponse{Status: "ok", Database: "connected", Redis: "connected"}},
		{"db down", down, up, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: "error", Redis: "connected"}},
		{"redis down", up, down, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: "connected", Redis: "error"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.db, tt.redis).Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var got healthResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.want.Status, got.Status)
			assert.Equal(t, tt.want.Database, got.Database)
			assert.Equal(t, tt.want.Redis, got.Redis)
			assert.NotEmpty(t, got.GoVersion)
		})
	}
}
