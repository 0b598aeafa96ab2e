package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"payments-authorizenet/utils"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db      pinger
	redis   pinger
	started time.Time
}

func NewHealthHandler(db, redis pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, started: time.Now()}
}

type healthResponse struct {
	Status    string `json:"status"`
	Time      string `json:"time"`
	Database  string `json:"database"`
	Redis     string `json:"redis"`
	Uptime    string `json:"uptime"`
	GoVersion string `json:"go_version"`
}

// Health reports "degraded" with 503 when a dependency is unreachable.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := healthResponse{
		Status:    "ok",
		Time:      time.Now().UTC().Format(time.RFC3339),
		Database:  "connected",
		Redis:     "connected",
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		GoVersion: runtime.Version(),
	}

	if !h.check(ctx, h.db) {
		health.Status = "degraded"
		health.Database = "error"
	}
	if !h.check(ctx, h.redis) {
		health.Status = "degraded"
		health.Redis = "error"
	}

	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	utils.SendJSON(w, status, health)
}

func (h *HealthHandler) check(ctx context.Context, p pinger) bool {
	if p == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return p.Ping(ctx) == nil
}
