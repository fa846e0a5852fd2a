package handlers

import (
	"context"
	"net/http"
	"time"
)

const version = "0.1.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Health handles the health check endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	allHealthy := true

	// User registry
	usersStart := time.Now()
	if err := h.users.Ping(ctx); err != nil {
		checks["users"] = Check{Status: "fail", Message: "connection failed"}
		allHealthy = false
	} else {
		checks["users"] = Check{Status: "pass", Latency: time.Since(usersStart).String()}
	}

	// Key/value store
	kvStart := time.Now()
	if err := h.kv.Ping(ctx); err != nil {
		checks["kv"] = Check{Status: "fail", Message: "connection failed"}
		allHealthy = false
	} else {
		checks["kv"] = Check{Status: "pass", Latency: time.Since(kvStart).String()}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	h.JSON(w, statusCode, HealthResponse{
		Status:    status,
		Version:   version,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Root handles the root endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:    "Parley",
		Version: version,
	})
}
