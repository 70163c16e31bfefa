package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealth_Liveness(t *testing.T) {
	srv := NewServer(ServerDeps{})

	w := serve(t, http.MethodGet, "/health/live", "/health/live", nil, srv.GetLiveness)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, HealthStatusOK, decode[Health](t, w).Status)
}

func TestHealth_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		deps       ServerDeps
		wantStatus int
		wantCheck  string
	}{
		{"store reachable", ServerDeps{Store: newTestEnv(t).store}, http.StatusOK, "ok"},
		{"store unreachable", ServerDeps{Store: failingPinger{}}, http.StatusServiceUnavailable, "error"},
		{"store missing", ServerDeps{}, http.StatusServiceUnavailable, "missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(tt.deps)

			w := serve(t, http.MethodGet, "/health/ready", "/health/ready", nil, srv.GetReadiness)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCheck, decode[Health](t, w).Checks["store"])
		})
	}
}
