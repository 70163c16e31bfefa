package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"keeper.dev/keeper/internal/abuse"
	"keeper.dev/keeper/internal/access"
	"keeper.dev/keeper/internal/api/middleware"
	"keeper.dev/keeper/internal/domain"
	"keeper.dev/keeper/internal/gamification"
	"keeper.dev/keeper/internal/governance/audit"
	"keeper.dev/keeper/internal/mission"
	"keeper.dev/keeper/internal/notification"
	"keeper.dev/keeper/internal/persona"
	"keeper.dev/keeper/internal/pkg/logger"
	"keeper.dev/keeper/internal/publishing"
	"keeper.dev/keeper/internal/repository/memory"
	"keeper.dev/keeper/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

type testEnv struct {
	srv     *Server
	store   *memory.Store
	gateway *notification.MockGateway
	access  *access.Service
}

// abuseLimit is low so cooldown tests stay short.
const abuseLimit = 3

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	gateway := notification.NewMockGateway()
	auditLogger := audit.NewLogger(store)
	router := domain.NewEventRouter(domain.WithAuditSink(auditLogger))

	table, err := persona.DefaultTable()
	require.NoError(t, err)
	personaSvc := persona.NewService(store, router, table)
	gamificationSvc := gamification.NewService(store, router, personaSvc, store, gamification.Config{})
	catalog, err := mission.DefaultCatalog()
	require.NoError(t, err)
	missionSvc := mission.NewService(store, router, catalog, gamificationSvc, personaSvc)
	accessSvc := access.NewService(store, router, gateway, access.Config{PaidChannelID: -100500})

	personaSvc.Register(router)
	gamificationSvc.Register(router)

	gate := abuse.NewGate(abuse.Config{Limit: abuseLimit, Window: time.Minute, Cooldown: time.Hour})

	srv := NewServer(ServerDeps{
		Store:        store,
		Ingest:       usecase.NewIngestInteractionUseCase(gate, router),
		Access:       accessSvc,
		Admissions:   access.NewAdmissions(store, router, gateway, 0),
		Missions:     missionSvc,
		Gamification: gamificationSvc,
		Persona:      personaSvc,
		Publishing:   publishing.NewService(store, router, gateway, 0),
		Audit:        auditLogger,
	})
	return &testEnv{srv: srv, store: store, gateway: gateway, access: accessSvc}
}

// serve runs one request through a single-route engine with the error
// middleware installed.
func serve(t *testing.T, method, pattern, path string, body any, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.ErrorHandler())
	engine.Handle(method, pattern, h)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body=%s", w.Body.String())
	return out
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Params  map[string]any `json:"params"`
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }
