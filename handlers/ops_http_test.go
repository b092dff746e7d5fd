package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botfoundation/clients"
	"botfoundation/models"
	"botfoundation/services/registry"
	"botfoundation/services/scheduler"
)

type staticJobs []*scheduler.Job

func (j staticJobs) Jobs() []*scheduler.Job { return j }

func newOpsRouter(t *testing.T, selfID string) http.Handler {
	t.Helper()

	reg := registry.NewRegistry()
	noop := func(ctx context.Context, inv models.Invocation, reply models.Replier) error { return nil }
	require.NoError(t, reg.RegisterAll(
		&models.CommandDefinition{Name: "ping", Description: "Check if the bot is alive.", Module: "general", Handler: noop},
		&models.CommandDefinition{
			Name:        "help",
			Aliases:     []string{"commands", "h"},
			Description: "List all commands.",
			Module:      "general",
			Predicates:  []models.Predicate{{Name: "not_blacklisted"}},
			Handler:     noop,
		},
	))
	reg.Seal()

	gateway := &clients.MockGateway{}
	gateway.On("SelfID").Return(selfID)

	jobs := staticJobs{{Name: "presence_rotation", Period: time.Minute}}

	router := mux.NewRouter()
	NewOpsHTTPHandler(gateway, reg, jobs).SetupEndpoints(router)
	return NewCORSHandler("https://dashboard.example.com, https://ops.example.com", router)
}

func TestOpsHTTP_Health(t *testing.T) {
	router := newOpsRouter(t, "bot-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.True(t, response.Connected)
	require.Len(t, response.Jobs, 1)
	assert.Equal(t, "presence_rotation", response.Jobs[0].Name)
	assert.Equal(t, "1m0s", response.Jobs[0].Period)
	assert.Nil(t, response.Jobs[0].LastRun)
}

func TestOpsHTTP_HealthBeforeReady(t *testing.T) {
	router := newOpsRouter(t, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.False(t, response.Connected)
}

func TestOpsHTTP_ListCommands(t *testing.T) {
	router := newOpsRouter(t, "bot-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/commands", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var commands []CommandInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &commands))
	require.Len(t, commands, 2)
	assert.Equal(t, "ping", commands[0].Name)
	assert.Equal(t, []string{}, commands[0].Aliases)
	assert.Equal(t, "help", commands[1].Name)
	assert.Equal(t, []string{"commands", "h"}, commands[1].Aliases)
	assert.Equal(t, []string{"not_blacklisted"}, commands[1].Checks)
}

func TestOpsHTTP_GetCommandByAlias(t *testing.T) {
	router := newOpsRouter(t, "bot-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/commands/H", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var info CommandInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "help", info.Name)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/commands/xyzzy", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpsHTTP_CORS(t *testing.T) {
	router := newOpsRouter(t, "bot-1")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "https://ops.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpsHTTP_MethodNotAllowed(t *testing.T) {
	router := newOpsRouter(t, "bot-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/commands", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
