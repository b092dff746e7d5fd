package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"botfoundation/clients"
	"botfoundation/core/log"
	"botfoundation/models"
	"botfoundation/services"
	"botfoundation/services/scheduler"
)

// JobLister exposes the scheduler's jobs for status reporting
type JobLister interface {
	Jobs() []*scheduler.Job
}

type OpsHTTPHandler struct {
	gateway   clients.Gateway
	catalog   services.CommandCatalog
	jobs      JobLister
	startedAt time.Time
}

func NewOpsHTTPHandler(gateway clients.Gateway, catalog services.CommandCatalog, jobs JobLister) *OpsHTTPHandler {
	return &OpsHTTPHandler{
		gateway:   gateway,
		catalog:   catalog,
		jobs:      jobs,
		startedAt: time.Now(),
	}
}

type JobStatus struct {
	Name    string     `json:"name"`
	Period  string     `json:"period"`
	Running bool       `json:"running"`
	Fired   int64      `json:"fired"`
	Skipped int64      `json:"skipped"`
	LastRun *time.Time `json:"last_run,omitempty"`
}

type HealthResponse struct {
	Status    string      `json:"status"`
	Connected bool        `json:"connected"`
	Uptime    string      `json:"uptime"`
	Jobs      []JobStatus `json:"jobs"`
}

type CommandInfo struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	Description string   `json:"description"`
	Usage       string   `json:"usage,omitempty"`
	Module      string   `json:"module"`
	Checks      []string `json:"checks"`
}

func (h *OpsHTTPHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Connected: h.gateway.SelfID() != "",
		Uptime:    time.Since(h.startedAt).Truncate(time.Second).String(),
		Jobs:      []JobStatus{},
	}

	for _, job := range h.jobs.Jobs() {
		status := JobStatus{
			Name:    job.Name,
			Period:  job.Period.String(),
			Running: job.Running(),
			Fired:   job.Fired(),
			Skipped: job.Skipped(),
		}
		if lastRun := job.LastRun(); !lastRun.IsZero() {
			status.LastRun = &lastRun
		}
		response.Jobs = append(response.Jobs, status)
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

func (h *OpsHTTPHandler) HandleListCommands(w http.ResponseWriter, r *http.Request) {
	commands := []CommandInfo{}
	for _, def := range h.catalog.Commands() {
		commands = append(commands, toCommandInfo(def))
	}

	h.writeJSONResponse(w, http.StatusOK, commands)
}

func (h *OpsHTTPHandler) HandleGetCommand(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	def, ok := h.catalog.Resolve(name).Get()
	if !ok {
		http.Error(w, "command not found", http.StatusNotFound)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, toCommandInfo(def))
}

func toCommandInfo(def *models.CommandDefinition) CommandInfo {
	info := CommandInfo{
		Name:        def.Name,
		Aliases:     append([]string{}, def.Aliases...),
		Description: def.Description,
		Usage:       def.Usage,
		Module:      def.Module,
		Checks:      []string{},
	}
	for _, predicate := range def.Predicates {
		info.Checks = append(info.Checks, predicate.Name)
	}
	return info
}

func (h *OpsHTTPHandler) SetupEndpoints(router *mux.Router) {
	log.Info("🚀 Registering ops endpoints")

	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
	log.Info("✅ GET /health endpoint registered")

	router.HandleFunc("/commands", h.HandleListCommands).Methods("GET")
	log.Info("✅ GET /commands endpoint registered")

	router.HandleFunc("/commands/{name}", h.HandleGetCommand).Methods("GET")
	log.Info("✅ GET /commands/{name} endpoint registered")
}

// NewCORSHandler wraps handler with CORS headers for a comma separated origin list
func NewCORSHandler(allowedOrigins string, handler http.Handler) http.Handler {
	origins := strings.Split(allowedOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(handler)
}

func (h *OpsHTTPHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error("❌ Failed to encode JSON response", "error", err)
	}
}
