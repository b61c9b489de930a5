// Package server exposes the pipeline over HTTP: Discord-style interactions,
// a reviewer resume endpoint, scheduled hunt triggers, and direct per-lead
// processing. Everything that starts background work answers 202.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phantomlabs/beastmode/log"
)

// HuntService is the pipeline surface the server drives.
type HuntService interface {
	StartHunt(niche, discordToken string) string
	Resume(threadID string, approve bool)
	ProcessLead(ctx context.Context, leadID, token string) error
}

// Server is the HTTP front end.
type Server struct {
	service HuntService
	logger  log.Logger
	router  chi.Router
}

// New builds the server and its routes.
func New(service HuntService, logger log.Logger) *Server {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	s := &Server{service: service, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/interactions", s.handleInteractions)
	r.Post("/resume", s.handleResume)
	r.Post("/hunt", s.handleHunt)
	r.Post("/process-lead", s.handleProcessLead)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// interaction mirrors the subset of the Discord interaction payload the
// pipeline consumes.
type interaction struct {
	Type  int    `json:"type"`
	Token string `json:"token"`
	Data  struct {
		Name    string `json:"name"`
		Options []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"options"`
	} `json:"data"`
}

const (
	interactionPing    = 1
	interactionCommand = 2

	responsePong              = 1
	responseDeferredEphemeral = 5
)

// handleInteractions answers pings and turns hunt commands into background
// runs with a deferred response.
func (s *Server) handleInteractions(w http.ResponseWriter, r *http.Request) {
	var in interaction
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "malformed interaction payload", http.StatusBadRequest)
		return
	}

	switch in.Type {
	case interactionPing:
		writeJSON(w, http.StatusOK, map[string]int{"type": responsePong})
	case interactionCommand:
		name := strings.ToLower(in.Data.Name)
		if name != "hunt" && name != "prospect" {
			http.Error(w, "unknown command", http.StatusBadRequest)
			return
		}
		niche := ""
		for _, opt := range in.Data.Options {
			if opt.Name == "niche" {
				niche = opt.Value
			}
		}
		threadID := s.service.StartHunt(niche, in.Token)
		s.logger.Info("interaction started hunt %s for niche %q", threadID, niche)
		writeJSON(w, http.StatusAccepted, map[string]any{
			"type":      responseDeferredEphemeral,
			"thread_id": threadID,
		})
	default:
		http.Error(w, "unsupported interaction type", http.StatusBadRequest)
	}
}

type resumeRequest struct {
	ThreadID string `json:"thread_id"`
	Approve  *bool  `json:"approve"`
}

// handleResume applies a reviewer decision to a suspended run.
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ThreadID == "" || req.Approve == nil {
		http.Error(w, "thread_id and approve are required", http.StatusBadRequest)
		return
	}
	s.service.Resume(req.ThreadID, *req.Approve)
	writeJSON(w, http.StatusAccepted, map[string]string{"thread_id": req.ThreadID})
}

type huntRequest struct {
	Niche string `json:"niche"`
}

// handleHunt is the scheduled trigger; an absent niche falls back to the
// default.
func (s *Server) handleHunt(w http.ResponseWriter, r *http.Request) {
	var req huntRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed hunt payload", http.StatusBadRequest)
			return
		}
	}
	threadID := s.service.StartHunt(req.Niche, "")
	writeJSON(w, http.StatusAccepted, map[string]string{"thread_id": threadID})
}

type processLeadRequest struct {
	LeadID string `json:"lead_id"`
	Token  string `json:"token"`
}

// handleProcessLead enriches one persisted lead in the background.
func (s *Server) handleProcessLead(w http.ResponseWriter, r *http.Request) {
	var req processLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LeadID == "" {
		http.Error(w, "lead_id is required", http.StatusBadRequest)
		return
	}

	go func() {
		if err := s.service.ProcessLead(context.Background(), req.LeadID, req.Token); err != nil {
			s.logger.Error("process lead %s failed: %v", req.LeadID, err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"lead_id": req.LeadID})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
