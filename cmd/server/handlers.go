package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/himanishpuri/TracklistDNA/pkg/logger"
	"github.com/himanishpuri/TracklistDNA/pkg/models"
	"github.com/himanishpuri/TracklistDNA/pkg/tracklistdna"
)

const maxRequestBytes = 1 << 20

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service tracklistdna.Service
	config  *ServerConfig
	log     *logger.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int
	DBPath          string
	AllowedOrigins  []string
	IdentifyTimeout time.Duration
}

// NewServer creates a new server instance
func NewServer(service tracklistdna.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger().WithPrefix("[server]"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondRunError maps a pipeline failure to a status code
func (s *Server) respondRunError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var stage string

	var stageErr *tracklistdna.StageError
	if errors.As(err, &stageErr) {
		stage = string(stageErr.Stage)
		if stageErr.Stage == tracklistdna.StageRecognize {
			status = http.StatusBadGateway
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}

	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: err.Error(),
		Code:    status,
		Stage:   stage,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "TracklistDNA API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":          "GET /health",
			"identify":        "POST /identify",
			"tracklists":      "GET /api/tracklists",
			"getTracklist":    "GET /api/tracklists/{key} or /api/tracklists?key=",
			"deleteTracklist": "DELETE /api/tracklists/{key} or /api/tracklists?key=",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleIdentify handles POST /identify
func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req IdentifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if s.config.IdentifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.IdentifyTimeout)
		defer cancel()
	}

	s.log.Infof("Identifying tracks in %s", req.YouTubeURL)
	tl, err := s.service.Identify(ctx, req.YouTubeURL)
	if err != nil {
		s.log.Errorf("Identification failed: %v", err)
		s.respondRunError(w, err)
		return
	}

	s.log.Infof("Identified %d tracks in %s", len(tl.Tracks), tl.SourceKey)
	s.respondJSON(w, http.StatusOK, IdentifyResponse{
		Message:   "Track recognition completed",
		SourceKey: tl.SourceKey,
		Tracklist: toDTO(*tl).Tracks,
	})
}

// handleListTracklists handles GET /api/tracklists. With ?key= it serves
// GET and DELETE for that single tracklist, which also reaches keys that
// contain slashes.
func (s *Server) handleListTracklists(w http.ResponseWriter, r *http.Request) {
	if key := r.URL.Query().Get("key"); key != "" {
		s.serveTracklist(w, r, key)
		return
	}
	if r.Method == http.MethodDelete {
		s.respondError(w, http.StatusBadRequest, "Source key required")
		return
	}
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	tracklists, err := s.service.ListTracklists()
	if err != nil {
		s.log.Errorf("Failed to list tracklists: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve tracklists")
		return
	}

	dtos := make([]TracklistDTO, len(tracklists))
	for i, tl := range tracklists {
		dtos[i] = toDTO(tl)
	}
	s.respondJSON(w, http.StatusOK, ListTracklistsResponse{
		Tracklists: dtos,
		Count:      len(dtos),
	})
}

// handleTracklist routes requests to /api/tracklists/{key}
func (s *Server) handleTracklist(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/api/tracklists/")
	if key == "" {
		s.respondError(w, http.StatusBadRequest, "Source key required")
		return
	}
	s.serveTracklist(w, r, key)
}

func (s *Server) serveTracklist(w http.ResponseWriter, r *http.Request, key string) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetTracklist(w, key)
	case http.MethodDelete:
		s.handleDeleteTracklist(w, key)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleGetTracklist(w http.ResponseWriter, key string) {
	tl, err := s.service.GetTracklist(key)
	if errors.Is(err, models.ErrTracklistNotFound) {
		s.respondError(w, http.StatusNotFound, "Tracklist not found")
		return
	}
	if err != nil {
		s.log.Errorf("Failed to get tracklist %s: %v", key, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve tracklist")
		return
	}
	s.respondJSON(w, http.StatusOK, toDTO(*tl))
}

func (s *Server) handleDeleteTracklist(w http.ResponseWriter, key string) {
	err := s.service.DeleteTracklist(key)
	if errors.Is(err, models.ErrTracklistNotFound) {
		s.respondError(w, http.StatusNotFound, "Tracklist not found")
		return
	}
	if err != nil {
		s.log.Errorf("Failed to delete tracklist %s: %v", key, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete tracklist")
		return
	}

	s.log.Infof("Deleted tracklist %s", key)
	s.respondJSON(w, http.StatusOK, DeleteTracklistResponse{
		Message:   "Tracklist deleted successfully",
		SourceKey: key,
	})
}
