// internal/common/http/server.go
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rehmat-agent/internal/common/livekit"
	"rehmat-agent/internal/common/logger"
)

// TokenMinter issues customer room tokens.
type TokenMinter interface {
	CustomerToken() (*livekit.TokenResponse, error)
}

type ServerOptions struct {
	Port int
	// Ready reports whether the worker finished setup.
	Ready   func() bool
	Tokens  TokenMinter
	Webhook http.Handler
	Metrics http.Handler
	Logger  logger.Logger
}

// Server serves health, metrics, the customer token route and the LiveKit
// webhook on one port.
type Server struct {
	srv *http.Server
	log logger.Logger
}

func NewServer(opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ready != nil && !opts.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.Handle("GET /metrics", opts.Metrics)
	if opts.Tokens != nil {
		mux.HandleFunc("GET /api/token", tokenHandler(opts.Tokens, opts.Logger))
	}
	if opts.Webhook != nil {
		mux.Handle("POST /livekit/webhook", opts.Webhook)
	}

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", opts.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: opts.Logger,
	}
}

func tokenHandler(tokens TokenMinter, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := tokens.CustomerToken()
		if err != nil {
			msg := "Failed to create token"
			if errors.Is(err, livekit.ErrMisconfigured) {
				msg = livekit.ErrMisconfigured.Error()
			}
			log.Error("Token request failed", map[string]interface{}{"error": err.Error()})
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
			return
		}
		log.Info("Customer token issued", map[string]interface{}{"room": resp.RoomName})
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", map[string]interface{}{"addr": s.srv.Addr})
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
