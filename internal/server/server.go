// Package server accepts recorder chunks over HTTP and WebSocket, stores
// them per session and repairs chunks that arrive without a header.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/go-mediafix/internal/config"
	"github.com/autobrr/go-mediafix/internal/media"
	"github.com/autobrr/go-mediafix/internal/store"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	cfg   config.ServerConfig
	store *store.Store
	opts  media.Options
	log   logrus.FieldLogger

	locks    *sessionLocks
	upgrader websocket.Upgrader
}

// New returns a server writing to st. opts are passed to every repair.
func New(cfg config.ServerConfig, st *store.Store, opts media.Options) *Server {
	return &Server{
		cfg:   cfg,
		store: st,
		opts:  opts,
		log:   opts.Log().WithField("component", "server"),
		locks: newSessionLocks(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 4 * 1024,
			// Recorders run on other origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the routed handler with logging and auth applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)

	protected := http.NewServeMux()
	protected.HandleFunc("POST /audio/{session}", s.handleAudio)
	protected.HandleFunc("POST /debug/{session}", s.handleDebug)
	protected.HandleFunc("POST /repair/{session}", s.handleRepair)
	protected.HandleFunc("GET /ws/{session}", s.handleWebSocket)
	protected.HandleFunc("GET /sessions/{session}", s.handleSession)

	var h http.Handler = protected
	if s.cfg.Auth.Enabled() {
		h = newBasicAuth(s.cfg.Auth, s.log).wrap(h)
	}
	mux.Handle("/", h)
	return s.logRequests(mux)
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.WithField("listen", s.cfg.Listen).Info("serving")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}
