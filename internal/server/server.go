// Package server exposes the planner over a small JSON HTTP API for
// debugging and visualisation.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"exploration-planner/internal/config"
	"exploration-planner/internal/geometry"
	"exploration-planner/internal/grid"
)

// ErrNoMap indicates a request needs a map and none has been loaded.
var ErrNoMap = errors.New("server: no map loaded")

// Server holds the ground-truth map shared by all requests.
type Server struct {
	cfg *config.Config

	mu        sync.RWMutex
	truth     *grid.Grid
	obstacles geometry.PolygonSet
}

// New creates a server. A nil cfg uses the defaults.
func New(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Server{cfg: cfg}
}

// SetMap replaces the ground-truth map and its extracted geometry.
func (s *Server) SetMap(g *grid.Grid) error {
	set, err := geometry.Extract(g)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.truth = g
	s.obstacles = set
	s.mu.Unlock()
	return nil
}

func (s *Server) snapshot() (*grid.Grid, geometry.PolygonSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.truth == nil {
		return nil, geometry.PolygonSet{}, ErrNoMap
	}
	return s.truth, s.obstacles, nil
}

// Handler returns the routed handler with CORS applied to every endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/map", s.corsMiddleware(s.mapHandler))
	mux.HandleFunc("/obstacles", s.corsMiddleware(s.obstaclesHandler))
	mux.HandleFunc("/route", s.corsMiddleware(s.routeHandler))
	mux.HandleFunc("/plan", s.corsMiddleware(s.planHandler))
	mux.HandleFunc("/explore", s.corsMiddleware(s.exploreHandler))
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️  Shutdown error: %v\n", err)
		}
	}()

	log.Printf("Server starting on %s\n", addr)
	log.Println("")
	log.Println("Endpoints:")
	log.Println("  POST /map        - Load a ground-truth map (ASCII or generated maze)")
	log.Println("  GET  /obstacles  - Get map polygons as GeoJSON")
	log.Println("  POST /route      - Shortest path between two points on the map")
	log.Println("  POST /plan       - Order subgoals by expected cost")
	log.Println("  POST /explore    - Run a simulated exploration session")
	log.Println("  GET  /health     - Check server status")
	log.Println("")
	log.Printf("CORS enabled for origin %q\n", s.cfg.Server.CORSOrigin)
	log.Println("========================================")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// corsMiddleware adds CORS headers to allow frontend requests
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.Server.CORSOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}
