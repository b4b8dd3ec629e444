package server

import (
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"strings"

	"github.com/paulmach/orb"

	"exploration-planner/internal/costfield"
	"exploration-planner/internal/explore"
	"exploration-planner/internal/geometry"
	"exploration-planner/internal/grid"
	"exploration-planner/internal/mapgen"
	"exploration-planner/internal/pose"
	"exploration-planner/internal/sequencing"
	"exploration-planner/internal/subgoal"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) toOrb() orb.Point { return orb.Point{p.X, p.Y} }

func fromOrb(pts []orb.Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: p[0], Y: p[1]}
	}
	return out
}

type MazeRequest struct {
	Cols      int   `json:"cols"`
	Rows      int   `json:"rows"`
	PathWidth int   `json:"pathWidth"`
	WallWidth int   `json:"wallWidth"`
	Seed      int64 `json:"seed"`
}

type MapRequest struct {
	ASCII      string       `json:"ascii,omitempty"`
	Maze       *MazeRequest `json:"maze,omitempty"`
	Resolution float64      `json:"resolution,omitempty"`
	Force      bool         `json:"force,omitempty"` // Set to true to replace a loaded map
}

type MapResponse struct {
	Success   bool   `json:"success"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Free      int    `json:"free"`
	Obstacles int    `json:"obstacles"`
	Start     *Point `json:"start,omitempty"`
	Goal      *Point `json:"goal,omitempty"`
}

type RouteRequest struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

type RouteResponse struct {
	Path     []Point `json:"path"`
	Success  bool    `json:"success"`
	Message  string  `json:"message,omitempty"`
	Distance float64 `json:"distance,omitempty"`
}

type PlanRequest struct {
	Subgoals []subgoal.Subgoal `json:"subgoals"`
	Costs    map[int]float64   `json:"costs"`
	Backup   *float64          `json:"backup,omitempty"`
}

type PlanResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Plan    sequencing.Plan `json:"plan"`
}

type ExploreRequest struct {
	Start     *Point `json:"start,omitempty"` // Optional: sampled when start or goal is missing
	Goal      *Point `json:"goal,omitempty"`
	Seed      int64  `json:"seed,omitempty"`
	Estimator string `json:"estimator,omitempty"`
	MaxSteps  int    `json:"maxSteps,omitempty"`
}

type ExploreResponse struct {
	Success  bool           `json:"success"`
	State    string         `json:"state"`
	Message  string         `json:"message,omitempty"`
	Distance float64        `json:"distance"`
	Trace    *explore.Trace `json:"trace,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️  Failed to encode response: %v\n", err)
	}
}

// GET /health - Health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	truth, _, err := s.snapshot()
	status := "ready"
	width, height := 0, 0
	if err != nil {
		status = "waiting for map"
	} else {
		width, height = truth.Width, truth.Height
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"hasMap": err == nil,
		"width":  width,
		"height": height,
	})
}

// POST /map - Load the ground-truth map from ASCII or generate a maze
func (s *Server) mapHandler(w http.ResponseWriter, r *http.Request) {
	log.Println("========================================")
	log.Println("🗺️  Load map request received")

	if r.Method != http.MethodPost {
		log.Printf("❌ Method not allowed: %s\n", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req MapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Invalid request body: %v\n", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if _, _, err := s.snapshot(); err == nil && !req.Force {
		log.Println("⚠️  Map already loaded")
		log.Println("   To replace it, set force:true in request or restart the server")
		log.Println("========================================")
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"success": false,
			"error":   "map already loaded",
			"message": "A map is already loaded. Set 'force: true' to replace it.",
		})
		return
	}

	if req.Resolution == 0 {
		req.Resolution = 1
	}

	resp := MapResponse{}
	var g *grid.Grid
	switch {
	case req.ASCII != "":
		m, err := grid.ParseASCII(strings.NewReader(req.ASCII), req.Resolution)
		if err != nil {
			log.Printf("❌ Invalid map: %v\n", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		g = m.Grid
		if m.Start != nil {
			p := g.CellCenter(m.Start.X, m.Start.Y)
			resp.Start = &Point{X: p[0], Y: p[1]}
		}
		if m.Goal != nil {
			p := g.CellCenter(m.Goal.X, m.Goal.Y)
			resp.Goal = &Point{X: p[0], Y: p[1]}
		}
	case req.Maze != nil:
		spec := mapgen.MazeSpec{
			Cols:       req.Maze.Cols,
			Rows:       req.Maze.Rows,
			PathWidth:  req.Maze.PathWidth,
			WallWidth:  req.Maze.WallWidth,
			Resolution: req.Resolution,
		}
		var err error
		g, err = mapgen.Maze(spec, rand.New(rand.NewSource(req.Maze.Seed)))
		if err != nil {
			log.Printf("❌ Invalid maze: %v\n", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	default:
		log.Println("❌ Request has neither ascii nor maze")
		http.Error(w, "Request needs ascii or maze", http.StatusBadRequest)
		return
	}

	if err := s.SetMap(g); err != nil {
		log.Printf("❌ Failed to extract geometry: %v\n", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	_, set, _ := s.snapshot()

	resp.Success = true
	resp.Width, resp.Height = g.Width, g.Height
	resp.Free = g.Count(grid.Free)
	resp.Obstacles = len(set.Obstacles)

	log.Printf("   Size: %d x %d cells at %.3f\n", g.Width, g.Height, g.Resolution)
	log.Printf("   Free cells: %d, obstacles: %d\n", resp.Free, resp.Obstacles)
	log.Println("✅ Map loaded")
	log.Println("========================================")
	writeJSON(w, http.StatusOK, resp)
}

// GET /obstacles - Get map polygons as a GeoJSON feature collection
func (s *Server) obstaclesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, set, err := s.snapshot()
	if err != nil {
		log.Println("❌ Map not loaded")
		http.Error(w, "Map not loaded. Call /map first", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	if err := geometry.WriteGeoJSON(w, set); err != nil {
		log.Printf("⚠️  %v\n", err)
	}
}

func (s *Server) fieldOptions() []costfield.Option {
	opts := []costfield.Option{costfield.WithConnectivity(costfield.Connectivity(s.cfg.Planner.Connectivity))}
	if s.cfg.Planner.UnknownPassable {
		opts = append(opts, costfield.WithUnknownPassable())
	}
	return opts
}

// POST /route - Shortest path on the loaded map
func (s *Server) routeHandler(w http.ResponseWriter, r *http.Request) {
	log.Println("========================================")
	log.Println("📍 Route request received")

	if r.Method != http.MethodPost {
		log.Printf("❌ Method not allowed: %s\n", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Invalid request body: %v\n", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	truth, _, err := s.snapshot()
	if err != nil {
		log.Println("❌ Map not loaded")
		http.Error(w, "Map not loaded. Call /map first", http.StatusBadRequest)
		log.Println("========================================")
		return
	}

	log.Printf("   Start: (%.3f, %.3f)\n", req.Start.X, req.Start.Y)
	log.Printf("   End:   (%.3f, %.3f)\n", req.End.X, req.End.Y)

	planning := truth.Inflate(s.cfg.Planner.InflationRadius)
	path, cost, err := costfield.PathBetween(planning, req.Start.toOrb(), req.End.toOrb(), s.fieldOptions()...)
	switch {
	case errors.Is(err, costfield.ErrOutOfBounds):
		log.Printf("❌ %v\n", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		log.Println("========================================")
		return
	case errors.Is(err, costfield.ErrUnreachableGoal):
		log.Println("❌ No path found")
		writeJSON(w, http.StatusOK, RouteResponse{
			Success: false,
			Message: "No path found between start and end",
		})
		log.Println("========================================")
		return
	case err != nil:
		log.Printf("❌ %v\n", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Path found with %d waypoints\n", len(path))
	log.Printf("   Cost: %.3f\n", cost)
	writeJSON(w, http.StatusOK, RouteResponse{
		Path:     fromOrb(path),
		Success:  true,
		Distance: cost,
	})
	log.Println("========================================")
}

// POST /plan - Order subgoals by expected cost
func (s *Server) planHandler(w http.ResponseWriter, r *http.Request) {
	log.Println("========================================")
	log.Println("🧭 Plan request received")

	if r.Method != http.MethodPost {
		log.Printf("❌ Method not allowed: %s\n", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Invalid request body: %v\n", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	for _, sg := range req.Subgoals {
		if err := sg.Validate(); err != nil {
			log.Printf("❌ Subgoal %d: %v\n", sg.ID, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	backup := s.cfg.Planner.BackupCost
	if req.Backup != nil {
		backup = *req.Backup
	}
	if err := sequencing.CheckBackup(backup); err != nil {
		log.Printf("❌ %v\n", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	plan := sequencing.Compute(req.Costs, req.Subgoals, backup)
	log.Printf("   Subgoals: %d, ordered: %d\n", len(req.Subgoals), len(plan.Order))
	if plan.Empty() {
		log.Println("⚠️  No subgoal can be visited")
		writeJSON(w, http.StatusOK, PlanResponse{Plan: plan, Message: "No subgoal has a known cost"})
		log.Println("========================================")
		return
	}
	log.Printf("✅ Order %v, expected cost %.3f\n", plan.Order, plan.ExpectedCost)
	writeJSON(w, http.StatusOK, PlanResponse{Success: true, Plan: plan})
	log.Println("========================================")
}

// POST /explore - Run a simulated exploration session on the loaded map
func (s *Server) exploreHandler(w http.ResponseWriter, r *http.Request) {
	log.Println("========================================")
	log.Println("🚀 Explore request received")

	if r.Method != http.MethodPost {
		log.Printf("❌ Method not allowed: %s\n", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ExploreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ Invalid request body: %v\n", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	truth, _, err := s.snapshot()
	if err != nil {
		log.Println("❌ Map not loaded")
		http.Error(w, "Map not loaded. Call /map first", http.StatusBadRequest)
		log.Println("========================================")
		return
	}

	cfg := *s.cfg
	if req.Estimator != "" {
		cfg.Planner.Estimator = req.Estimator
	}
	if req.MaxSteps > 0 {
		cfg.Planner.MaxSteps = req.MaxSteps
	}

	var start pose.Pose
	var goal orb.Point
	if req.Start != nil && req.Goal != nil {
		start = pose.FromPoint(req.Start.toOrb(), 0)
		goal = req.Goal.toOrb()
	} else {
		log.Println("🎲 Sampling start and goal...")
		rng := rand.New(rand.NewSource(req.Seed))
		sp, gp, err := mapgen.StartGoal(truth, rng, mapgen.StartGoalOptions{InflationRadius: cfg.Planner.InflationRadius})
		if err != nil {
			log.Printf("❌ %v\n", err)
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		start, goal = sp, gp.Point()
	}
	log.Printf("   Start: %s\n", start)
	log.Printf("   Goal:  (%.3f, %.3f)\n", goal[0], goal[1])

	session, state, err := explore.Simulate(r.Context(), truth, start, goal, &cfg, nil)
	if session == nil {
		log.Printf("❌ Could not start session: %v\n", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		log.Println("========================================")
		return
	}

	trace := session.Trace()
	resp := ExploreResponse{
		Success:  state == explore.GoalReached,
		State:    state.String(),
		Distance: trace.Distance(),
		Trace:    &trace,
	}
	if err != nil {
		resp.Message = err.Error()
		log.Printf("❌ Session ended in %s: %v\n", state, err)
	} else {
		log.Printf("✅ Goal reached after %d planning cycles\n", len(trace.Cycles))
		log.Printf("   Distance: %.3f\n", resp.Distance)
	}
	writeJSON(w, http.StatusOK, resp)
	log.Println("========================================")
}
