package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/copyleftdev/icemaze/internal/config"
	"github.com/copyleftdev/icemaze/internal/errors"
	"github.com/copyleftdev/icemaze/internal/logging"
	"github.com/copyleftdev/icemaze/internal/maze"
	"github.com/copyleftdev/icemaze/internal/metrics"
	"github.com/copyleftdev/icemaze/internal/optimization"
	"github.com/copyleftdev/icemaze/internal/optimization/genetic"
	"github.com/copyleftdev/icemaze/internal/pathfind"
	"github.com/copyleftdev/icemaze/internal/store"
)

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Optimization job states.
const (
	StatusPending    = "pending"
	StatusRunning    = "running"
	StatusCompleted  = "completed"
	StatusUnsolvable = "unsolvable"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

func terminal(status string) bool {
	switch status {
	case StatusCompleted, StatusUnsolvable, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

var (
	errNotFound     = errors.New("optimization not found").WithComponent("server")
	errInvalidInput = errors.New("invalid request").WithComponent("server")
)

// OptimizationState represents the state of an optimization job.
// Fields are guarded by Server.optimizationsMu.
type OptimizationState struct {
	ID          string
	Status      string
	Layout      string
	WallCount   int
	Generations int
	Generation  int
	StartTime   time.Time
	EndTime     *time.Time
	Progress    float64
	Best        *optimization.Candidate
	Result      *optimization.OptimizationResult
	Error       string
	Optimizer   optimization.Optimizer
	CancelFunc  context.CancelFunc
	LastUpdated time.Time
}

// Server implements the HTTP and JSON-RPC server for the maze service.
// It solves mazes synchronously and runs wall optimizations as background
// jobs that can be monitored, streamed, and cancelled.
type Server struct {
	cfg     *config.Config
	logger  Logger
	store   *store.Store
	metrics *metrics.Metrics
	hub     *Hub

	hubCancel context.CancelFunc
	slots     chan struct{}
	wg        sync.WaitGroup

	// Optimization state management
	optimizations   map[string]*OptimizationState
	optimizationsMu sync.RWMutex // Protects the optimizations map
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithStore persists finished runs to st.
func WithStore(st *store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithMetrics records solves and optimizations in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a new server instance with the given config and logger
// and starts its websocket hub.
func NewServer(cfg *config.Config, logger Logger, opts ...Option) *Server {
	maxConcurrent := cfg.Optimization.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	s := &Server{
		cfg:           cfg,
		logger:        logger,
		slots:         make(chan struct{}, maxConcurrent),
		optimizations: make(map[string]*OptimizationState),
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.hub = NewHub(logger)
	s.hubCancel = cancel
	go s.hub.Run(ctx)

	return s
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/solve", s.handleSolve)
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
		r.Get("/optimization/{id}/ws", s.handleWebSocket)
		r.Get("/runs", s.handleRuns)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// SolveRequest is the body of a solve call.
type SolveRequest struct {
	Layout string `json:"layout"`
}

// SolveResponse reports the shortest tour. Rendered overlays the path.
type SolveResponse struct {
	Solvable bool       `json:"solvable"`
	Length   int        `json:"length"`
	Path     maze.Route `json:"path"`
	Rendered string     `json:"rendered,omitempty"`
}

// OptimizeRequest starts a wall optimization. Unset fields use the
// configured defaults.
type OptimizeRequest struct {
	Layout         string   `json:"layout"`
	Walls          int      `json:"walls"`
	PopulationSize *int     `json:"population_size,omitempty"`
	EliteCount     *int     `json:"elite_count,omitempty"`
	MutationRate   *float64 `json:"mutation_rate,omitempty"`
	Generations    *int     `json:"generations,omitempty"`
	Seed           int64    `json:"seed,omitempty"`
}

// StartResponse acknowledges a started optimization.
type StartResponse struct {
	OptimizationID string `json:"optimization_id"`
	Status         string `json:"status"`
}

// StatusResponse describes an optimization job.
type StatusResponse struct {
	OptimizationID string                         `json:"optimization_id"`
	Status         string                         `json:"status"`
	Generation     int                            `json:"generation"`
	Generations    int                            `json:"generations"`
	Progress       float64                        `json:"progress"`
	StartTime      string                         `json:"start_time"`
	EndTime        string                         `json:"end_time,omitempty"`
	LastUpdate     string                         `json:"last_update"`
	BestFitness    int                            `json:"best_fitness"`
	BestWalls      []maze.Point                   `json:"best_walls,omitempty"`
	Path           maze.Route                     `json:"path,omitempty"`
	Rendered       string                         `json:"rendered,omitempty"`
	Evaluations    int                            `json:"evaluations,omitempty"`
	History        []optimization.GenerationStats `json:"history,omitempty"`
	Error          string                         `json:"error,omitempty"`
}

// solve runs the pathfinder on layout.
func (s *Server) solve(req SolveRequest) (*SolveResponse, error) {
	grid, err := maze.ParseString(req.Layout)
	if err != nil {
		return nil, errors.Wrap(err, "parse layout").WithOperation("solve")
	}

	start := time.Now()
	route, err := pathfind.Solve(grid)
	s.metrics.ObserveSolve(time.Since(start))

	switch {
	case err == nil:
		return &SolveResponse{
			Solvable: true,
			Length:   len(route),
			Path:     route,
			Rendered: maze.Render(grid.Overlay(route)),
		}, nil
	case stderrors.Is(err, pathfind.ErrUnsolvable):
		return &SolveResponse{Path: maze.Route{}}, nil
	default:
		return nil, err
	}
}

// startOptimization validates req and launches the job in the background.
func (s *Server) startOptimization(req OptimizeRequest) (*StartResponse, error) {
	grid, err := maze.ParseString(req.Layout)
	if err != nil {
		return nil, errors.Wrap(err, "parse layout").WithOperation("optimize")
	}

	cfg := s.cfg.OptimizerDefaults()
	cfg.WallCount = req.Walls
	cfg.RandomSeed = req.Seed
	if req.PopulationSize != nil {
		cfg.PopulationSize = *req.PopulationSize
	}
	if req.EliteCount != nil {
		cfg.EliteCount = *req.EliteCount
	}
	if req.MutationRate != nil {
		cfg.MutationRate = *req.MutationRate
	}
	if req.Generations != nil {
		cfg.Generations = *req.Generations
	}
	if err := cfg.Validate(grid); err != nil {
		return nil, errors.Wrap(err, "validate").WithOperation("optimize")
	}

	id := ulid.Make().String()
	ctx, cancel := context.WithCancel(context.Background())

	optLogger := s.logger.WithFields(map[string]interface{}{"optimization_id": id})
	optimizer := genetic.NewGeneticOptimizer(logging.NewZapLogger(optLogger), s.metrics)

	now := time.Now()
	state := &OptimizationState{
		ID:          id,
		Status:      StatusPending,
		Layout:      maze.Render(grid),
		WallCount:   cfg.WallCount,
		Generations: cfg.Generations,
		StartTime:   now,
		Optimizer:   optimizer,
		CancelFunc:  cancel,
		LastUpdated: now,
	}

	s.optimizationsMu.Lock()
	s.optimizations[id] = state
	s.optimizationsMu.Unlock()

	s.logger.Info("Optimization queued", map[string]interface{}{
		"optimization_id": id,
		"walls":           cfg.WallCount,
		"generations":     cfg.Generations,
	})

	s.wg.Add(1)
	go s.runOptimization(ctx, state, grid, cfg)

	return &StartResponse{OptimizationID: id, Status: StatusPending}, nil
}

// runOptimization executes the optimization process in a goroutine
func (s *Server) runOptimization(ctx context.Context, state *OptimizationState, grid *maze.Grid, cfg optimization.OptimizerConfig) {
	defer s.wg.Done()
	defer state.CancelFunc()

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		s.finish(state, nil, ctx.Err())
		return
	}

	s.optimizationsMu.Lock()
	if state.Status == StatusPending {
		state.Status = StatusRunning
		state.LastUpdated = time.Now()
	}
	s.optimizationsMu.Unlock()

	reportEvery := s.cfg.Optimization.ReportEvery
	cfg.OnGeneration = func(stats optimization.GenerationStats) {
		s.optimizationsMu.Lock()
		state.Generation = stats.Generation
		state.Progress = float64(stats.Generation) / float64(cfg.Generations)
		state.Best = state.Optimizer.GetBestSolution()
		state.LastUpdated = time.Now()
		s.optimizationsMu.Unlock()

		if reportEvery > 0 && stats.Generation%reportEvery != 0 && stats.Generation != cfg.Generations {
			return
		}
		s.hub.Broadcast(&Event{OptimizationID: state.ID, Event: EventGeneration, Data: stats})
		s.logger.Debug("Optimization progress", map[string]interface{}{
			"optimization_id": state.ID,
			"generation":      stats.Generation,
			"best_fitness":    stats.Best,
		})
	}

	result, err := state.Optimizer.Optimize(ctx, grid, cfg)
	s.finish(state, result, err)
}

// finish records the outcome, persists it, and notifies subscribers.
func (s *Server) finish(state *OptimizationState, result *optimization.OptimizationResult, err error) {
	s.optimizationsMu.Lock()
	now := time.Now()
	switch {
	case state.Status == StatusCancelled:
		// cancelled by request; keep it
	case err != nil && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)):
		state.Status = StatusCancelled
	case err != nil:
		state.Status = StatusFailed
		state.Error = err.Error()
	case !result.Solvable:
		state.Status = StatusUnsolvable
	default:
		state.Status = StatusCompleted
	}
	if result != nil {
		state.Result = result
		state.Best = result.Best
		state.Progress = 1
	}
	state.EndTime = &now
	state.LastUpdated = now
	status := state.Status
	run := s.runRecord(state)
	s.optimizationsMu.Unlock()

	s.metrics.RecordOutcome(status)
	fields := map[string]interface{}{
		"optimization_id": state.ID,
		"status":          status,
	}
	if err != nil && status == StatusFailed {
		fields["error"] = err.Error()
		s.logger.Error("Optimization failed", fields)
	} else {
		s.logger.Info("Optimization finished", fields)
	}

	if s.store != nil {
		if err := s.store.Save(context.Background(), run); err != nil {
			s.logger.Error("Failed to persist run", map[string]interface{}{
				"optimization_id": state.ID,
				"error":           err.Error(),
			})
		}
	}

	s.hub.Broadcast(&Event{OptimizationID: state.ID, Event: EventFinished, Data: map[string]interface{}{
		"status":       status,
		"best_fitness": run.BestFitness,
	}})
}

// runRecord converts state into its persisted form. Caller holds the lock.
func (s *Server) runRecord(state *OptimizationState) store.Run {
	run := store.Run{
		ID:        state.ID,
		Status:    state.Status,
		Layout:    state.Layout,
		WallCount: state.WallCount,
		Error:     state.Error,
		CreatedAt: state.StartTime.UTC(),
		UpdatedAt: state.LastUpdated.UTC(),
	}
	if state.Best != nil {
		run.Walls = state.Best.Walls
		run.BestFitness = state.Best.Fitness
	}
	if state.Result != nil {
		run.Path = state.Result.Path
		run.Generations = state.Result.Generations
		run.Evaluations = state.Result.Evaluations
	} else {
		run.Generations = state.Generation
	}
	return run
}

// status snapshots the job with the given id.
func (s *Server) status(id string) (*StatusResponse, error) {
	s.optimizationsMu.RLock()
	defer s.optimizationsMu.RUnlock()

	state, ok := s.optimizations[id]
	if !ok {
		return nil, errors.Wrapf(errNotFound, "optimization %s", id).WithOperation("status")
	}

	resp := &StatusResponse{
		OptimizationID: state.ID,
		Status:         state.Status,
		Generation:     state.Generation,
		Generations:    state.Generations,
		Progress:       state.Progress,
		StartTime:      state.StartTime.Format(time.RFC3339),
		LastUpdate:     state.LastUpdated.Format(time.RFC3339),
		Error:          state.Error,
	}
	if state.EndTime != nil {
		resp.EndTime = state.EndTime.Format(time.RFC3339)
	}

	best := state.Best
	if best == nil && state.Optimizer != nil {
		best = state.Optimizer.GetBestSolution()
	}
	if best != nil {
		resp.BestFitness = best.Fitness
		resp.BestWalls = best.Walls
	}

	if r := state.Result; r != nil {
		resp.Evaluations = r.Evaluations
		resp.History = r.History
		if r.Solvable {
			resp.Path = r.Path
			if grid, err := maze.ParseString(state.Layout); err == nil {
				if walled, err := grid.WithWalls(r.Best.Walls); err == nil {
					resp.Rendered = maze.Render(walled.Overlay(r.Path))
				}
			}
		}
	}
	return resp, nil
}

// cancel requests cancellation of a non-terminal job.
func (s *Server) cancel(id string) error {
	s.optimizationsMu.Lock()
	defer s.optimizationsMu.Unlock()

	state, ok := s.optimizations[id]
	if !ok {
		return errors.Wrapf(errNotFound, "optimization %s", id).WithOperation("cancel")
	}
	if terminal(state.Status) {
		return errors.Wrapf(errInvalidInput, "cannot cancel optimization with status: %s", state.Status).
			WithOperation("cancel")
	}

	if state.CancelFunc != nil {
		state.CancelFunc()
	}
	state.Status = StatusCancelled
	state.LastUpdated = time.Now()

	s.logger.Info("Optimization cancelled", map[string]interface{}{
		"optimization_id": id,
	})
	return nil
}

// Close cancels running optimizations, waits for them to finish, and stops
// the websocket hub.
func (s *Server) Close() error {
	s.optimizationsMu.RLock()
	for _, opt := range s.optimizations {
		if opt.CancelFunc != nil {
			opt.CancelFunc()
		}
	}
	s.optimizationsMu.RUnlock()

	s.wg.Wait()
	s.hubCancel()
	<-s.hub.done
	return nil
}

// httpStatus maps service errors onto HTTP status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, errNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errInvalidInput),
		errors.Is(err, optimization.ErrInvalidConfig),
		errors.Is(err, optimization.ErrInvalidWall),
		errors.Is(err, maze.ErrInvalidMap):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatus(err), map[string]interface{}{
		"error": err.Error(),
	})
}

// handleSolve handles POST /api/v1/solve
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errInvalidInput, fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	resp, err := s.solve(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleOptimize handles POST /api/v1/optimize for starting a new optimization
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errInvalidInput, fmt.Sprintf("invalid request body: %v", err)))
		return
	}

	resp, err := s.startOptimization(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// handleStatus handles GET /api/v1/status/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.status(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCancel handles DELETE /api/v1/optimization/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.cancel(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "cancellation requested",
	})
}

// handleWebSocket subscribes the caller to progress events of one job.
// Subscribing to a finished job yields its final event and a close.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.optimizationsMu.RLock()
	_, ok := s.optimizations[id]
	s.optimizationsMu.RUnlock()
	if !ok {
		s.writeError(w, errors.Wrapf(errNotFound, "optimization %s", id))
		return
	}

	s.hub.ServeWS(w, r, id)
}

// handleRuns handles GET /api/v1/runs?limit=N
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, errors.Wrapf(errInvalidInput, "invalid limit %q", v))
			return
		}
		limit = n
	}

	if s.store == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"runs": []store.Run{}})
		return
	}

	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}
