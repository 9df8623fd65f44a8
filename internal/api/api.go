package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/tstat-bridge/db"
	"github.com/thatsimonsguy/tstat-bridge/internal/codec"
	"github.com/thatsimonsguy/tstat-bridge/internal/points"
	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
)

const defaultHistoryLimit = 50

// Bridge is the sync loop surface the API drives. Refresh reads the device
// without publishing or recording the snapshot.
type Bridge interface {
	Latest() (proxy.Snapshot, bool)
	Refresh(ctx context.Context) proxy.Snapshot
	Apply(ctx context.Context, cmd proxy.Command) proxy.ApplyResult
}

type Server struct {
	registry *points.Registry
	bridge   Bridge
	db       *sql.DB
	srv      *http.Server
}

type PointResponse struct {
	Name    string    `json:"name"`
	Unit    string    `json:"unit,omitempty"`
	Kind    string    `json:"kind"`
	Address string    `json:"address"`
	Access  string    `json:"access"`
	Min     *float64  `json:"min,omitempty"`
	Max     *float64  `json:"max,omitempty"`
	Codes   []float64 `json:"codes,omitempty"`
}

type StateResponse struct {
	Time     time.Time          `json:"time"`
	Values   map[string]float64 `json:"values"`
	Failures map[string]string  `json:"failures,omitempty"`
}

type OutcomeResponse struct {
	Point    string   `json:"point"`
	Value    float64  `json:"value"`
	Accepted bool     `json:"accepted"`
	Raw      *float64 `json:"raw,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type CommandResponse struct {
	OK       bool              `json:"ok"`
	Outcomes []OutcomeResponse `json:"outcomes"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the API. history may be nil, in which case the history
// endpoints answer 404.
func NewServer(registry *points.Registry, bridge Bridge, history *sql.DB) *Server {
	s := &Server{
		registry: registry,
		bridge:   bridge,
		db:       history,
	}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/points", s.handlePoints)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/command", s.handleCommand)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/commands", s.handleCommands)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		mux.ServeHTTP(w, r)
	})
}

// Start serves until Shutdown is called. It returns nil after a clean
// shutdown, including one that happened before Start.
func (s *Server) Start(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	log.Info().Str("address", ln.Addr().String()).Msg("Starting REST API server")

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var response []PointResponse
	for _, d := range s.registry.All() {
		p := PointResponse{
			Name:    d.Name,
			Unit:    d.Unit,
			Kind:    d.Kind.String(),
			Address: d.Address,
			Access:  d.Access.String(),
		}
		if d.Range.Enumerated() {
			p.Codes = d.Range.Codes
		} else {
			lo, hi := d.Range.Min, d.Range.Max
			p.Min, p.Max = &lo, &hi
		}
		response = append(response, p)
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	snap, ok := s.bridge.Latest()
	if !ok || r.URL.Query().Get("fresh") == "true" {
		snap = s.bridge.Refresh(r.Context())
	}

	response := StateResponse{
		Time:   snap.Time,
		Values: make(map[string]float64, len(snap.Readings)),
	}
	for _, reading := range snap.Readings {
		response.Values[reading.Point] = reading.Value
	}
	if snap.Partial() {
		response.Failures = make(map[string]string, len(snap.Failures))
		for _, f := range snap.Failures {
			response.Failures[f.Point] = f.Err.Error()
		}
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	cmd := codec.CommandFromMap(req, s.registry)
	if len(cmd) == 0 {
		s.writeError(w, http.StatusBadRequest, "Empty command")
		return
	}

	res := s.bridge.Apply(r.Context(), cmd)

	response := CommandResponse{OK: res.OK()}
	for _, o := range res.Outcomes {
		out := OutcomeResponse{Point: o.Point, Value: o.Value, Accepted: o.Accepted()}
		if o.Accepted() {
			raw := float64(o.Raw)
			out.Raw = &raw
		} else {
			out.Error = o.Err.Error()
		}
		response.Outcomes = append(response.Outcomes, out)
	}

	log.Info().
		Strs("points", cmd.Points()).
		Int("rejected", len(res.Rejected())).
		Msg("Command applied via API")

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.historyRequest(w, r) {
		return
	}

	point := r.URL.Query().Get("point")
	if _, err := s.registry.Lookup(point); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	readings, err := db.PointHistory(s.db, point, limit(r))
	if err != nil {
		log.Error().Err(err).Str("point", point).Msg("Failed to read history")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, readings)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	if !s.historyRequest(w, r) {
		return
	}

	outcomes, err := db.RecentCommands(s.db, limit(r))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read command history")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, outcomes)
}

func (s *Server) historyRequest(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	if s.db == nil {
		s.writeError(w, http.StatusNotFound, "History not enabled")
		return false
	}
	return true
}

func limit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return defaultHistoryLimit
	}
	return n
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
