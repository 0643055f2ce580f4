// Package web exposes the read-only query API consumed by the presentation
// layer. No mutation path back into the core.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/defstats/go-match-risk/internal/corpus"
)

// Server serves cached corpus artifacts over HTTP.
type Server struct {
	agg        *corpus.Aggregator
	httpServer *http.Server
}

func NewServer(agg *corpus.Aggregator) *Server {
	return &Server{agg: agg}
}

// Handler builds the routed, CORS-wrapped handler. Split out so tests can
// exercise routes without a listener.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/matches", s.handleMatches).Methods("GET")
	api.HandleFunc("/matches/{id}/risk", s.handleRisk).Methods("GET")
	api.HandleFunc("/matches/{id}/dangers", s.handleDangers).Methods("GET")
	api.HandleFunc("/matches/{id}/window", s.handleWindow).Methods("GET")
	api.HandleFunc("/patterns", s.handlePatterns).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(router)
}

// Start blocks serving on addr until Stop or a listener error.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"matches": s.agg.Matches()})
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	series, err := s.agg.RiskSeries(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"match_id": id, "series": series})
}

func (s *Server) handleDangers(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	episodes, err := s.agg.Dangers(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	type episodeJSON struct {
		PeakTime       int      `json:"peak_time"`
		WindowStart    int      `json:"window_start"`
		WindowEnd      int      `json:"window_end"`
		PeakScore      float64  `json:"peak_score"`
		Severity       string   `json:"severity"`
		ResultedInGoal bool     `json:"resulted_in_goal"`
		ActiveCodes    []string `json:"active_codes"`
		Fingerprint    []string `json:"fingerprint,omitempty"`
	}
	out := make([]episodeJSON, 0, len(episodes))
	for _, ep := range episodes {
		ej := episodeJSON{
			PeakTime:       ep.PeakTime,
			WindowStart:    ep.WindowStart,
			WindowEnd:      ep.WindowEnd,
			PeakScore:      ep.PeakScore,
			Severity:       ep.Severity.String(),
			ResultedInGoal: ep.ResultedInGoal,
		}
		for _, c := range ep.CodesSorted() {
			ej.ActiveCodes = append(ej.ActiveCodes, string(c))
		}
		for _, c := range ep.Fingerprint {
			ej.Fingerprint = append(ej.Fingerprint, string(c))
		}
		out = append(out, ej)
	}
	writeJSON(w, map[string]any{"match_id": id, "episodes": out})
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	query := r.URL.Query()
	start, err := strconv.Atoi(query.Get("start"))
	if err != nil {
		http.Error(w, "invalid start", http.StatusBadRequest)
		return
	}
	end, err := strconv.Atoi(query.Get("end"))
	if err != nil {
		http.Error(w, "invalid end", http.StatusBadRequest)
		return
	}
	ws, err := s.agg.Window(id, start, end)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, ws)
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"patterns": s.agg.Patterns()})
}
