package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"klinehub/internal/aggregator"
)

// Server exposes the aggregator over HTTP for the dashboard front-end.
type Server struct {
	agg *aggregator.Aggregator
	log *slog.Logger
}

// NewServer creates the API server.
func NewServer(agg *aggregator.Aggregator, log *slog.Logger) *Server {
	return &Server{
		agg: agg,
		log: log.With("component", "httpapi"),
	}
}

// Handler builds the chi router with middleware and all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/klines/{symbol}/{interval}", s.handleSeries)
		r.Get("/window/{symbol}/{interval}", s.handleWindow)
		r.Get("/indicators/{symbol}/{interval}", s.handleIndicators)
		r.Get("/markers/{symbol}", s.handleMarkers)
		r.Get("/config/{symbol}", s.handleConfig)
	})

	return r
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	interval := chi.URLParam(r, "interval")

	bars, err := s.agg.Series(symbol, interval)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, SeriesResponse{Symbol: symbol, Interval: interval, Bars: bars})
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	interval := chi.URLParam(r, "interval")
	offset, ok := parseOffset(w, r)
	if !ok {
		return
	}

	points, start, end, err := s.agg.Window(symbol, interval, offset)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, WindowResponse{
		Symbol:   symbol,
		Interval: interval,
		Offset:   offset,
		Start:    start,
		End:      end,
		Points:   points,
	})
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	interval := chi.URLParam(r, "interval")
	offset, ok := parseOffset(w, r)
	if !ok {
		return
	}

	window := 20
	if v := r.URL.Query().Get("window"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive integer")
			return
		}
		window = n
	}

	thr := 0.0
	if v := r.URL.Query().Get("thr"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "thr must be a number")
			return
		}
		thr = f
	}

	set, err := s.agg.Indicators(symbol, interval, offset, window, thr)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, IndicatorsResponse{Symbol: symbol, Interval: interval, Window: window, Set: set})
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	offset, ok := parseOffset(w, r)
	if !ok {
		return
	}

	ann, err := s.agg.Markers(r.Context(), symbol, offset)
	if err != nil {
		// Degrade to an empty overlay rather than failing the chart.
		s.log.Warn("loading markers", "symbol", symbol, "error", err)
	}
	writeJSON(w, MarkersResponse{Symbol: symbol, Offset: offset, Annotation: ann})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	th, err := s.agg.Thresholds(r.Context(), symbol)
	if err != nil {
		s.log.Warn("loading thresholds", "symbol", symbol, "error", err)
		writeError(w, http.StatusBadGateway, "config store unavailable")
		return
	}
	writeJSON(w, ConfigResponse{Symbol: symbol, Thresholds: th})
}

// parseOffset reads the "offset" query param (default 0, must be <= 0: the
// current session or a completed one).
func parseOffset(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("offset")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n > 0 {
		writeError(w, http.StatusBadRequest, "offset must be a non-positive integer")
		return 0, false
	}
	return n, true
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
