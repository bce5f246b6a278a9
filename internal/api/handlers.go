package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"riskroute/internal/auth"
	"riskroute/internal/dashboard"
	"riskroute/internal/layers"
	"riskroute/internal/model"
	"riskroute/internal/route"
)

const notAvailable = "N/A"

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
}

// authorizeDispatch checks that the caller may change the current route and
// writes the problem response when not.
func (s *Server) authorizeDispatch(w http.ResponseWriter, r *http.Request) bool {
	p, err := s.Auth.FromRequest(r)
	if err != nil {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", err.Error(), r.URL.Path)
		return false
	}
	if !p.CanDispatch() {
		writeProblem(w, http.StatusForbidden, "Forbidden", auth.ErrForbidden.Error(), r.URL.Path)
		return false
	}
	return true
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if s.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := s.Store.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// ConditionsView is the sidebar metrics block. Display strings fall back to
// "N/A" when the weather feed is unavailable.
type ConditionsView struct {
	Temperature     string                  `json:"temperature"`
	Conditions      string                  `json:"conditions"`
	Visibility      string                  `json:"visibility"`
	SolarAltitude   string                  `json:"solarAltitude"`
	ActiveIncidents int                     `json:"activeIncidents"`
	Weather         *model.WeatherSnapshot  `json:"weather"`
	Incidents       []model.TrafficIncident `json:"incidents"`
	FetchedAt       time.Time               `json:"fetchedAt"`
}

func conditionsView(lc model.LiveConditions) ConditionsView {
	v := ConditionsView{
		Temperature:     notAvailable,
		Conditions:      notAvailable,
		Visibility:      notAvailable,
		SolarAltitude:   notAvailable,
		ActiveIncidents: len(lc.Incidents),
		Weather:         lc.Weather,
		Incidents:       lc.Incidents,
		FetchedAt:       lc.FetchedAt,
	}
	if v.Incidents == nil {
		v.Incidents = []model.TrafficIncident{}
	}
	if w := lc.Weather; w != nil {
		v.Temperature = strconv.FormatFloat(w.TemperatureF, 'f', -1, 64) + " °F"
		if w.Conditions != "" {
			v.Conditions = w.Conditions
		}
		v.Visibility = strconv.FormatFloat(w.VisibilityMeters, 'f', -1, 64) + " m"
		v.SolarAltitude = strconv.FormatFloat(w.SolarAltitude, 'f', -1, 64) + "°"
	}
	return v
}

// ConditionsHandler serves the cached live snapshot. Upstream failures
// degrade to placeholders; this endpoint never fails.
func (s *Server) ConditionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, conditionsView(s.Dashboard.Conditions(r.Context())))
}

// segmentsProblem maps scoring errors. Missing static data blocks the view.
func (s *Server) segmentsProblem(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, model.ErrNoBaseData) {
		writeProblem(w, http.StatusServiceUnavailable, "No base data", "road segment table is not loaded", r.URL.Path)
		return
	}
	s.Logger.Error("scoring failed", zap.Error(err))
	writeProblem(w, http.StatusInternalServerError, "Scoring failed", err.Error(), r.URL.Path)
}

// SegmentsHandler handles GET /v1/segments?minScore=&format=geojson.
func (s *Server) SegmentsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	q := r.URL.Query()
	minScore := 0
	if v := q.Get("minScore"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			writeProblem(w, http.StatusBadRequest, "Invalid minScore", "minScore must be an integer in [0,100]", r.URL.Path)
			return
		}
		minScore = n
	}
	table, err := s.Dashboard.ScoredSegments(r.Context(), minScore)
	if err != nil {
		s.segmentsProblem(w, r, err)
		return
	}
	switch q.Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, map[string]any{"minScore": minScore, "count": len(table), "segments": table})
	case "geojson":
		writeGeoJSON(w, layers.ScoredFeatures(table))
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid format", "format must be json or geojson", r.URL.Path)
	}
}

func (s *Server) SegmentsSummaryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	sum, err := s.Dashboard.Summary(r.Context())
	if err != nil {
		s.segmentsProblem(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// RoutesHandler handles POST /v1/routes: synthesize a loop for the requested
// duration and make it the current route.
func (s *Server) RoutesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !s.authorizeDispatch(w, r) {
		return
	}
	var req model.RouteGenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := s.validateRouteRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid route request", err.Error(), r.URL.Path)
		return
	}
	rt, err := s.Dashboard.GenerateRoute(r.Context(), req.DurationMinutes, req.Seed)
	if err != nil {
		var gerr *dashboard.GraphError
		switch {
		case errors.As(err, &gerr):
			writeProblem(w, http.StatusUnprocessableEntity, "Route synthesis failed", gerr.Error(), r.URL.Path)
		case errors.Is(err, route.ErrInvalidDuration):
			writeProblem(w, http.StatusBadRequest, "Invalid route request", err.Error(), r.URL.Path)
		case errors.Is(err, model.ErrNoBaseData):
			writeProblem(w, http.StatusServiceUnavailable, "No base data", err.Error(), r.URL.Path)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeProblem(w, http.StatusServiceUnavailable, "Route synthesis cancelled", err.Error(), r.URL.Path)
		default:
			writeProblem(w, http.StatusInternalServerError, "Route synthesis failed", err.Error(), r.URL.Path)
		}
		return
	}
	w.Header().Set("Location", "/v1/routes/current")
	writeJSON(w, http.StatusCreated, rt)
}

// CurrentRouteHandler reads or clears the current route slot.
func (s *Server) CurrentRouteHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt, ok := s.Dashboard.CurrentRoute()
		if !ok {
			writeProblem(w, http.StatusNotFound, "No route", "no route has been generated", r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, rt)
	case http.MethodDelete:
		if !s.authorizeDispatch(w, r) {
			return
		}
		s.Dashboard.ClearRoute()
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (s *Server) ManifestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	m, ok := s.Dashboard.Manifest()
	if !ok {
		writeProblem(w, http.StatusNotFound, "No route", "no route has been generated", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) OptionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, s.Dashboard.Options())
}

func (s *Server) LayersIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	names := append(s.Layers.Names(), "incidents")
	writeJSON(w, http.StatusOK, map[string]any{"layers": names})
}

// LayerHandler serves /v1/layers/{name} as GeoJSON. "incidents" is built
// from the live snapshot; everything else comes from the registry.
func (s *Server) LayerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/layers/"), "/")
	if name == "incidents" {
		lc := s.Dashboard.Conditions(r.Context())
		writeGeoJSON(w, layers.IncidentFeatures(lc.Incidents))
		return
	}
	fc, ok := s.Layers.Get(name)
	if !ok {
		writeProblem(w, http.StatusNotFound, "Unknown layer", fmt.Sprintf("layer %q is not loaded", name), r.URL.Path)
		return
	}
	writeGeoJSON(w, fc)
}
