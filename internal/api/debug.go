package api

import (
    "net/http"
    "time"

    "riskroute/internal/buildinfo"
    "riskroute/internal/route"
)

// DebugJSON reports build info, the non-secret settings and the stats of the
// last synthesis run per duration.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    info := map[string]any{
        "build":    buildinfo.Info(),
        "time":     time.Now().UTC().Format(time.RFC3339),
        "config":   s.Settings,
        "layers":   s.Layers.Names(),
        "lastRuns": route.LastRuns(),
    }
    if s.Dashboard != nil {
        info["depot"] = s.Dashboard.Depot
        if rt, ok := s.Dashboard.CurrentRoute(); ok {
            info["currentRouteId"] = rt.ID
        }
    }
    writeJSON(w, http.StatusOK, info)
}
