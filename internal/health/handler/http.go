package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// HTTPHandler serves GET /healthz: 200 while every component can serve
// (degraded included), 503 otherwise.
func HTTPHandler(checker Checker, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := checker.Health(r.Context())
		resp := healthResponse{Status: Overall(report), Components: report}
		code := http.StatusOK
		switch resp.Status {
		case StatusUnavailable:
			code = http.StatusServiceUnavailable
			logger.WarnContext(r.Context(), "health check failing", "components", report)
		case StatusDegraded:
			logger.InfoContext(r.Context(), "health check degraded", "components", report)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})
}
