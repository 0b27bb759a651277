package csrf

import (
	"log/slog"
	"net/http"
)

// Middleware rejects mutating requests that fail Verify with 403 before the
// next handler runs. Paths in exempt (exact match) skip the check.
func (g *Guard) Middleware(logger *slog.Logger, exempt ...string) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	skip := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		skip[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; !ok {
				if err := g.Verify(r); err != nil {
					logger.WarnContext(r.Context(), "csrf check failed", "method", r.Method, "path", r.URL.Path, "error", err)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusForbidden)
					_, _ = w.Write([]byte(`{"error":"forbidden"}` + "\n"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
