// Package handler exposes the combined component health over HTTP and the
// standard grpc.health.v1 service.
package handler

import "context"

// Component states reported by the identity core.
const (
	StatusOK          = "ok"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
	StatusDisabled    = "disabled"
)

// Checker returns a component → status snapshot.
type Checker interface {
	Health(ctx context.Context) map[string]string
}

// Healthy reports whether the process can serve: every component is ok,
// degraded or disabled. A degraded component still has a usable credential.
func Healthy(report map[string]string) bool {
	for _, s := range report {
		switch s {
		case StatusOK, StatusDegraded, StatusDisabled:
		default:
			return false
		}
	}
	return true
}

// Overall folds a report into one status: unavailable if any component cannot
// serve, degraded if any is degraded, ok otherwise.
func Overall(report map[string]string) string {
	if !Healthy(report) {
		return StatusUnavailable
	}
	for _, s := range report {
		if s == StatusDegraded {
			return StatusDegraded
		}
	}
	return StatusOK
}
