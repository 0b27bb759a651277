package migrate

import (
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	err := Run("", "up")
	if err == nil {
		t.Fatal("Run with empty DSN should return error")
	}
	if err.Error() != "DATABASE_URL is not set" {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "invalid", "UP", "Down", "both"} {
		t.Run(direction, func(t *testing.T) {
			if err := Run("postgres://localhost/test", direction); err == nil {
				t.Errorf("Run with direction %q should return error", direction)
			}
		})
	}
}

func TestPgxURL(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"postgres://u:p@h:5432/db", "pgx5://u:p@h:5432/db"},
		{"postgresql://u:p@h/db?sslmode=disable", "pgx5://u:p@h/db?sslmode=disable"},
		{"pgx5://h/db", "pgx5://h/db"},
	}
	for _, tc := range testCases {
		if got := pgxURL(tc.in); got != tc.want {
			t.Errorf("pgxURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
