package http

import (
	"context"
	"net/http"
	"time"
)

const (
	serviceName = "git-done-api"

	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

type healthResponse struct {
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
}

// health reports 503 as soon as one dependency is unhealthy.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Service:   serviceName,
		Timestamp: s.now().Format(time.RFC3339),
		Status:    statusHealthy,
		Checks:    make(map[string]string, 2),
	}

	checks := []struct {
		name   string
		pinger Pinger
	}{
		{name: "database", pinger: s.database},
		{name: "github_api", pinger: s.github},
	}

	for _, c := range checks {
		if err := s.probe(r.Context(), c.pinger); err != nil {
			resp.Checks[c.name] = "unhealthy: " + err.Error()
			resp.Status = statusDegraded

			continue
		}

		resp.Checks[c.name] = statusHealthy
	}

	code := http.StatusOK
	if resp.Status != statusHealthy {
		code = http.StatusServiceUnavailable
	}

	s.respond(w, code, resp)
}

func (s *Server) probe(ctx context.Context, p Pinger) error {
	if s.opts.HealthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.HealthTimeout)
		defer cancel()
	}

	return p.Ping(ctx)
}
