package health

import (
	"context"
	"net/http"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/json"
)

const checkTimeout = 2 * time.Second

// Check is a named dependency probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

type Handler struct {
	checks  []Check
	started time.Time
}

func NewHandler(checks ...Check) *Handler {
	return &Handler{
		checks:  checks,
		started: time.Now(),
	}
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	data := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}

	status := http.StatusOK
	if len(h.checks) > 0 {
		data.Checks = make(map[string]string, len(h.checks))
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		for _, c := range h.checks {
			if err := c.Ping(ctx); err != nil {
				data.Checks[c.Name] = err.Error()
				data.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			data.Checks[c.Name] = "ok"
		}
	}

	json.WriteJSON(w, status, data)
}

// GetLive never touches dependencies.
func (h *Handler) GetLive(w http.ResponseWriter, r *http.Request) {
	json.WriteJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	})
}
