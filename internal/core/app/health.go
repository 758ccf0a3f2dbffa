package app

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	s.app.mu.RLock()
	last, lastErr := s.app.last, s.app.lastErr
	cfg, fetcher, hist := s.app.config, s.app.fetcher, s.app.history
	s.app.mu.RUnlock()

	switch {
	case lastErr != nil:
		status.Status = "degraded"
		status.Components["last_run"] = "failed: " + lastErr.Error()
	case last == nil:
		status.Status = "degraded"
		status.Components["last_run"] = "pending"
	default:
		status.Components["last_run"] = fmt.Sprintf("ok (%d modules, %d misses, %s)",
			last.Store.ModuleCount(), len(last.Misses), last.Started.UTC().Format(time.RFC3339))
	}

	if hist != nil {
		status.Components["history"] = "ok"
	} else if cfg != nil && cfg.DB.Enabled {
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	}

	if fetcher == nil {
		status.Components["fetcher"] = "offline"
	} else {
		status.Components["fetcher"] = "ok"
	}

	return status
}
