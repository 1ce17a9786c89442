package monitoring

import (
	"context"
	"fmt"
	"time"

	"cloudslam/internal/core/domain"
)

// Pinger is satisfied by the settings repository factory.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// AddSettingsCheck reports the settings store as unhealthy when it stops
// answering pings.
func (h *HealthChecker) AddSettingsCheck(store Pinger, timeout time.Duration) {
	h.AddCheck("settings", store.HealthCheck, timeout)
}

// AddSessionCheck reports unhealthy while the session is open but tracking
// is lost.
func (h *HealthChecker) AddSessionCheck(state func() domain.SessionState, status func() domain.TrackingStatus) {
	h.AddCheck("session", func(ctx context.Context) error {
		if state() == domain.SessionOpen && status() == domain.TrackingLost {
			return fmt.Errorf("tracking lost")
		}
		return nil
	}, 0)
}
