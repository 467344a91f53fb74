package pipeline

import (
	"context"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

// WaitReady pokes gate immediately and then every interval until it reports
// ready or timeout has elapsed. It returns how long it waited. When the
// deadline passes without readiness it fails with
// *domain.UpstreamUnavailableError; there is no retry beyond that. The wait
// never outlasts timeout, even when interval is longer.
func WaitReady(ctx context.Context, gate ReadinessGate, interval, timeout time.Duration, clock clockwork.Clock) (time.Duration, error) {
	start := clock.Now()
	deadline := start.Add(timeout)

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	expired := clock.NewTimer(timeout)
	defer expired.Stop()

	for {
		if gate.IsReady(ctx) {
			return clock.Since(start), nil
		}
		if !clock.Now().Before(deadline) {
			return unavailable(gate, clock.Since(start))
		}

		select {
		case <-ctx.Done():
			return clock.Since(start), ctx.Err()
		case <-expired.Chan():
			return unavailable(gate, clock.Since(start))
		case <-ticker.Chan():
		}
	}
}

func unavailable(gate ReadinessGate, waited time.Duration) (time.Duration, error) {
	return waited, &domain.UpstreamUnavailableError{Endpoint: gate.Endpoint(), Waited: waited}
}
