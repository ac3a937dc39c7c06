package health

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/satriahrh/rekam/domain/entities"
	"github.com/satriahrh/rekam/domain/repositories"
)

const (
	connectedInterval = 30 * time.Second
	maxBackoff        = 64 * time.Second
)

// Checker keeps the session's backend-offline indicator in sync with
// actual reachability. While the backend is down it probes with
// exponential backoff; once connected it settles into a slow steady poll.
type Checker struct {
	backend   repositories.RecordingBackend
	session   *entities.Session
	clock     clock.Clock
	logger    *zap.Logger
	connected bool
}

// NewChecker creates a reachability checker.
func NewChecker(backend repositories.RecordingBackend, session *entities.Session, clk clock.Clock, logger *zap.Logger) *Checker {
	return &Checker{backend: backend, session: session, clock: clk, logger: logger}
}

// Run polls until the context is cancelled.
func (c *Checker) Run(ctx context.Context) {
	attempt := 0
	for {
		var wait time.Duration
		if err := c.backend.Ping(ctx); err != nil {
			if c.connected {
				c.logger.Warn("Backend connection lost", zap.Error(err))
			} else if attempt == 0 {
				c.logger.Warn("Could not connect to backend", zap.Error(err))
			}
			c.connected = false
			c.session.SetBackendOffline()

			attempt++
			shift := attempt
			if shift > 6 {
				shift = 6
			}
			wait = time.Duration(1<<uint(shift)) * time.Second
			if wait > maxBackoff {
				wait = maxBackoff
			}
		} else {
			if !c.connected {
				c.logger.Info("Backend connected")
			}
			c.connected = true
			c.session.SetBackendOnline()
			attempt = 0
			wait = connectedInterval
		}

		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(wait):
		}
	}
}
