package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cryptovault/cryptovault/internal/logging"
)

// DefaultSchedule checks alerts once a minute.
const DefaultSchedule = "@every 1m"

// Checker runs Service.Check on a cron schedule. Overlapping runs are skipped.
type Checker struct {
	service *Service
	cron    *cron.Cron
	timeout time.Duration
	logger  *slog.Logger
}

// NewChecker schedules checks. Each run is bounded by timeout.
func NewChecker(service *Service, schedule string, timeout time.Duration, logger *slog.Logger) (*Checker, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Checker{
		service: service,
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		timeout: timeout,
		logger:  logging.Component(logger, "alert-checker"),
	}
	if _, err := c.cron.AddFunc(schedule, c.run); err != nil {
		return nil, fmt.Errorf("schedule alert checks %q: %w", schedule, err)
	}
	return c, nil
}

func (c *Checker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	fired, err := c.service.Check(ctx)
	if err != nil {
		c.logger.Error("alert check failed", slog.Any("error", err))
		return
	}
	c.logger.Debug("alert check finished", slog.Int("fired", len(fired)), slog.Duration("took", time.Since(start)))
}

// Start begins the schedule in the background.
func (c *Checker) Start() {
	c.cron.Start()
	c.logger.Info("alert checker started")
}

// Stop halts the schedule and waits for a running check, up to ctx's deadline.
func (c *Checker) Stop(ctx context.Context) {
	done := c.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		c.logger.Warn("alert checker stop timed out")
	}
}
