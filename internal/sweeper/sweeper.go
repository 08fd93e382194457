// Package sweeper periodically ends live auctions whose end time has passed,
// so raw readers of the store see them ended without waiting for a request
// to touch them.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"live-shopping/utils"

	"github.com/go-co-op/gocron/v2"
)

// Expirer ends expired live auctions and reports how many it ended
type Expirer interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Sweeper runs an Expirer on a fixed interval
type Sweeper struct {
	expirer   Expirer
	interval  time.Duration
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a Sweeper with its job registered but not yet running
func New(expirer Expirer, interval time.Duration) (*Sweeper, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweeper: non-positive interval %s", interval)
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("sweeper: creating scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sweeper{
		expirer:   expirer,
		interval:  interval,
		scheduler: sched,
		ctx:       ctx,
		cancel:    cancel,
	}

	j, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.run),
		gocron.WithName("expire-auctions"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("sweeper: registering job: %w", err)
	}

	utils.Debug("sweeper: job registered", map[string]any{
		"job_id":   j.ID().String(),
		"interval": interval.String(),
	})
	return s, nil
}

// Start begins running the sweep in the background
func (s *Sweeper) Start() {
	s.scheduler.Start()
	utils.Info("sweeper: started", map[string]any{"interval": s.interval.String()})
}

// Stop cancels an in-flight sweep and waits for the scheduler to shut down
func (s *Sweeper) Stop() error {
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("sweeper: shutting down scheduler: %w", err)
	}
	utils.Info("sweeper: stopped", nil)
	return nil
}

// RunOnce performs a single sweep
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	return s.expirer.SweepExpired(ctx)
}

func (s *Sweeper) run() {
	ended, err := s.RunOnce(s.ctx)
	if err != nil {
		utils.Error("sweeper: sweep failed", map[string]any{"error": err.Error(), "ended": ended})
		return
	}
	if ended > 0 {
		utils.Info("sweeper: ended expired auctions", map[string]any{"ended": ended})
	}
}
