package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"cardkey-service/internal/infra/redis"
)

// Job is one unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Locker guards a tick so only one replica runs it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Scheduler periodically runs a Job.
type Scheduler struct {
	interval time.Duration
	timeout  time.Duration
	job      Job
	locker   Locker
	log      *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler runs job every interval (1m when interval <= 0). A nil locker
// runs every tick locally.
func NewScheduler(interval time.Duration, job Job, locker Locker, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := 30 * time.Second
	if interval < timeout {
		timeout = interval
	}
	return &Scheduler{
		interval: interval,
		timeout:  timeout,
		job:      job,
		locker:   locker,
		log:      logger,
		done:     make(chan struct{}),
	}
}

// Start runs one tick immediately and then loops in the background.
// Calling Start twice has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	if s.ctx != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.ctx = ctx
	s.cancel = cancel

	go s.loop()
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	s.log.Info().Str("job", s.job.Name()).Dur("interval", s.interval).Msg("scheduler started")
	s.tick()
	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Str("job", s.job.Name()).Msg("scheduler context cancelled; stopping")
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick runs the job once with a bounded timeout.
func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	if s.locker != nil {
		key := "lock:job:" + s.job.Name()
		token, err := s.locker.TryLock(ctx, key, s.interval)
		if errors.Is(err, redis.ErrLockNotAcquired) {
			s.log.Debug().Str("job", s.job.Name()).Msg("tick skipped; lock held elsewhere")
			return
		}
		if err != nil {
			s.log.Warn().Err(err).Str("job", s.job.Name()).Msg("lock unavailable, running locally")
		} else {
			defer func() {
				if err := s.locker.Unlock(context.Background(), key, token); err != nil {
					s.log.Warn().Err(err).Str("job", s.job.Name()).Msg("unlock failed")
				}
			}()
		}
	}

	if err := s.job.Run(ctx); err != nil {
		s.log.Error().Err(err).Str("job", s.job.Name()).Msg("job failed")
	}
}

// Stop cancels the scheduler and waits for the loop to finish. It is idempotent.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.ctx = nil
	s.cancel = nil
	s.done = make(chan struct{})
	s.log.Info().Str("job", s.job.Name()).Msg("scheduler stopped")
}
