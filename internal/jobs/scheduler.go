// Package jobs runs the periodic reconciliation sweeps of the booking core.
package jobs

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task is one periodic sweep. Run reports how many records it changed.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// Locker guards a task across replicas. ok is false when another process
// holds the lock.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// Scheduler owns the sweeps. Every task runs in its own goroutine and a
// failing or panicking tick never stops the others.
type Scheduler struct {
	tasks   []Task
	locker  Locker
	lockTTL time.Duration
	log     *zap.Logger
}

// NewScheduler returns a scheduler. A nil locker runs every tick unguarded.
func NewScheduler(locker Locker, lockTTL time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		locker:  locker,
		lockTTL: lockTTL,
		log:     log.With(zap.String("component", "scheduler")),
	}
}

func (s *Scheduler) Add(tasks ...Task) {
	s.tasks = append(s.tasks, tasks...)
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, task := range s.tasks {
		if task.Interval <= 0 {
			return fmt.Errorf("job %s: interval must be positive", task.Name)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, task := range s.tasks {
		g.Go(func() error {
			s.loop(ctx, task)
			return nil
		})
	}

	s.log.Info("Scheduler started", zap.Int("jobs", len(s.tasks)))
	err := g.Wait()
	s.log.Info("Scheduler stopped")
	return err
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, task)
		}
	}
}

// tick runs one sweep. Panics are recovered so the loop keeps going.
func (s *Scheduler) tick(ctx context.Context, task Task) {
	log := s.log.With(zap.String("job", task.Name))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked",
				zap.Any("error", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, task.Name, s.lockTTL)
		if err != nil {
			log.Error("Failed to acquire job lock", zap.Error(err))
			return
		}
		if !ok {
			log.Debug("Job is running elsewhere, skipping tick")
			return
		}
		defer unlock()
	}

	start := time.Now()
	n, err := task.Run(ctx)
	if err != nil {
		log.Error("Job failed", zap.Error(err), zap.Int("processed", n))
		return
	}

	if n > 0 {
		log.Info("Job finished", zap.Int("processed", n), zap.Duration("took", time.Since(start)))
	}
}
