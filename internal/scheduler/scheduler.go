// Package scheduler evaluates cron-driven upload rules against wall-clock
// time. The loop ticks once per minute; a schedule fires when its
// expression matches the current minute. Ticks the process was not alive
// for are never replayed.
package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/portside/shipper/internal/queue"
	"github.com/portside/shipper/internal/store"
)

// ErrInvalidCronExpression rejects a malformed 5-field cron expression.
// Surfaced at save time; the tick loop only skips.
var ErrInvalidCronExpression = store.ErrInvalidCronExpression

// Parse validates a cron expression and returns its schedule. Validation
// lives with the store so every save surface rejects bad expressions.
func Parse(expr string) (cron.Schedule, error) {
	return store.ParseCron(expr)
}

// Validate reports whether expr is a well-formed cron expression.
func Validate(expr string) error {
	_, err := Parse(expr)
	return err
}

// matchesMinute reports whether sched fires at the minute containing t.
func matchesMinute(sched cron.Schedule, t time.Time) bool {
	minute := t.Truncate(time.Minute)
	return sched.Next(minute.Add(-time.Second)).Equal(minute)
}

// Scheduler owns the minute tick loop.
type Scheduler struct {
	db   *store.DB
	orch *queue.Orchestrator

	// now is replaceable for tests.
	now func() time.Time
}

func New(db *store.DB, orch *queue.Orchestrator) *Scheduler {
	return &Scheduler{db: db, orch: orch, now: time.Now}
}

// Run blocks until ctx is cancelled, evaluating schedules once per minute.
// The first tick is aligned to the next minute boundary so a schedule
// never fires twice for one minute or misses a live one.
func (s *Scheduler) Run(ctx context.Context) {
	log.Println("[scheduler] started")

	for {
		next := s.now().Truncate(time.Minute).Add(time.Minute)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			s.tick(ctx, next)
		case <-ctx.Done():
			timer.Stop()
			log.Println("[scheduler] stopped")
			return
		}
	}
}

// tick enqueues one task per enabled schedule matching the given minute.
// All matches land on a single fresh queue, so same-minute schedules run
// sequentially in enqueue order; the tick does not wait for uploads.
func (s *Scheduler) tick(ctx context.Context, minute time.Time) {
	schedules, err := s.db.Schedules()
	if err != nil {
		log.Printf("[scheduler] cannot load schedules: %v", err)
		return
	}

	var q *queue.Queue
	for _, sc := range schedules {
		if !sc.Enabled {
			continue
		}
		sched, err := Parse(sc.CronExpr)
		if err != nil {
			// Validated at save time; a bad row here is skipped, not fatal.
			log.Printf("[scheduler] skipping %q: %v", sc.Name, err)
			continue
		}
		if !matchesMinute(sched, minute) {
			continue
		}

		if q == nil {
			q = s.orch.NewQueue()
		}
		task, err := q.Enqueue(sc.SourcePath, sc.ServerID, sc.PathKey, sc.Extract)
		if err != nil {
			log.Printf("[scheduler] %q: enqueue failed: %v", sc.Name, err)
			continue
		}
		log.Printf("[scheduler] %q fired: %s -> %s/%s", sc.Name, task.Filename, sc.ServerID, sc.PathKey)
	}

	if q != nil {
		go func() {
			if err := q.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[scheduler] queue aborted: %v", err)
			}
		}()
	}
}
