package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"newsletter_copilot/logging"
)

// DeliverFunc performs the delivery for a trigger.
type DeliverFunc func(ctx context.Context, tr Trigger) error

// Runner fires registry triggers at their time of day via cron. A trigger
// fires once and is then dropped from both cron and the registry.
type Runner struct {
	registry *Registry
	deliver  DeliverFunc
	logger   logging.Logger
	timeout  time.Duration
	loc      *time.Location
	now      func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewRunner creates a runner bound to registry. Triggers registered after
// this call are scheduled automatically. loc may be nil for local time.
func NewRunner(registry *Registry, deliver DeliverFunc, loc *time.Location, logger logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	r := &Runner{
		registry: registry,
		deliver:  deliver,
		logger:   logger,
		timeout:  time.Minute,
		loc:      loc,
		now:      time.Now,
		entries:  make(map[string]cron.EntryID),
	}
	r.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{logger})),
	)
	for _, tr := range registry.List() {
		r.add(tr)
	}
	registry.OnRegister(r.add)
	return r
}

// Start begins firing triggers in the background.
func (r *Runner) Start() {
	r.cron.Start()
	r.logger.Debug("trigger runner started", logging.Int("triggers", r.Pending()))
}

// Stop halts the runner and waits for a running delivery to finish or ctx to end.
func (r *Runner) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Pending returns the number of scheduled cron entries.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// NextRun returns when the trigger will fire, if it is scheduled.
func (r *Runner) NextRun(id string) (time.Time, bool) {
	r.mu.Lock()
	entryID, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	e := r.cron.Entry(entryID)
	if !e.Valid() {
		return time.Time{}, false
	}
	if e.Next.IsZero() {
		// not started yet; compute from the schedule
		return e.Schedule.Next(r.now().In(r.loc)), true
	}
	return e.Next, true
}

func (r *Runner) add(tr Trigger) {
	tod, err := ParseTimeOfDay(tr.At)
	if err != nil {
		r.logger.Error("invalid trigger time", logging.String("id", tr.ID), logging.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// a newer trigger for the same topic replaces the older one
	for id, entryID := range r.entries {
		if _, ok := r.registry.Get(id); !ok {
			r.cron.Remove(entryID)
			delete(r.entries, id)
		}
	}

	id := tr.ID
	entryID, err := r.cron.AddFunc(tod.CronSpec(), func() { r.fire(id) })
	if err != nil {
		r.logger.Error("failed to schedule trigger", logging.String("id", id), logging.Error(err))
		return
	}
	r.entries[id] = entryID
	r.logger.Info("delivery scheduled",
		logging.String("id", id),
		logging.String("topic", tr.Topic),
		logging.String("at", tr.At),
		logging.Time("next", tod.Next(r.now().In(r.loc))),
	)
}

// fire delivers a trigger once and unschedules it.
func (r *Runner) fire(id string) {
	r.mu.Lock()
	if entryID, ok := r.entries[id]; ok {
		r.cron.Remove(entryID)
		delete(r.entries, id)
	}
	r.mu.Unlock()

	tr, ok := r.registry.Get(id)
	if !ok {
		return
	}
	r.registry.Remove(id)

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.deliver(ctx, tr); err != nil {
		r.logger.Error("delivery failed",
			logging.String("id", id),
			logging.String("topic", tr.Topic),
			logging.Error(err),
		)
		return
	}
	r.logger.Info("delivery completed", logging.String("id", id), logging.String("topic", tr.Topic))
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	logger logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(kvFields(keysAndValues), logging.Error(err))...)
}

func kvFields(kv []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logging.String(fmt.Sprint(kv[i]), fmt.Sprint(kv[i+1])))
	}
	return fields
}
