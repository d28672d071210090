package scanner

import (
	"fmt"
	"sync"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// TriggerFunc is the callback invoked when a trigger fires.
type TriggerFunc func()

// TriggerRegistry abstracts recurring trigger installation. Any
// timer-wheel or cron-equivalent satisfies the contract; the engine only
// needs install, remove, and next-run-time.
type TriggerRegistry interface {
	Install(name, expression string, fn TriggerFunc) error
	Remove(name string)
	NextRunTime(name string) (time.Time, bool)
}

// IntervalRegistry is a TriggerRegistry backed by one ticker goroutine
// per trigger. Expressions are Go duration strings (e.g. "30m", "6h").
type IntervalRegistry struct {
	mu       sync.Mutex
	triggers map[string]*intervalTrigger
}

type intervalTrigger struct {
	interval time.Duration
	stop     chan struct{}

	mu      sync.Mutex
	nextRun time.Time
}

// NewIntervalRegistry creates an empty registry.
func NewIntervalRegistry() *IntervalRegistry {
	return &IntervalRegistry{triggers: make(map[string]*intervalTrigger)}
}

// Install registers a recurring trigger, replacing any existing trigger
// with the same name.
func (r *IntervalRegistry) Install(name, expression string, fn TriggerFunc) error {
	interval, err := time.ParseDuration(expression)
	if err != nil {
		return fmt.Errorf("invalid trigger expression %q: %w", expression, err)
	}
	if interval <= 0 {
		return fmt.Errorf("invalid trigger expression %q: interval must be positive", expression)
	}

	t := &intervalTrigger{
		interval: interval,
		stop:     make(chan struct{}),
		nextRun:  time.Now().Add(interval),
	}

	r.mu.Lock()
	if old, ok := r.triggers[name]; ok {
		close(old.stop)
	}
	r.triggers[name] = t
	metrics.SchedulerJobs.Set(float64(len(r.triggers)))
	r.mu.Unlock()

	go t.run(name, fn)

	logging.Debug("Installed trigger %q (every %v)", name, interval)
	return nil
}

// Remove tears down a trigger. Removing an unknown name is a no-op.
func (r *IntervalRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.triggers[name]; ok {
		close(t.stop)
		delete(r.triggers, name)
		metrics.SchedulerJobs.Set(float64(len(r.triggers)))
		logging.Debug("Removed trigger %q", name)
	}
}

// NextRunTime returns the computed next firing time for a trigger.
func (r *IntervalRegistry) NextRunTime(name string) (time.Time, bool) {
	r.mu.Lock()
	t, ok := r.triggers[name]
	r.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextRun, true
}

// Stop tears down every trigger. Used during shutdown.
func (r *IntervalRegistry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, t := range r.triggers {
		close(t.stop)
		delete(r.triggers, name)
	}
	metrics.SchedulerJobs.Set(0)
}

func (t *intervalTrigger) run(name string, fn TriggerFunc) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			t.nextRun = time.Now().Add(t.interval)
			t.mu.Unlock()

			metrics.SchedulerTriggersTotal.Inc()
			fn()
		case <-t.stop:
			logging.Debug("Trigger %q stopped", name)
			return
		}
	}
}
