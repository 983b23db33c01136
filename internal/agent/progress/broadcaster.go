package progress

import (
	"sync"

	logx "github.com/aroundyou/commerce-agent/pkg/logger"
)

// defaultRetain bounds how many finished runs the broadcaster keeps around.
const defaultRetain = 32

// Broadcaster exposes the ordered 5-step snapshot of any in-flight or
// finished search, keyed by the originating tool call. Finished runs stay
// readable until evicted, so two searches from different turns never corrupt
// each other's final snapshot.
type Broadcaster struct {
	mu     sync.RWMutex
	runs   map[string][]Step
	order  []string
	latest string
	retain int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		runs:   make(map[string][]Step),
		retain: defaultRetain,
	}
}

// Track registers a new run under the given key and returns its tracker.
// Re-tracking an existing key resets that run.
func (b *Broadcaster) Track(key string) *Tracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.runs[key]; !exists {
		b.order = append(b.order, key)
		if len(b.order) > b.retain {
			evicted := b.order[0]
			b.order = b.order[1:]
			delete(b.runs, evicted)
		}
	}
	b.runs[key] = NewSteps()
	b.latest = key

	return &Tracker{key: key, steps: NewSteps(), b: b}
}

// Snapshot returns a copy of the step array for the given run key.
func (b *Broadcaster) Snapshot(key string) ([]Step, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	steps, ok := b.runs[key]
	if !ok {
		return nil, false
	}
	return cloneSteps(steps), true
}

// Latest returns the most recently started run and its snapshot.
func (b *Broadcaster) Latest() (string, []Step, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	steps, ok := b.runs[b.latest]
	if !ok {
		return "", nil, false
	}
	return b.latest, cloneSteps(steps), true
}

func (b *Broadcaster) publish(key string, steps []Step) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.runs[key]; !ok {
		// Run was evicted while still publishing; drop the update.
		return
	}
	b.runs[key] = cloneSteps(steps)
}

// Tracker mutates one run's step array. Statuses only move forward; after a
// step errors, no later step leaves pending.
type Tracker struct {
	mu     sync.Mutex
	key    string
	steps  []Step
	failed bool
	b      *Broadcaster
}

// Key returns the originating tool-call key of this run.
func (t *Tracker) Key() string {
	return t.key
}

// Begin marks the step active.
func (t *Tracker) Begin(id StepID) {
	t.transition(id, StatusActive, "")
}

// Complete marks the step completed with optional details.
func (t *Tracker) Complete(id StepID, details string) {
	t.transition(id, StatusCompleted, details)
}

// Fail marks the step errored. Later steps stay pending from here on.
func (t *Tracker) Fail(id StepID, details string) {
	t.transition(id, StatusError, details)
}

// Snapshot returns a copy of the tracker's current step array.
func (t *Tracker) Snapshot() []Step {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneSteps(t.steps)
}

func (t *Tracker) transition(id StepID, to Status, details string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failed {
		// A failed run is final; remaining steps stay pending.
		return
	}
	for i := range t.steps {
		if t.steps[i].ID != id {
			continue
		}
		from := t.steps[i].Status
		if statusRank[to] < statusRank[from] || (from == StatusCompleted || from == StatusError) {
			logx.Warn().
				Str("step", string(id)).
				Str("from", string(from)).
				Str("to", string(to)).
				Msg("Ignoring backward progress transition")
			return
		}
		t.steps[i].Status = to
		if details != "" {
			t.steps[i].Details = details
		}
		if to == StatusError {
			t.failed = true
		}
		t.b.publish(t.key, t.steps)
		return
	}
}
