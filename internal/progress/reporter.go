// Package progress publishes export progress snapshots to subscribers in a
// consistent order.
package progress

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kartoza/kartoza-mockup-recorder/internal/models"
)

// Status strings shown for each phase
const (
	StatusPreparing  = "Preparing..."
	StatusRecording  = "Recording..."
	StatusFinalizing = "Creating video file..."
	StatusCompleted  = "Export completed!"
	StatusCancelled  = "Export cancelled"
)

// Reporter keeps the last published snapshot and fans it out to
// subscribers. Within one session it never lets phases go backwards, never
// lets the recording percent decrease and publishes nothing after a failure.
//
// Subscribers are called synchronously, one snapshot at a time, in
// publication order. They must not call Publish.
type Reporter struct {
	logger *slog.Logger

	mu      sync.Mutex
	last    models.ProgressSnapshot
	hasLast bool
	session string
	epoch   uint64
	failed  bool
	subs    map[int]func(models.ProgressSnapshot)
	nextID  int

	deliver sync.Mutex
}

// New creates a reporter
func New(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reporter{
		logger: logger,
		subs:   make(map[int]func(models.ProgressSnapshot)),
	}
}

// Begin starts ordering for a new session and returns its epoch
func (r *Reporter) Begin(sessionID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	r.session = sessionID
	r.failed = false
	r.hasLast = false
	return r.epoch
}

// Publish delivers s unless it would break ordering for its session.
// It reports whether s was accepted.
func (r *Reporter) Publish(s models.ProgressSnapshot) bool {
	r.mu.Lock()

	if reason := r.rejectLocked(s); reason != "" {
		r.mu.Unlock()
		r.logger.Debug("dropped progress snapshot", "session", s.SessionID, "phase", s.Phase, "reason", reason)
		return false
	}

	s.Percent = models.ClampPercent(s.Percent)
	if s.Phase == models.PhaseRecording && r.hasLast && r.last.Phase == models.PhaseRecording && s.Percent < r.last.Percent {
		s.Percent = r.last.Percent
	}
	if s.Phase == models.PhaseFailed {
		r.failed = true
	}

	r.last = s
	r.hasLast = true
	r.deliverLocked(s)
	return true
}

func (r *Reporter) rejectLocked(s models.ProgressSnapshot) string {
	switch {
	case s.SessionID != r.session:
		return "stale session"
	case r.failed:
		return "session already failed"
	case r.hasLast && s.Phase.Rank() < r.last.Phase.Rank():
		return "phase went backwards"
	}
	return ""
}

// deliverLocked hands s to subscribers. It is entered with mu held and
// releases it once the delivery lock is taken, so deliveries keep
// publication order without holding mu during callbacks.
func (r *Reporter) deliverLocked(s models.ProgressSnapshot) {
	subs := make([]func(models.ProgressSnapshot), 0, len(r.subs))
	for id := 0; id < r.nextID; id++ {
		if fn, ok := r.subs[id]; ok {
			subs = append(subs, fn)
		}
	}

	r.deliver.Lock()
	r.mu.Unlock()
	defer r.deliver.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

// Subscribe registers fn and returns a function that removes it
func (r *Reporter) Subscribe(fn func(models.ProgressSnapshot)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

// Last returns the most recent accepted snapshot
func (r *Reporter) Last() (models.ProgressSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.hasLast
}

// HoldThenClear clears the status of the current idle snapshot after d,
// unless a new session begins first
func (r *Reporter) HoldThenClear(d time.Duration) *time.Timer {
	r.mu.Lock()
	epoch := r.epoch
	r.mu.Unlock()

	return time.AfterFunc(d, func() {
		r.mu.Lock()
		if r.epoch != epoch || !r.hasLast || r.last.Phase != models.PhaseIdle || r.last.Status == "" {
			r.mu.Unlock()
			return
		}
		cleared := r.last
		cleared.Status = ""
		r.last = cleared
		r.deliverLocked(cleared)
	})
}
