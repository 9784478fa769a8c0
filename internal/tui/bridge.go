package tui

import (
	"sync"

	"github.com/kartoza/kartoza-mockup-recorder/internal/models"
	"github.com/kartoza/kartoza-mockup-recorder/internal/progress"
)

// bridgeBuffer is how many snapshots may queue before the oldest is dropped
const bridgeBuffer = 64

// Bridge forwards reporter snapshots onto a channel without ever blocking
// the reporter. When the reader falls behind the oldest queued snapshot is
// dropped, so the order of what is delivered is preserved.
type Bridge struct {
	ch          chan models.ProgressSnapshot
	unsubscribe func()
	mu          sync.Mutex
	closed      bool
}

// NewBridge subscribes to r
func NewBridge(r *progress.Reporter) *Bridge {
	b := &Bridge{ch: make(chan models.ProgressSnapshot, bridgeBuffer)}
	b.unsubscribe = r.Subscribe(b.push)
	return b
}

// C returns the snapshot channel. It is closed by Close.
func (b *Bridge) C() <-chan models.ProgressSnapshot {
	return b.ch
}

func (b *Bridge) push(s models.ProgressSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for {
		select {
		case b.ch <- s:
			return
		default:
		}
		select {
		case <-b.ch:
		default:
		}
	}
}

// Close unsubscribes and closes the channel
func (b *Bridge) Close() {
	b.unsubscribe()
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}
