// Package media provides the live video sources sampled by the compositor.
package media

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/kartoza/kartoza-mockup-recorder/internal/models"
)

// ErrBusy is returned by Guard when an export holds the source
var ErrBusy = errors.New("media source is in use by an export")

// Source is a playable video whose current frame can be sampled
type Source interface {
	// Duration returns false when the duration is not known
	Duration() (time.Duration, bool)
	NaturalSize() (int, int)
	Readiness() models.Readiness
	// CurrentFrame returns the most recent decoded frame or nil
	CurrentFrame() image.Image
	Position() time.Duration
	SetPosition(d time.Duration) error
	Play(ctx context.Context) error
	Pause() error
	Ended() bool
}

// Lender hands out exclusive use of a source. release must be called once
// the borrower is done.
type Lender interface {
	Borrow() (src Source, release func(), err error)
}

// Guard wraps a source shared with interactive controls. While borrowed,
// playback and seek calls made through the guard fail with ErrBusy; the
// borrower drives the underlying source directly.
type Guard struct {
	src Source

	mu   sync.Mutex
	busy bool
}

// NewGuard wraps src
func NewGuard(src Source) *Guard {
	return &Guard{src: src}
}

// Borrow implements Lender
func (g *Guard) Borrow() (Source, func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return nil, nil, ErrBusy
	}
	g.busy = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			g.busy = false
			g.mu.Unlock()
		})
	}
	return g.src, release, nil
}

// Busy reports whether the source is currently borrowed
func (g *Guard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}

func (g *Guard) Duration() (time.Duration, bool) { return g.src.Duration() }
func (g *Guard) NaturalSize() (int, int)         { return g.src.NaturalSize() }
func (g *Guard) Readiness() models.Readiness     { return g.src.Readiness() }
func (g *Guard) CurrentFrame() image.Image       { return g.src.CurrentFrame() }
func (g *Guard) Position() time.Duration         { return g.src.Position() }
func (g *Guard) Ended() bool                     { return g.src.Ended() }

// SetPosition seeks unless an export holds the source
func (g *Guard) SetPosition(d time.Duration) error {
	if g.Busy() {
		return ErrBusy
	}
	return g.src.SetPosition(d)
}

// Play starts playback unless an export holds the source
func (g *Guard) Play(ctx context.Context) error {
	if g.Busy() {
		return ErrBusy
	}
	return g.src.Play(ctx)
}

// Pause stops playback unless an export holds the source
func (g *Guard) Pause() error {
	if g.Busy() {
		return ErrBusy
	}
	return g.src.Pause()
}
