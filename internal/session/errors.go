package session

import (
	"errors"

	"github.com/kartoza/kartoza-mockup-recorder/internal/compositor"
	"github.com/kartoza/kartoza-mockup-recorder/internal/encoder"
	"github.com/kartoza/kartoza-mockup-recorder/internal/export"
	"github.com/kartoza/kartoza-mockup-recorder/internal/snapshot"
)

var (
	// ErrCollaboratorMissing is returned by Start without a media source or region
	ErrCollaboratorMissing = errors.New("media source or capture region missing")
	// ErrDurationUnknown is returned when the media has no finite duration
	ErrDurationUnknown = errors.New("media duration is unknown")
	// ErrSessionActive is returned by Start while another export runs
	ErrSessionActive = errors.New("an export is already in progress")
	// ErrCancelled is returned by Wait after Cancel
	ErrCancelled = errors.New("export cancelled")
	// ErrSettleTimeout is returned when the layout does not settle in time
	ErrSettleTimeout = errors.New("timed out waiting for the layout to settle")
)

// Errors raised by collaborators, re-exported so callers can match every
// failure from one package
var (
	ErrSnapshotFailed = snapshot.ErrSnapshotFailed
	ErrEncoderOpen    = encoder.ErrEncoderOpen
	ErrEncoderWrite   = encoder.ErrEncoderWrite
	ErrEmptyArtifact  = export.ErrEmptyArtifact
	ErrCompositing    = compositor.ErrCompositing
)
