package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Phase represents the current state of an export session
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhasePreparing  Phase = "preparing"
	PhaseRecording  Phase = "recording"
	PhaseFinalizing Phase = "finalizing"
	PhaseFailed     Phase = "failed"
)

// Rank orders phases within a single session. Failed ranks highest because
// nothing may follow it.
func (p Phase) Rank() int {
	switch p {
	case PhasePreparing:
		return 1
	case PhaseRecording:
		return 2
	case PhaseFinalizing:
		return 3
	case PhaseIdle:
		return 4
	case PhaseFailed:
		return 5
	default:
		return 0
	}
}

// Active reports whether the phase holds the session lock
func (p Phase) Active() bool {
	return p == PhasePreparing || p == PhaseRecording || p == PhaseFinalizing
}

// RecordingSession represents an active or completed export session
type RecordingSession struct {
	ID         string        `json:"id"`
	Phase      Phase         `json:"phase"`
	StartTime  time.Time     `json:"start_time,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
	Total      time.Duration `json:"total"`
	FrameCount int64         `json:"frame_count"`
	Chunks     [][]byte      `json:"-"`
	Error      string        `json:"error,omitempty"`
}

// NewRecordingSession creates an idle session with a fresh ID
func NewRecordingSession() *RecordingSession {
	return &RecordingSession{
		ID:    uuid.NewString(),
		Phase: PhaseIdle,
	}
}

// Percent returns elapsed/total as a percentage clamped to [0,100]
func (s *RecordingSession) Percent() float64 {
	return PercentOf(s.Elapsed, s.Total)
}

// ChunkBytes returns the total size of all encoded chunks
func (s *RecordingSession) ChunkBytes() int64 {
	var n int64
	for _, c := range s.Chunks {
		n += int64(len(c))
	}
	return n
}

// Reset clears all per-run fields while keeping the ID
func (s *RecordingSession) Reset() {
	s.Phase = PhaseIdle
	s.StartTime = time.Time{}
	s.Elapsed = 0
	s.Total = 0
	s.FrameCount = 0
	s.Chunks = nil
	s.Error = ""
}

// PercentOf returns elapsed/total*100 clamped to [0,100]. A non-positive
// total yields 0.
func PercentOf(elapsed, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return ClampPercent(float64(elapsed) / float64(total) * 100)
}

// ClampPercent limits p to [0,100]; NaN becomes 0
func ClampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// ProgressSnapshot is the immutable progress value broadcast to the UI
type ProgressSnapshot struct {
	SessionID      string  `json:"session_id,omitempty"`
	Phase          Phase   `json:"phase"`
	Percent        float64 `json:"percent"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	TotalSeconds   float64 `json:"total_seconds"`
	Status         string  `json:"status"`
}

// IsRecording mirrors the UI flag that shows the recording overlay
func (p ProgressSnapshot) IsRecording() bool {
	return p.Phase.Active()
}

// String formats the snapshot for log lines and plain output
func (p ProgressSnapshot) String() string {
	if p.Status == "" {
		return fmt.Sprintf("%s %.0f%%", p.Phase, p.Percent)
	}
	return fmt.Sprintf("%s %.0f%% - %s", p.Phase, p.Percent, p.Status)
}

// Snapshot projects the session into a ProgressSnapshot with the given status
func (s *RecordingSession) Snapshot(status string) ProgressSnapshot {
	return ProgressSnapshot{
		SessionID:      s.ID,
		Phase:          s.Phase,
		Percent:        s.Percent(),
		ElapsedSeconds: s.Elapsed.Seconds(),
		TotalSeconds:   s.Total.Seconds(),
		Status:         status,
	}
}
