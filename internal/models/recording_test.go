package models

import (
	"math"
	"testing"
	"time"
)

func TestPercentOf(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		total   time.Duration
		want    float64
	}{
		{"zero total", time.Second, 0, 0},
		{"negative elapsed", -time.Second, 10 * time.Second, 0},
		{"half", 5 * time.Second, 10 * time.Second, 50},
		{"exact", 10 * time.Second, 10 * time.Second, 100},
		{"overshoot", 12 * time.Second, 10 * time.Second, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentOf(tt.elapsed, tt.total)
			if got != tt.want {
				t.Errorf("PercentOf(%v, %v) = %v, want %v", tt.elapsed, tt.total, got, tt.want)
			}
		})
	}
}

func TestClampPercent(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-3, 0},
		{42.5, 42.5},
		{140, 100},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ClampPercent(tt.in); got != tt.want {
			t.Errorf("ClampPercent(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPhaseRank_Ordering(t *testing.T) {
	order := []Phase{PhasePreparing, PhaseRecording, PhaseFinalizing, PhaseIdle, PhaseFailed}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("expected %s to rank below %s", order[i-1], order[i])
		}
	}
}

func TestPhase_Active(t *testing.T) {
	if PhaseIdle.Active() || PhaseFailed.Active() {
		t.Error("idle and failed must not be active")
	}
	if !PhasePreparing.Active() || !PhaseRecording.Active() || !PhaseFinalizing.Active() {
		t.Error("preparing, recording and finalizing must be active")
	}
}

func TestRecordingSession_ResetKeepsID(t *testing.T) {
	s := NewRecordingSession()
	id := s.ID
	if id == "" {
		t.Fatal("expected a session ID")
	}

	s.Phase = PhaseRecording
	s.FrameCount = 12
	s.Chunks = [][]byte{{1, 2}, {3}}
	s.Error = "boom"

	if s.ChunkBytes() != 3 {
		t.Errorf("expected 3 chunk bytes, got %d", s.ChunkBytes())
	}

	s.Reset()

	if s.ID != id {
		t.Errorf("expected ID %q to survive Reset, got %q", id, s.ID)
	}
	if s.Phase != PhaseIdle || s.FrameCount != 0 || s.Chunks != nil || s.Error != "" {
		t.Errorf("expected a cleared session, got %+v", s)
	}
}

func TestRecordingSession_Snapshot(t *testing.T) {
	s := NewRecordingSession()
	s.Phase = PhaseRecording
	s.Elapsed = 2500 * time.Millisecond
	s.Total = 10 * time.Second

	snap := s.Snapshot("Recording...")

	if snap.Percent != 25 {
		t.Errorf("expected 25%%, got %v", snap.Percent)
	}
	if snap.ElapsedSeconds != 2.5 || snap.TotalSeconds != 10 {
		t.Errorf("unexpected times: %+v", snap)
	}
	if !snap.IsRecording() {
		t.Error("expected IsRecording for recording phase")
	}
}

func TestClipGeometry_Valid(t *testing.T) {
	tests := []struct {
		name string
		clip ClipGeometry
		want bool
	}{
		{"normal", ClipGeometry{X: 20, Y: 15, Width: 360, Height: 770, CornerRadius: 50}, true},
		{"zero width", ClipGeometry{Width: 0, Height: 10}, false},
		{"nan", ClipGeometry{X: math.NaN(), Width: 10, Height: 10}, false},
		{"inf radius", ClipGeometry{Width: 10, Height: 10, CornerRadius: math.Inf(1)}, false},
		{"negative radius", ClipGeometry{Width: 10, Height: 10, CornerRadius: -1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.clip.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVideoMetadata_HasDuration(t *testing.T) {
	if (VideoMetadata{Duration: math.NaN()}).HasDuration() {
		t.Error("NaN duration must not count as known")
	}
	if (VideoMetadata{Duration: 0}).HasDuration() {
		t.Error("zero duration must not count as known")
	}
	if !(VideoMetadata{Duration: 5}).HasDuration() {
		t.Error("5s duration should be known")
	}
}

func TestReadiness_FrameAvailable(t *testing.T) {
	if HasMetadata.FrameAvailable() {
		t.Error("metadata only must not allow frame sampling")
	}
	if !HasCurrentFrame.FrameAvailable() || !HasEnoughData.FrameAvailable() {
		t.Error("current frame and above must allow sampling")
	}
}
