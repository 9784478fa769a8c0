package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kartoza/kartoza-mockup-recorder/internal/models"
	"github.com/kartoza/kartoza-mockup-recorder/internal/progress"
)

func newTestModel(cancel func()) ExportModel {
	return NewExportModel(ExportInfo{Input: "/videos/demo.mp4", Profile: "iphone", Codec: "vp9"}, nil, nil, cancel)
}

func TestExportModel_Progress(t *testing.T) {
	m := newTestModel(nil)

	next, _ := m.Update(progressMsg{SessionID: "a", Phase: models.PhaseRecording, Percent: 42, Status: progress.StatusRecording})
	m = next.(ExportModel)

	if m.snapshot.Percent != 42 {
		t.Errorf("expected 42%%, got %v", m.snapshot.Percent)
	}
	view := m.View()
	for _, want := range []string{"Recording...", "demo.mp4", "REC", "iphone"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestExportModel_CancelOnce(t *testing.T) {
	calls := 0
	m := newTestModel(func() { calls++ })

	for i := 0; i < 3; i++ {
		next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		m = next.(ExportModel)
		if cmd != nil {
			t.Error("cancel must not quit before the export finishes")
		}
	}
	if calls != 1 {
		t.Errorf("expected cancel to be called once, got %d", calls)
	}
	if !strings.Contains(m.View(), "Cancelling...") {
		t.Error("expected cancelling status")
	}
}

func TestExportModel_Done(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{
			name:   "success",
			result: Result{Artifact: &models.Artifact{Path: "/out/export.webm", Size: 2048}},
			want:   "Saved /out/export.webm (2.0 kB)",
		},
		{
			name:   "failure",
			result: Result{Err: errors.New("encoder exited")},
			want:   "Export failed: encoder exited",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(nil)
			next, cmd := m.Update(doneMsg(tt.result))
			m = next.(ExportModel)

			if cmd == nil {
				t.Fatal("expected quit command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("expected tea.QuitMsg")
			}
			if _, ok := m.Result(); !ok {
				t.Error("expected a result")
			}
			if !strings.Contains(m.View(), tt.want) {
				t.Errorf("expected view to contain %q", tt.want)
			}
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00"},
		{9.6, "00:10"},
		{75, "01:15"},
	}
	for _, tt := range tests {
		if got := formatSeconds(tt.in); got != tt.want {
			t.Errorf("formatSeconds(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestBridge_DropsOldest(t *testing.T) {
	r := progress.New(nil)
	r.Begin("s")
	b := NewBridge(r)

	for i := 0; i <= bridgeBuffer; i++ {
		r.Publish(models.ProgressSnapshot{SessionID: "s", Phase: models.PhaseRecording, Percent: float64(i) / 2})
	}
	b.Close()

	var got []float64
	for s := range b.C() {
		got = append(got, s.Percent)
	}
	if len(got) != bridgeBuffer {
		t.Fatalf("expected %d snapshots, got %d", bridgeBuffer, len(got))
	}
	if got[0] != 0.5 || got[len(got)-1] != float64(bridgeBuffer)/2 {
		t.Errorf("expected the oldest to be dropped, got first %v last %v", got[0], got[len(got)-1])
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Fatalf("order not preserved at %d", i)
		}
	}

	r.Publish(models.ProgressSnapshot{SessionID: "s", Phase: models.PhaseFinalizing})
}

func TestRenderHeader(t *testing.T) {
	plain := RenderHeader("Export", nil)
	if !strings.Contains(plain, "Kartoza Mockup Recorder - Export") {
		t.Error("expected title")
	}
	if strings.Contains(plain, "Status:") {
		t.Error("plain header should not show status")
	}

	full := RenderHeader("Export", &HeaderState{Profile: "tablet", Elapsed: "00:03 / 00:10"})
	for _, want := range []string{"Ready", "tablet", "00:03 / 00:10"} {
		if !strings.Contains(full, want) {
			t.Errorf("expected header to contain %q", want)
		}
	}
}
