package notify

import "testing"

func TestNew(t *testing.T) {
	if _, ok := New(true).(Desktop); !ok {
		t.Error("expected desktop notifier when enabled")
	}
	if _, ok := New(false).(Silent); !ok {
		t.Error("expected silent notifier when disabled")
	}
}

func TestCompleteMessage(t *testing.T) {
	got := CompleteMessage("/tmp/export.webm", 1_500_000)
	want := "/tmp/export.webm saved (1.5 MB)"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSilent(t *testing.T) {
	var n Notifier = Silent{}
	if err := n.ExportStarted("iphone"); err != nil {
		t.Error(err)
	}
	if err := n.ExportComplete("x", 1); err != nil {
		t.Error(err)
	}
	if err := n.ExportFailed("x"); err != nil {
		t.Error(err)
	}
}
