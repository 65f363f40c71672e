package logger

import (
	"fmt"
	"testing"
	"time"
)

func TestRingBound(t *testing.T) {
	l := New(3)
	for i := 0; i < 5; i++ {
		l.Info(fmt.Sprintf("msg %d", i))
	}

	recent := l.GetRecent(10)
	if len(recent) != 3 {
		t.Fatalf("Expected ring bounded at 3 messages, got %d", len(recent))
	}
	if recent[0].Text != "msg 4" {
		t.Errorf("Expected newest first, got %q", recent[0].Text)
	}
	if recent[2].Text != "msg 2" {
		t.Errorf("Expected oldest retained to be msg 2, got %q", recent[2].Text)
	}
}

func TestLevels(t *testing.T) {
	l := New(10)
	l.Info("a")
	l.Warning("b")
	l.Error("c")

	recent := l.GetRecent(3)
	if recent[0].Level != LevelError || recent[1].Level != LevelWarning || recent[2].Level != LevelInfo {
		t.Errorf("Unexpected levels: %v %v %v", recent[0].Level, recent[1].Level, recent[2].Level)
	}
}

func TestWatch(t *testing.T) {
	l := New(10)
	ch, stop := l.Watch()
	defer stop()

	l.Info("live message")

	select {
	case msg := <-ch:
		if msg.Text != "live message" {
			t.Errorf("Unexpected watched message: %q", msg.Text)
		}
	case <-time.After(time.Second):
		t.Fatal("Watcher did not receive the message")
	}
}

func TestWatchStop(t *testing.T) {
	l := New(10)
	ch, stop := l.Watch()
	stop()

	// Logging after stop must not panic and must not deliver.
	l.Info("after stop")

	if _, ok := <-ch; ok {
		t.Error("Expected watcher channel to be closed")
	}

	// Stop is idempotent.
	stop()
}
