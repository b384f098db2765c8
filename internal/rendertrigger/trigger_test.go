package rendertrigger

import (
	"testing"
	"time"
)

func TestRequestRenderGrantsOnePermitPerReadyDisplay(t *testing.T) {
	trig := New()
	trig.MarkReady()
	trig.MarkReady()
	trig.RequestRender()

	deadline := time.Now().Add(50 * time.Millisecond)
	if !trig.WaitDeadline(deadline) {
		t.Fatalf("expected first wait to be demand-driven")
	}
	if !trig.WaitDeadline(deadline) {
		t.Fatalf("expected second wait to be demand-driven")
	}
	if trig.WaitDeadline(time.Now().Add(20 * time.Millisecond)) {
		t.Fatalf("expected third wait to time out, only two displays were ready")
	}
}

func TestRequestRenderWithNoReadyDisplaysGrantsNothing(t *testing.T) {
	trig := New()
	trig.RequestRender()

	if trig.WaitDeadline(time.Now().Add(20 * time.Millisecond)) {
		t.Fatalf("expected timeout, no display had marked itself ready")
	}
}

func TestWaitDeadlineTimesOut(t *testing.T) {
	trig := New()
	start := time.Now()
	woken := trig.WaitDeadline(start.Add(20 * time.Millisecond))
	if woken {
		t.Fatalf("expected a deadline timeout, not a demand wake-up")
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatalf("returned too early: %v", time.Since(start))
	}
}

func TestPulseWakesRegardlessOfReadyCount(t *testing.T) {
	trig := New()
	trig.Pulse()

	if !trig.WaitDeadline(time.Now().Add(50 * time.Millisecond)) {
		t.Fatalf("expected Pulse to grant a wake-up with no MarkReady call")
	}
}
