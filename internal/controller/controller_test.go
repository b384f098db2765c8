package controller

import (
	"log/slog"
	"testing"
	"time"
)

func TestNewDefaultsLoggerWhenNil(t *testing.T) {
	c := New(nil, nil, nil, 50*time.Millisecond, nil)
	if c.log == nil {
		t.Fatalf("expected New to default to slog.Default() when Log is nil")
	}
	if c.maxTimeBetweenFrames != 50*time.Millisecond {
		t.Fatalf("maxTimeBetweenFrames = %v, want 50ms", c.maxTimeBetweenFrames)
	}
}

func TestNewKeepsSuppliedLogger(t *testing.T) {
	log := slog.Default()
	c := New(nil, nil, nil, time.Second, log)
	if c.log != log {
		t.Fatalf("expected New to keep the supplied logger")
	}
}

func TestShutdownDisplaysClearsEmptyCollection(t *testing.T) {
	c := New(nil, nil, nil, time.Second, nil)
	c.shutdownDisplays()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.displays != nil {
		t.Fatalf("expected displays to be nil after shutdownDisplays, got %v", c.displays)
	}
}
