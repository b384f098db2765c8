package sdlsurface

import (
	"testing"

	"github.com/Emimendoza/mephland/vk"
)

func TestNewMonitorSourceDefaultsLogger(t *testing.T) {
	src := NewMonitorSource(vk.Instance{}, 2, 1920, 1080, nil)
	if src.log == nil {
		t.Fatalf("expected a default logger when log is nil")
	}
	if src.maxWindows != 2 {
		t.Errorf("maxWindows = %d, want 2", src.maxWindows)
	}
}
