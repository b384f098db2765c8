package sdlsurface

import (
	"fmt"
	"log/slog"

	"github.com/Emimendoza/mephland/internal/gpu"
	"github.com/Emimendoza/mephland/vk"
)

// MonitorSource implements internal/gpu.MonitorSource for the windowed
// fallback backend: it offers one slot per configured window, independent
// of any physical device, since an OS window is not tied to a particular
// GPU the way a DRM connector is.
type MonitorSource struct {
	instance   vk.Instance
	maxWindows int64
	width      int
	height     int
	log        *slog.Logger
}

// NewMonitorSource builds a MonitorSource offering maxWindows windowed
// slots, each width x height, on the given instance.
func NewMonitorSource(instance vk.Instance, maxWindows int64, width, height int, log *slog.Logger) *MonitorSource {
	if log == nil {
		log = slog.Default()
	}
	return &MonitorSource{instance: instance, maxWindows: maxWindows, width: width, height: height, log: log}
}

// Monitors implements gpu.MonitorSource: every call offers the same fixed
// slot set, and gpu.Device's seen-monitor dedup ensures each is only
// surfaced once across the life of the device.
func (s *MonitorSource) Monitors(dev *gpu.Device) ([]gpu.MonitorDescriptor, error) {
	out := make([]gpu.MonitorDescriptor, 0, s.maxWindows)
	for i := int64(0); i < s.maxWindows; i++ {
		title := fmt.Sprintf("mephland-%s-%d", dev.ID(), i)
		out = append(out, gpu.MonitorDescriptor{
			ID:                fmt.Sprintf("%s:sdl:%d", dev.ID(), i),
			Name:              title,
			Make:              "",
			Model:             "windowed",
			PhysicalWidthMM:   0,
			PhysicalHeightMM:  0,
			RefreshMilliHertz: 60000,
			Preferred:         i == 0,
			Surface:           New(s.instance, title, s.width, s.height, s.maxWindows),
		})
	}
	return out, nil
}
