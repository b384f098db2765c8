package gpu

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Emimendoza/mephland/internal/surface"
	"github.com/Emimendoza/mephland/vk"
)

// MonitorDescriptor describes one output reachable through a device's
// backend: everything a Display needs to be constructed against it. Kept
// separate from internal/display.Identity so internal/gpu never needs to
// import internal/display, which itself imports internal/gpu.
type MonitorDescriptor struct {
	ID                string
	Name              string
	Make              string
	Model             string
	PhysicalWidthMM   int32
	PhysicalHeightMM  int32
	RefreshMilliHertz int32
	Preferred         bool
	Surface           surface.Provider
}

// MonitorSource enumerates the monitors currently reachable through a
// device's backend (DRM connectors for the DRM backend, a single slot per
// configured window for the SDL backend). internal/gpu knows nothing about
// DRM ioctls or SDL windows; the backend that constructs the Instance
// supplies this.
type MonitorSource interface {
	Monitors(dev *Device) ([]MonitorDescriptor, error)
}

// Instance owns the Vulkan instance handle and the set of logical devices
// created against it, re-evaluating for newly appeared physical devices on
// each RefreshDevices call.
type Instance struct {
	handle   vk.Instance
	opts     SelectionOptions
	identity IdentityFunc
	monitors MonitorSource

	vertexSPIRV   []byte
	fragmentSPIRV []byte
	log           *slog.Logger

	mu      sync.Mutex
	devices map[string]*Device
}

// NewInstance wraps an already-created vk.Instance. RefreshDevices must be
// called at least once before any device exists.
func NewInstance(handle vk.Instance, opts SelectionOptions, identity IdentityFunc, monitors MonitorSource, vertexSPIRV, fragmentSPIRV []byte, log *slog.Logger) *Instance {
	if log == nil {
		log = slog.Default()
	}
	return &Instance{
		handle:        handle,
		opts:          opts,
		identity:      identity,
		monitors:      monitors,
		vertexSPIRV:   vertexSPIRV,
		fragmentSPIRV: fragmentSPIRV,
		log:           log,
		devices:       make(map[string]*Device),
	}
}

// Handle returns the underlying Vulkan instance handle, needed by backends
// that create surfaces directly against it (e.g. sdlsurface's
// RequiredInstanceExtensions caller, or drm's display-plane surface code).
func (inst *Instance) Handle() vk.Instance { return inst.handle }

// RefreshDevices implements §4.7 step 2's device side: evaluates every
// physical device against opts, creates a Device for any candidate not
// already tracked, and returns every currently-known Device (new and old),
// sorted by ID for deterministic iteration order.
func (inst *Instance) RefreshDevices() ([]*Device, error) {
	physicalDevices, err := inst.handle.EnumeratePhysicalDevices()
	if err != nil {
		return nil, fmt.Errorf("enumerate physical devices: %w", err)
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	for _, pd := range physicalDevices {
		cand, err := evaluate(pd, inst.opts)
		if err != nil {
			inst.log.Debug("skipping physical device", slog.String("reason", err.Error()))
			continue
		}

		var id string
		if inst.identity != nil {
			id, err = inst.identity(cand.physical, cand.properties)
			if err != nil {
				inst.log.Debug("skipping physical device", slog.String("reason", err.Error()))
				continue
			}
		} else {
			id = fmt.Sprintf("%04x:%04x", cand.properties.VendorID, cand.properties.DeviceID)
		}
		if _, ok := inst.devices[id]; ok {
			continue
		}

		dev, err := newFromCandidate(inst.handle, cand, inst.opts, inst.identity, inst.vertexSPIRV, inst.fragmentSPIRV, inst.log)
		if err != nil {
			inst.log.Warn("device creation failed, skipping", slog.String("err", err.Error()))
			continue
		}
		dev.monitorSource = inst.monitors
		inst.devices[dev.id] = dev
	}

	out := make([]*Device, 0, len(inst.devices))
	for _, dev := range inst.devices {
		out = append(out, dev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out, nil
}

// Destroy tears down every tracked device and the instance itself. The
// caller must have already joined every Display referencing these devices.
func (inst *Instance) Destroy() {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	for _, dev := range inst.devices {
		dev.Destroy()
	}
	inst.devices = make(map[string]*Device)
	inst.handle.Destroy()
}
