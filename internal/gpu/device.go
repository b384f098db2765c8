package gpu

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Emimendoza/mephland/vk"
)

// Device owns a logical GPU: its two queue families (each serialized by a
// mutex shared across coinciding families), the compiled vertex/fragment
// shader modules every display pipeline draws with, and a stable identity
// string for logging.
type Device struct {
	log *slog.Logger

	instance vk.Instance
	physical vk.PhysicalDevice
	handle   vk.Device

	id string

	graphicsFamily uint32
	transferFamily uint32

	graphicsQueue vk.Queue
	transferQueue vk.Queue

	// graphicsMu and transferMu point at the same *sync.Mutex when
	// graphicsFamily == transferFamily: Vulkan requires external
	// synchronization of a queue handle, and a shared family means a
	// shared handle.
	graphicsMu *sync.Mutex
	transferMu *sync.Mutex

	vertexShader   vk.ShaderModule
	fragmentShader vk.ShaderModule

	monitorSource MonitorSource
	seenMonitors  map[string]bool
}

// IdentityFunc, when passed to New, derives the stable device identity
// string (e.g. the DRM node path) from the chosen physical device. When
// nil, New falls back to the device's PCI vendor:device pair.
type IdentityFunc func(vk.PhysicalDevice, vk.PhysicalDeviceProperties) (string, error)

// New enumerates physical devices on instance, picks the first that
// satisfies opts and carries the timeline-semaphore feature, creates a
// logical device with one queue per chosen family, and eagerly compiles
// the given SPIR-V into shader modules. Shader compilation failure is
// fatal to device creation, matching the spec's "failure is fatal" rule.
func New(instance vk.Instance, opts SelectionOptions, identity IdentityFunc, vertexSPIRV, fragmentSPIRV []byte, log *slog.Logger) (*Device, error) {
	if log == nil {
		log = slog.Default()
	}

	physicalDevices, err := instance.EnumeratePhysicalDevices()
	if err != nil {
		return nil, fmt.Errorf("enumerate physical devices: %w", err)
	}

	var chosen candidate
	var found bool
	for _, pd := range physicalDevices {
		c, err := evaluate(pd, opts)
		if err != nil {
			log.Debug("skipping physical device", slog.String("reason", err.Error()))
			continue
		}
		chosen = c
		found = true
		break
	}
	if !found {
		return nil, fmt.Errorf("no suitable physical device found")
	}

	return newFromCandidate(instance, chosen, opts, identity, vertexSPIRV, fragmentSPIRV, log)
}

// newFromCandidate creates the logical device, queues, and shader modules
// for one already-evaluated physical device. Split out of New so Instance's
// multi-device RefreshDevices can create a Device per unseen candidate
// without re-deriving the selection logic.
func newFromCandidate(instance vk.Instance, chosen candidate, opts SelectionOptions, identity IdentityFunc, vertexSPIRV, fragmentSPIRV []byte, log *slog.Logger) (*Device, error) {
	queueInfos := []vk.DeviceQueueCreateInfo{
		{QueueFamilyIndex: chosen.graphicsFamily, QueuePriorities: []float32{1.0}},
	}
	if chosen.transferFamily != chosen.graphicsFamily {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			QueueFamilyIndex: chosen.transferFamily,
			QueuePriorities:  []float32{1.0},
		})
	}

	extensions := make([]string, 0, len(RequiredExtensions)+len(opts.RequiredExtensions))
	extensions = append(extensions, RequiredExtensions...)
	extensions = append(extensions, opts.RequiredExtensions...)

	handle, err := chosen.physical.CreateDevice(&vk.DeviceCreateInfo{
		QueueCreateInfos:      queueInfos,
		EnabledExtensionNames: extensions,
		Vulkan12Features:      &vk.PhysicalDeviceVulkan12Features{TimelineSemaphore: true},
		Vulkan13Features:      &vk.PhysicalDeviceVulkan13Features{Synchronization2: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create logical device: %w", err)
	}

	var id string
	if identity != nil {
		id, err = identity(chosen.physical, chosen.properties)
		if err != nil {
			handle.Destroy()
			return nil, fmt.Errorf("derive device id: %w", err)
		}
	} else {
		id = fmt.Sprintf("%04x:%04x", chosen.properties.VendorID, chosen.properties.DeviceID)
	}

	d := &Device{
		log:            log,
		instance:       instance,
		physical:       chosen.physical,
		handle:         handle,
		id:             id,
		graphicsFamily: chosen.graphicsFamily,
		transferFamily: chosen.transferFamily,
		graphicsQueue:  handle.GetQueue(chosen.graphicsFamily, 0),
		seenMonitors:   make(map[string]bool),
	}

	if chosen.transferFamily == chosen.graphicsFamily {
		d.transferQueue = d.graphicsQueue
		d.graphicsMu = &sync.Mutex{}
		d.transferMu = d.graphicsMu
	} else {
		d.transferQueue = handle.GetQueue(chosen.transferFamily, 0)
		d.graphicsMu = &sync.Mutex{}
		d.transferMu = &sync.Mutex{}
	}

	vertexModule, err := handle.CreateShaderModule(&vk.ShaderModuleCreateInfo{Code: vertexSPIRV})
	if err != nil {
		handle.Destroy()
		return nil, fmt.Errorf("compile vertex shader: %w", err)
	}
	fragmentModule, err := handle.CreateShaderModule(&vk.ShaderModuleCreateInfo{Code: fragmentSPIRV})
	if err != nil {
		handle.DestroyShaderModule(vertexModule)
		handle.Destroy()
		return nil, fmt.Errorf("compile fragment shader: %w", err)
	}
	d.vertexShader = vertexModule
	d.fragmentShader = fragmentModule

	log.Info("device created",
		slog.String("device_id", d.id),
		slog.String("device_name", chosen.properties.DeviceName),
		slog.Int("graphics_family", int(d.graphicsFamily)),
		slog.Int("transfer_family", int(d.transferFamily)),
	)

	return d, nil
}

// UpdateMonitors asks the device's backend-supplied MonitorSource for the
// monitors currently reachable through it and returns only the ones not
// already returned by a previous call, per §4.7's "produce new displays for
// unseen connectors" rule. A device with no MonitorSource (e.g. constructed
// directly by a test) reports no monitors.
func (d *Device) UpdateMonitors() ([]MonitorDescriptor, error) {
	if d.monitorSource == nil {
		return nil, nil
	}
	all, err := d.monitorSource.Monitors(d)
	if err != nil {
		return nil, fmt.Errorf("enumerate monitors: %w", err)
	}

	fresh := make([]MonitorDescriptor, 0, len(all))
	for _, m := range all {
		if d.seenMonitors[m.ID] {
			continue
		}
		d.seenMonitors[m.ID] = true
		fresh = append(fresh, m)
	}
	return fresh, nil
}

func (d *Device) ID() string                            { return d.id }
func (d *Device) Handle() vk.Device                     { return d.handle }
func (d *Device) PhysicalDevice() vk.PhysicalDevice     { return d.physical }
func (d *Device) GraphicsFamily() uint32                { return d.graphicsFamily }
func (d *Device) TransferFamily() uint32                { return d.transferFamily }
func (d *Device) VertexShaderModule() vk.ShaderModule   { return d.vertexShader }
func (d *Device) FragmentShaderModule() vk.ShaderModule { return d.fragmentShader }

func (d *Device) queueParts(queueFamilyIndex uint32) (vk.Queue, *sync.Mutex, error) {
	switch queueFamilyIndex {
	case d.graphicsFamily:
		return d.graphicsQueue, d.graphicsMu, nil
	case d.transferFamily:
		return d.transferQueue, d.transferMu, nil
	default:
		return vk.Queue{}, nil, fmt.Errorf("unknown queue family index %d", queueFamilyIndex)
	}
}

// CreateCommandPool creates a pool that allows resetting individual command
// buffers, matching the per-display command-buffer reset discipline.
func (d *Device) CreateCommandPool(queueFamilyIndex uint32) (vk.CommandPool, error) {
	return d.handle.CreateCommandPool(&vk.CommandPoolCreateInfo{
		Flags:            vk.COMMAND_POOL_CREATE_RESET_COMMAND_BUFFER_BIT,
		QueueFamilyIndex: queueFamilyIndex,
	})
}

// CreateCommandBuffer allocates one primary command buffer from pool.
func (d *Device) CreateCommandBuffer(pool vk.CommandPool) (vk.CommandBuffer, error) {
	buffers, err := d.handle.AllocateCommandBuffers(&vk.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              vk.COMMAND_BUFFER_LEVEL_PRIMARY,
		CommandBufferCount: 1,
	})
	if err != nil {
		return vk.CommandBuffer{}, err
	}
	return buffers[0], nil
}

// Submit serializes a submit against the mutex for queueFamilyIndex's
// queue and never blocks on GPU completion beyond the driver call itself.
func (d *Device) Submit(queueFamilyIndex uint32, submits []vk.SubmitInfo, fence vk.Fence) error {
	queue, mu, err := d.queueParts(queueFamilyIndex)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	return queue.Submit(submits, fence)
}

// Present serializes a present call the same way Submit does, and returns
// the raw driver Result so the caller can distinguish OutOfDate/Suboptimal
// from a hard failure.
func (d *Device) Present(queueFamilyIndex uint32, presentInfo *vk.PresentInfoKHR) (vk.Result, error) {
	queue, mu, err := d.queueParts(queueFamilyIndex)
	if err != nil {
		return vk.Result(0), err
	}
	mu.Lock()
	defer mu.Unlock()
	return queue.PresentKHR(presentInfo)
}

// WaitIdle drains the queue for queueFamilyIndex. Callers use this only
// during teardown.
func (d *Device) WaitIdle(queueFamilyIndex uint32) error {
	queue, mu, err := d.queueParts(queueFamilyIndex)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	return queue.WaitIdle()
}

// Destroy tears down the shader modules and logical device. The physical
// device and instance outlive this call; the caller (the controller) is
// responsible for destroying the instance only after every Device and
// every Display that references one has been torn down.
func (d *Device) Destroy() {
	d.handle.DestroyShaderModule(d.vertexShader)
	d.handle.DestroyShaderModule(d.fragmentShader)
	d.handle.Destroy()
	d.log.Info("device destroyed", slog.String("device_id", d.id))
}
