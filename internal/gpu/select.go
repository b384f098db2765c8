// Package gpu wraps a chosen Vulkan physical/logical device pair: queue
// families, serialized queues, and the two shader modules every display
// pipeline draws with.
package gpu

import (
	"fmt"
	"math/bits"

	"github.com/Emimendoza/mephland/vk"
)

// RequiredExtensions lists the device extensions every backend needs,
// independent of DRM vs. SDL. Backends add their own (e.g.
// VK_EXT_physical_device_drm) through SelectionOptions.RequiredExtensions.
var RequiredExtensions = []string{
	"VK_KHR_swapchain",
	"VK_EXT_swapchain_maintenance1",
}

// SelectionOptions configures which physical device New accepts.
type SelectionOptions struct {
	// RequiredExtensions beyond RequiredExtensions, e.g. the DRM backend's
	// VK_EXT_physical_device_drm.
	RequiredExtensions []string
	// DeviceGood is a backend-specific predicate (e.g. the DRM backend
	// checks the device's primary node major/minor against the host DRM
	// inventory). Nil accepts every device that passes the extension and
	// feature checks.
	DeviceGood func(vk.PhysicalDevice) bool
}

func extensionsSatisfied(available []vk.ExtensionProperties, required []string) bool {
	have := make(map[string]bool, len(available))
	for _, ext := range available {
		have[ext.ExtensionName] = true
	}
	for _, want := range required {
		if !have[want] {
			return false
		}
	}
	return true
}

// queueFamilies picks the graphics and transfer family indices per the
// selection algorithm: the first family advertising GRAPHICS|TRANSFER
// becomes the graphics family; the family advertising TRANSFER with the
// fewest flag bits set becomes the transfer family (ties toward the
// graphics family on unified hardware).
func queueFamilies(props []vk.QueueFamilyProperties) (graphics, transfer uint32, ok bool) {
	foundGraphics := false
	foundTransfer := false
	var bestTransferBits int = -1

	for i, p := range props {
		if !foundGraphics && p.QueueFlags&vk.QUEUE_GRAPHICS_BIT != 0 && p.QueueFlags&vk.QUEUE_TRANSFER_BIT != 0 {
			graphics = uint32(i)
			foundGraphics = true
		}
		if p.QueueFlags&vk.QUEUE_TRANSFER_BIT != 0 {
			n := bits.OnesCount32(uint32(p.QueueFlags))
			if bestTransferBits == -1 || n < bestTransferBits {
				transfer = uint32(i)
				bestTransferBits = n
				foundTransfer = true
			}
		}
	}

	return graphics, transfer, foundGraphics && foundTransfer
}

// candidate holds everything discovered about a physical device during
// selection, prior to logical device creation.
type candidate struct {
	physical       vk.PhysicalDevice
	properties     vk.PhysicalDeviceProperties
	graphicsFamily uint32
	transferFamily uint32
}

func evaluate(physical vk.PhysicalDevice, opts SelectionOptions) (candidate, error) {
	exts, err := physical.EnumerateDeviceExtensionProperties()
	if err != nil {
		return candidate{}, fmt.Errorf("enumerate device extensions: %w", err)
	}

	required := make([]string, 0, len(RequiredExtensions)+len(opts.RequiredExtensions))
	required = append(required, RequiredExtensions...)
	required = append(required, opts.RequiredExtensions...)

	if !extensionsSatisfied(exts, required) {
		return candidate{}, fmt.Errorf("missing required extension")
	}

	if !physical.SupportsTimelineSemaphore() {
		return candidate{}, fmt.Errorf("timeline semaphore feature not supported")
	}

	if opts.DeviceGood != nil && !opts.DeviceGood(physical) {
		return candidate{}, fmt.Errorf("backend rejected device")
	}

	graphics, transfer, ok := queueFamilies(physical.GetQueueFamilyProperties())
	if !ok {
		return candidate{}, fmt.Errorf("no suitable graphics/transfer queue family")
	}

	return candidate{
		physical:       physical,
		properties:     physical.GetProperties(),
		graphicsFamily: graphics,
		transferFamily: transfer,
	}, nil
}
