package drm

import (
	"fmt"

	"github.com/Emimendoza/mephland/vk"
)

// displayProperties finds the VkDisplayPropertiesKHR entry for display,
// shared by Provider.CreateSurface (which needs PhysicalResolution to pick
// a mode) and MonitorSource (which also wants PhysicalDimensions for the
// panel's physical size).
func displayProperties(physicalDevice vk.PhysicalDevice, display vk.DisplayKHR) (vk.DisplayPropertiesKHR, error) {
	allProps, err := physicalDevice.GetPhysicalDeviceDisplayPropertiesKHR()
	if err != nil {
		return vk.DisplayPropertiesKHR{}, fmt.Errorf("enumerate display properties: %w", err)
	}
	for _, props := range allProps {
		if props.Display == display {
			return props, nil
		}
	}
	return vk.DisplayPropertiesKHR{}, fmt.Errorf("display not found in display properties")
}

// bestDisplayMode picks the mode whose visible region matches
// physicalResolution, highest refresh rate breaking ties, per §4.1/§6's
// mode-selection rule. Shared by Provider.CreateSurface and MonitorSource.
func bestDisplayMode(physicalDevice vk.PhysicalDevice, display vk.DisplayKHR, physicalResolution vk.Extent2D) (vk.DisplayModePropertiesKHR, error) {
	modes, err := physicalDevice.GetDisplayModePropertiesKHR(display)
	if err != nil {
		return vk.DisplayModePropertiesKHR{}, fmt.Errorf("enumerate display modes: %w", err)
	}
	if len(modes) == 0 {
		return vk.DisplayModePropertiesKHR{}, fmt.Errorf("display advertises no modes")
	}

	best := modes[0]
	bestMatches := best.VisibleRegion == physicalResolution
	for _, mode := range modes[1:] {
		matches := mode.VisibleRegion == physicalResolution
		switch {
		case matches && !bestMatches:
			best, bestMatches = mode, true
		case matches == bestMatches && mode.RefreshRate > best.RefreshRate:
			best = mode
		}
	}
	return best, nil
}
