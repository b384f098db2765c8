package drm

import (
	"fmt"
	"path/filepath"

	"github.com/Emimendoza/mephland/internal/config"
	"github.com/Emimendoza/mephland/vk"
)

// ListCardPaths returns every /dev/dri/cardN node on the host, used as the
// default device set before MLAND_DRM_DEVICES include/exclude filtering is
// applied.
func ListCardPaths() ([]string, error) {
	return filepath.Glob("/dev/dri/card*")
}

// Filter applies the include/exclude semantics of MLAND_DRM_DEVICES:
// a non-empty include list overrides entirely, otherwise every path not in
// exclude passes.
func Filter(paths, include, exclude []string) []string {
	if len(include) > 0 {
		want := make(map[string]bool, len(include))
		for _, p := range include {
			want[p] = true
		}
		var out []string
		for _, p := range paths {
			if want[p] {
				out = append(out, p)
			}
		}
		return out
	}

	if len(exclude) == 0 {
		return paths
	}
	skip := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		skip[p] = true
	}
	var out []string
	for _, p := range paths {
		if !skip[p] {
			out = append(out, p)
		}
	}
	return out
}

// ParseDeviceList splits the ':'-separated MLAND_DRM_DEVICES value into
// explicit include and exclude paths; a leading '!' marks exclusion.
// Delegates to internal/config so the two packages agree on one definition.
func ParseDeviceList(value string) (include, exclude []string) {
	return config.ParseDeviceList(value)
}

// DeviceGood returns the internal/gpu.SelectionOptions.DeviceGood predicate
// that accepts a physical device only if its primary DRM node (major,minor)
// matches node's.
func DeviceGood(node *Node) func(vk.PhysicalDevice) bool {
	return func(pd vk.PhysicalDevice) bool {
		props := pd.GetDRMProperties()
		return props.HasPrimary && props.PrimaryMajor == node.Major && props.PrimaryMinor == node.Minor
	}
}

// DeviceGoodAny is DeviceGood generalized over the whole host DRM
// inventory: a physical device is accepted if its primary node matches any
// of nodes, matching §6's "primary-node identity matched against the host
// DRM inventory" rule when more than one card is in play.
func DeviceGoodAny(nodes []*Node) func(vk.PhysicalDevice) bool {
	return func(pd vk.PhysicalDevice) bool {
		props := pd.GetDRMProperties()
		if !props.HasPrimary {
			return false
		}
		for _, node := range nodes {
			if props.PrimaryMajor == node.Major && props.PrimaryMinor == node.Minor {
				return true
			}
		}
		return false
	}
}

// IdentityFor returns an internal/gpu.IdentityFunc deriving a device's
// stable identity string from whichever node in nodes its primary DRM node
// matches, so the controller's device map is keyed on the DRM node path
// rather than a raw PCI vendor:device pair.
func IdentityFor(nodes []*Node) func(vk.PhysicalDevice, vk.PhysicalDeviceProperties) (string, error) {
	return func(pd vk.PhysicalDevice, _ vk.PhysicalDeviceProperties) (string, error) {
		props := pd.GetDRMProperties()
		if props.HasPrimary {
			for _, node := range nodes {
				if props.PrimaryMajor == node.Major && props.PrimaryMinor == node.Minor {
					return node.Path, nil
				}
			}
		}
		return "", fmt.Errorf("physical device matches no configured DRM node")
	}
}
