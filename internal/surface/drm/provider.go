package drm

import (
	"fmt"

	"github.com/Emimendoza/mephland/vk"
)

// Provider is the direct-scanout surface backend: it leases a DRM display
// via VK_EXT_acquire_drm_display and wraps plane 0 of it in a VkSurfaceKHR,
// bypassing any windowing system.
type Provider struct {
	instance       vk.Instance
	physicalDevice vk.PhysicalDevice
	node           *Node
	connectorID    uint32

	surface vk.SurfaceKHR
}

func New(instance vk.Instance, physicalDevice vk.PhysicalDevice, node *Node, connectorID uint32) *Provider {
	return &Provider{
		instance:       instance,
		physicalDevice: physicalDevice,
		node:           node,
		connectorID:    connectorID,
	}
}

func (p *Provider) Surface() vk.SurfaceKHR { return p.surface }

// CreateSurface resolves the VkDisplayKHR for the configured connector,
// acquires it, picks the best mode (visible region matching the display's
// own physical resolution, highest refresh rate wins ties), and creates a
// VkDisplayPlaneSurfaceKHR on plane 0 with per-pixel alpha.
func (p *Provider) CreateSurface() error {
	display, err := p.physicalDevice.GetDrmDisplayEXT(p.node.Fd(), p.connectorID)
	if err != nil {
		return fmt.Errorf("resolve drm display for connector %d: %w", p.connectorID, err)
	}

	if err := p.physicalDevice.AcquireDrmDisplayEXT(p.node.Fd(), display); err != nil {
		return fmt.Errorf("acquire drm display: %w", err)
	}

	props, err := displayProperties(p.physicalDevice, display)
	if err != nil {
		return fmt.Errorf("connector %d: %w", p.connectorID, err)
	}

	best, err := bestDisplayMode(p.physicalDevice, display, props.PhysicalResolution)
	if err != nil {
		return fmt.Errorf("connector %d: %w", p.connectorID, err)
	}

	surface, err := p.instance.CreateDisplayPlaneSurfaceKHR(&vk.DisplayPlaneSurfaceCreateInfoKHR{
		DisplayMode:     best.DisplayMode,
		PlaneIndex:      0,
		PlaneStackIndex: 0,
		Transform:       vk.SURFACE_TRANSFORM_IDENTITY_BIT_KHR,
		GlobalAlpha:     1.0,
		AlphaMode:       vk.DISPLAY_PLANE_ALPHA_PER_PIXEL_BIT_KHR,
		ImageExtent:     best.VisibleRegion,
	})
	if err != nil {
		return fmt.Errorf("create display plane surface: %w", err)
	}

	p.surface = surface
	return nil
}

// DeleteSurface is idempotent.
func (p *Provider) DeleteSurface() error {
	if p.surface == (vk.SurfaceKHR{}) {
		return nil
	}
	p.instance.DestroySurfaceKHR(p.surface)
	p.surface = vk.SurfaceKHR{}
	return nil
}
