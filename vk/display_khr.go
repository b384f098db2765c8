// display_khr.go
//
// VK_KHR_display / VK_EXT_acquire_drm_display / VK_EXT_display_surface_counter
// bindings: the handful of calls the DRM direct-scanout surface provider
// needs to acquire a VkDisplayKHR from a DRM connector and turn it into a
// presentable VkSurfaceKHR on a single plane. Not used by the SDL backend.
package vk

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>
*/
import "C"
import "unsafe"

type DisplayKHR struct {
	handle C.VkDisplayKHR
}

type DisplayModeKHR struct {
	handle C.VkDisplayModeKHR
}

type DisplayPropertiesKHR struct {
	Display               DisplayKHR
	DisplayName           string
	PhysicalDimensions    Extent2D
	PhysicalResolution    Extent2D
	SupportedTransforms   SurfaceTransformFlagsKHR
	PlaneReorderPossible  bool
	PersistentContent     bool
}

func (physicalDevice PhysicalDevice) GetPhysicalDeviceDisplayPropertiesKHR() ([]DisplayPropertiesKHR, error) {
	var count C.uint32_t
	result := C.vkGetPhysicalDeviceDisplayPropertiesKHR(physicalDevice.handle, &count, nil)
	if result != C.VK_SUCCESS {
		return nil, Result(result)
	}
	if count == 0 {
		return nil, nil
	}

	cProps := make([]C.VkDisplayPropertiesKHR, count)
	result = C.vkGetPhysicalDeviceDisplayPropertiesKHR(physicalDevice.handle, &count, &cProps[0])
	if result != C.VK_SUCCESS {
		return nil, Result(result)
	}

	props := make([]DisplayPropertiesKHR, count)
	for i := range props {
		props[i] = DisplayPropertiesKHR{
			Display:     DisplayKHR{handle: cProps[i].display},
			DisplayName: C.GoString(cProps[i].displayName),
			PhysicalDimensions: Extent2D{
				Width:  uint32(cProps[i].physicalDimensions.width),
				Height: uint32(cProps[i].physicalDimensions.height),
			},
			PhysicalResolution: Extent2D{
				Width:  uint32(cProps[i].physicalResolution.width),
				Height: uint32(cProps[i].physicalResolution.height),
			},
			SupportedTransforms:  SurfaceTransformFlagsKHR(cProps[i].supportedTransforms),
			PlaneReorderPossible: cProps[i].planeReorderPossible == C.VK_TRUE,
			PersistentContent:    cProps[i].persistentContent == C.VK_TRUE,
		}
	}

	return props, nil
}

// DisplayModePropertiesKHR is a mode a DisplayKHR can be driven at.
type DisplayModePropertiesKHR struct {
	DisplayMode   DisplayModeKHR
	VisibleRegion Extent2D
	RefreshRate   uint32
}

func (physicalDevice PhysicalDevice) GetDisplayModePropertiesKHR(display DisplayKHR) ([]DisplayModePropertiesKHR, error) {
	var count C.uint32_t
	result := C.vkGetDisplayModePropertiesKHR(physicalDevice.handle, display.handle, &count, nil)
	if result != C.VK_SUCCESS {
		return nil, Result(result)
	}
	if count == 0 {
		return nil, nil
	}

	cModes := make([]C.VkDisplayModePropertiesKHR, count)
	result = C.vkGetDisplayModePropertiesKHR(physicalDevice.handle, display.handle, &count, &cModes[0])
	if result != C.VK_SUCCESS {
		return nil, Result(result)
	}

	modes := make([]DisplayModePropertiesKHR, count)
	for i := range modes {
		modes[i] = DisplayModePropertiesKHR{
			DisplayMode: DisplayModeKHR{handle: cModes[i].displayMode},
			VisibleRegion: Extent2D{
				Width:  uint32(cModes[i].parameters.visibleRegion.width),
				Height: uint32(cModes[i].parameters.visibleRegion.height),
			},
			RefreshRate: uint32(cModes[i].parameters.refreshRate),
		}
	}

	return modes, nil
}

// GetDrmDisplayEXT resolves the VkDisplayKHR that corresponds to a DRM
// connector ID on the primary node opened at drmFd (VK_EXT_acquire_drm_display).
func (physicalDevice PhysicalDevice) GetDrmDisplayEXT(drmFd int32, connectorID uint32) (DisplayKHR, error) {
	var display C.VkDisplayKHR
	result := C.vkGetDrmDisplayEXT(physicalDevice.handle, C.int32_t(drmFd), C.uint32_t(connectorID), &display)
	if result != C.VK_SUCCESS {
		return DisplayKHR{}, Result(result)
	}
	return DisplayKHR{handle: display}, nil
}

// AcquireDrmDisplayEXT takes ownership of display for presentation, given a
// DRM master file descriptor (VK_EXT_acquire_drm_display).
func (physicalDevice PhysicalDevice) AcquireDrmDisplayEXT(drmFd int32, display DisplayKHR) error {
	result := C.vkAcquireDrmDisplayEXT(physicalDevice.handle, C.int32_t(drmFd), display.handle)
	if result != C.VK_SUCCESS {
		return Result(result)
	}
	return nil
}

type DisplayPlaneAlphaFlagsKHR uint32

const (
	DISPLAY_PLANE_ALPHA_OPAQUE_BIT_KHR     DisplayPlaneAlphaFlagsKHR = C.VK_DISPLAY_PLANE_ALPHA_OPAQUE_BIT_KHR
	DISPLAY_PLANE_ALPHA_PER_PIXEL_BIT_KHR  DisplayPlaneAlphaFlagsKHR = C.VK_DISPLAY_PLANE_ALPHA_PER_PIXEL_BIT_KHR
)

type DisplayPlaneSurfaceCreateInfoKHR struct {
	DisplayMode     DisplayModeKHR
	PlaneIndex      uint32
	PlaneStackIndex uint32
	Transform       SurfaceTransformFlagsKHR
	GlobalAlpha     float32
	AlphaMode       DisplayPlaneAlphaFlagsKHR
	ImageExtent     Extent2D
}

// CreateDisplayPlaneSurfaceKHR creates a VkSurfaceKHR that presents directly
// to a display plane, used by the DRM backend instead of a windowing
// library's surface creation.
func (instance Instance) CreateDisplayPlaneSurfaceKHR(createInfo *DisplayPlaneSurfaceCreateInfoKHR) (SurfaceKHR, error) {
	cInfo := (*C.VkDisplaySurfaceCreateInfoKHR)(C.calloc(1, C.sizeof_VkDisplaySurfaceCreateInfoKHR))
	defer C.free(unsafe.Pointer(cInfo))

	cInfo.sType = C.VK_STRUCTURE_TYPE_DISPLAY_SURFACE_CREATE_INFO_KHR
	cInfo.pNext = nil
	cInfo.flags = 0
	cInfo.displayMode = createInfo.DisplayMode.handle
	cInfo.planeIndex = C.uint32_t(createInfo.PlaneIndex)
	cInfo.planeStackIndex = C.uint32_t(createInfo.PlaneStackIndex)
	cInfo.transform = C.VkSurfaceTransformFlagBitsKHR(createInfo.Transform)
	cInfo.globalAlpha = C.float(createInfo.GlobalAlpha)
	cInfo.alphaMode = C.VkDisplayPlaneAlphaFlagBitsKHR(createInfo.AlphaMode)
	cInfo.imageExtent.width = C.uint32_t(createInfo.ImageExtent.Width)
	cInfo.imageExtent.height = C.uint32_t(createInfo.ImageExtent.Height)

	var surface C.VkSurfaceKHR
	result := C.vkCreateDisplayPlaneSurfaceKHR(instance.handle, cInfo, nil, &surface)
	if result != C.VK_SUCCESS {
		return SurfaceKHR{}, Result(result)
	}

	return SurfaceKHR{handle: surface}, nil
}

// DRMProperties is VK_EXT_physical_device_drm's per-device primary/render
// node identity, used to match a physical device against a host DRM fd by
// (major, minor).
type DRMProperties struct {
	HasPrimary   bool
	HasRender    bool
	PrimaryMajor int64
	PrimaryMinor int64
	RenderMajor  int64
	RenderMinor  int64
}

func (physicalDevice PhysicalDevice) GetDRMProperties() DRMProperties {
	var drmProps C.VkPhysicalDeviceDrmPropertiesEXT
	drmProps.sType = C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_DRM_PROPERTIES_EXT
	drmProps.pNext = nil

	var props2 C.VkPhysicalDeviceProperties2
	props2.sType = C.VK_STRUCTURE_TYPE_PHYSICAL_DEVICE_PROPERTIES_2
	props2.pNext = unsafe.Pointer(&drmProps)

	C.vkGetPhysicalDeviceProperties2(physicalDevice.handle, &props2)

	return DRMProperties{
		HasPrimary:   drmProps.hasPrimary == C.VK_TRUE,
		HasRender:    drmProps.hasRender == C.VK_TRUE,
		PrimaryMajor: int64(drmProps.primaryMajor),
		PrimaryMinor: int64(drmProps.primaryMinor),
		RenderMajor:  int64(drmProps.renderMajor),
		RenderMinor:  int64(drmProps.renderMinor),
	}
}
