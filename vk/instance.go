package vk

// #cgo LDFLAGS: -lvulkan

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>
*/
import "C"
import "unsafe"

func EnumerateInstanceVersion() (uint32, error) {
	var version C.uint32_t
	result := C.vkEnumerateInstanceVersion(&version)

	if result != C.VK_SUCCESS {
		return 0, Result(result)
	}

	return uint32(version), nil
}

// Instance wraps a VkInstance handle.
type Instance struct {
	handle C.VkInstance
}

// CreateInstance creates a new Vulkan instance from the given create info.
func CreateInstance(createInfo *InstanceCreateInfo) (Instance, error) {
	data := createInfo.vulkanize()
	defer data.free()

	var instance C.VkInstance
	result := C.vkCreateInstance(data.cInfo, nil, &instance)

	if result != C.VK_SUCCESS {
		return Instance{}, Result(result)
	}

	return Instance{handle: instance}, nil
}

// Handle returns the underlying VkInstance as an unsafe.Pointer for interop
// with windowing libraries that create a surface against a raw instance handle.
func (instance Instance) Handle() unsafe.Pointer {
	return unsafe.Pointer(instance.handle)
}

// Destroy destroys the instance and all child handles still alive beneath it
// are left in an undefined state; callers must tear down devices first.
func (instance Instance) Destroy() {
	C.vkDestroyInstance(instance.handle, nil)
}

// EnumeratePhysicalDevices returns the set of physical devices visible to this instance.
func (instance Instance) EnumeratePhysicalDevices() ([]PhysicalDevice, error) {
	var count C.uint32_t
	result := C.vkEnumeratePhysicalDevices(instance.handle, &count, nil)
	if result != C.VK_SUCCESS {
		return nil, Result(result)
	}

	if count == 0 {
		return nil, nil
	}

	cDevices := (*[1 << 20]C.VkPhysicalDevice)(C.calloc(C.size_t(count), C.sizeof_VkPhysicalDevice))
	defer C.free(unsafe.Pointer(cDevices))

	result = C.vkEnumeratePhysicalDevices(instance.handle, &count, (*C.VkPhysicalDevice)(unsafe.Pointer(cDevices)))
	if result != C.VK_SUCCESS {
		return nil, Result(result)
	}

	devices := make([]PhysicalDevice, count)
	for i := 0; i < int(count); i++ {
		devices[i] = PhysicalDevice{handle: cDevices[i]}
	}

	return devices, nil
}
