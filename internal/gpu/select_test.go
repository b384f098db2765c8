package gpu

import (
	"testing"

	"github.com/Emimendoza/mephland/vk"
)

func TestQueueFamiliesDedicatedTransfer(t *testing.T) {
	props := []vk.QueueFamilyProperties{
		{QueueFlags: vk.QUEUE_GRAPHICS_BIT | vk.QUEUE_TRANSFER_BIT | vk.QUEUE_COMPUTE_BIT},
		{QueueFlags: vk.QUEUE_TRANSFER_BIT},
	}

	graphics, transfer, ok := queueFamilies(props)
	if !ok {
		t.Fatalf("expected a valid queue family selection")
	}
	if graphics != 0 {
		t.Errorf("graphics family = %d, want 0", graphics)
	}
	if transfer != 1 {
		t.Errorf("transfer family = %d, want 1 (dedicated DMA queue)", transfer)
	}
}

func TestQueueFamiliesUnifiedHardware(t *testing.T) {
	props := []vk.QueueFamilyProperties{
		{QueueFlags: vk.QUEUE_GRAPHICS_BIT | vk.QUEUE_TRANSFER_BIT | vk.QUEUE_COMPUTE_BIT},
	}

	graphics, transfer, ok := queueFamilies(props)
	if !ok {
		t.Fatalf("expected a valid queue family selection")
	}
	if graphics != transfer {
		t.Errorf("graphics family %d != transfer family %d on unified hardware", graphics, transfer)
	}
}

func TestQueueFamiliesNoTransferCapableFamily(t *testing.T) {
	props := []vk.QueueFamilyProperties{
		{QueueFlags: vk.QUEUE_COMPUTE_BIT},
	}

	_, _, ok := queueFamilies(props)
	if ok {
		t.Fatalf("expected selection to fail when no family advertises TRANSFER")
	}
}

func TestQueueFamiliesPrefersFewestBitsForTransfer(t *testing.T) {
	props := []vk.QueueFamilyProperties{
		{QueueFlags: vk.QUEUE_GRAPHICS_BIT | vk.QUEUE_TRANSFER_BIT | vk.QUEUE_COMPUTE_BIT | vk.QUEUE_SPARSE_BINDING_BIT},
		{QueueFlags: vk.QUEUE_TRANSFER_BIT | vk.QUEUE_SPARSE_BINDING_BIT},
		{QueueFlags: vk.QUEUE_TRANSFER_BIT},
	}

	_, transfer, ok := queueFamilies(props)
	if !ok {
		t.Fatalf("expected a valid queue family selection")
	}
	if transfer != 2 {
		t.Errorf("transfer family = %d, want 2 (fewest flag bits)", transfer)
	}
}

func TestExtensionsSatisfied(t *testing.T) {
	available := []vk.ExtensionProperties{
		{ExtensionName: "VK_KHR_swapchain"},
		{ExtensionName: "VK_EXT_swapchain_maintenance1"},
	}

	if !extensionsSatisfied(available, []string{"VK_KHR_swapchain"}) {
		t.Errorf("expected VK_KHR_swapchain to be satisfied")
	}
	if extensionsSatisfied(available, []string{"VK_EXT_physical_device_drm"}) {
		t.Errorf("expected missing extension to fail")
	}
}
