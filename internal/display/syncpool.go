package display

import (
	"fmt"

	"github.com/Emimendoza/mephland/vk"
)

// SyncObjs is one slot of the synchronization primitives a single in-flight
// frame needs: the semaphore the swapchain signals on acquire, the
// semaphore the background transfer pass signals, the semaphore the
// graphics submit signals, and the presented-fence VK_EXT_swapchain_
// maintenance1 waits on before the image may be reused.
type SyncObjs struct {
	imageAvailable   vk.Semaphore
	backgroundFinished vk.Semaphore
	renderFinished   vk.Semaphore
	presented        vk.Fence
}

func createSyncObjs(device vk.Device) (SyncObjs, error) {
	imageAvailable, err := device.CreateSemaphore(&vk.SemaphoreCreateInfo{})
	if err != nil {
		return SyncObjs{}, fmt.Errorf("create image-available semaphore: %w", err)
	}
	backgroundFinished, err := device.CreateSemaphore(&vk.SemaphoreCreateInfo{})
	if err != nil {
		device.DestroySemaphore(imageAvailable)
		return SyncObjs{}, fmt.Errorf("create background-finished semaphore: %w", err)
	}
	renderFinished, err := device.CreateSemaphore(&vk.SemaphoreCreateInfo{})
	if err != nil {
		device.DestroySemaphore(imageAvailable)
		device.DestroySemaphore(backgroundFinished)
		return SyncObjs{}, fmt.Errorf("create render-finished semaphore: %w", err)
	}
	// Created unsignaled: the fence is reset right before each present and
	// only ever signals when the driver has consumed that present, so a
	// drain on it really waits for the in-flight frame.
	presented, err := device.CreateFence(&vk.FenceCreateInfo{})
	if err != nil {
		device.DestroySemaphore(imageAvailable)
		device.DestroySemaphore(backgroundFinished)
		device.DestroySemaphore(renderFinished)
		return SyncObjs{}, fmt.Errorf("create presented fence: %w", err)
	}

	return SyncObjs{
		imageAvailable:     imageAvailable,
		backgroundFinished: backgroundFinished,
		renderFinished:     renderFinished,
		presented:          presented,
	}, nil
}

func (s SyncObjs) destroy(device vk.Device) {
	device.DestroySemaphore(s.imageAvailable)
	device.DestroySemaphore(s.backgroundFinished)
	device.DestroySemaphore(s.renderFinished)
	device.DestroyFence(s.presented)
}

// syncPool is the free-list/busy-map pair from the data model: at most one
// slot is associated with a given swapchain image at a time, the pool grows
// on demand and never shrinks while running, and every busy slot becomes
// reachable from the free-list again once its presented fence signals.
type syncPool struct {
	device vk.Device
	slots  []SyncObjs
	free   []int
	busy   map[uint32]int
}

func newSyncPool(device vk.Device) *syncPool {
	return &syncPool{device: device, busy: make(map[uint32]int)}
}

// acquire pops a free slot, allocating a new one if the free-list is empty.
func (p *syncPool) acquire() (int, SyncObjs, error) {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		return idx, p.slots[idx], nil
	}

	s, err := createSyncObjs(p.device)
	if err != nil {
		return 0, SyncObjs{}, err
	}
	p.slots = append(p.slots, s)
	return len(p.slots) - 1, s, nil
}

// busySlot returns the slot currently guarding imageIndex, if any.
func (p *syncPool) busySlot(imageIndex uint32) (int, SyncObjs, bool) {
	idx, ok := p.busy[imageIndex]
	if !ok {
		return 0, SyncObjs{}, false
	}
	return idx, p.slots[idx], true
}

// markBusy records that slotIdx now guards imageIndex.
func (p *syncPool) markBusy(imageIndex uint32, slotIdx int) {
	p.busy[imageIndex] = slotIdx
}

// release drops imageIndex from the busy-map and returns its slot to the
// free-list; the caller must have already waited on its presented fence.
func (p *syncPool) release(imageIndex uint32) {
	idx, ok := p.busy[imageIndex]
	if !ok {
		return
	}
	delete(p.busy, imageIndex)
	p.free = append(p.free, idx)
}

// allBusySlots returns every slot index currently in the busy-map, used by
// cleanup and rebuild to drain every outstanding presented fence.
func (p *syncPool) allBusySlots() []int {
	out := make([]int, 0, len(p.busy))
	for _, idx := range p.busy {
		out = append(out, idx)
	}
	return out
}

func (p *syncPool) destroyAll() {
	for _, s := range p.slots {
		s.destroy(p.device)
	}
	p.slots = nil
	p.free = nil
	p.busy = make(map[uint32]int)
}
