package display

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Emimendoza/mephland/vk"
)

const (
	stopPumpInterval = 200 * time.Millisecond
	stopPumpAttempts = 10

	// zeroExtentRetryInterval paces rebuild's retry loop while the surface
	// reports a zero-width or zero-height extent, so a minimized window or
	// disconnected mode doesn't spin the worker goroutine.
	zeroExtentRetryInterval = 200 * time.Millisecond
)

// workerMain is the entire lifetime of a display's render goroutine,
// unchanged from the algorithm in §4.4: build once, render until the state
// machine says stop, drain, join.
func (d *Display) workerMain() {
	if err := d.buildEverything(); err != nil {
		d.log.Error("display build failed", slog.String("display", d.identity.Name), slog.String("err", err.Error()))
		d.setState(StateError)
	} else {
		d.setState(StateIdle)
		for d.step() {
		}
	}

	d.log.Info("display worker stopping",
		slog.String("display", d.identity.Name),
		slog.Uint64("frames_rendered", d.framesRendered.Load()),
	)
	d.cleanup()
	d.state.waitFor(StateStop)
	d.setState(StateStopped)
	close(d.done)
}

func (d *Display) setState(next State) {
	d.state.set(next)
}

// step reads the current state and dispatches exactly one unit of work,
// returning false when the worker loop should exit.
func (d *Display) step() bool {
	switch d.State() {
	case StateIdle:
		d.renderOnce()
		return true
	case StateSwapOutOfDate:
		d.rebuild()
		return true
	case StateError, StateStop:
		return false
	default:
		d.setState(StateError)
		return false
	}
}

func (d *Display) buildEverything() error {
	graphicsPool, err := d.device.CreateCommandPool(d.device.GraphicsFamily())
	if err != nil {
		return err
	}
	d.graphicsPool = graphicsPool

	if d.device.TransferFamily() == d.device.GraphicsFamily() {
		d.transferPool = graphicsPool
	} else {
		transferPool, err := d.device.CreateCommandPool(d.device.TransferFamily())
		if err != nil {
			return err
		}
		d.transferPool = transferPool
	}

	if err := d.surface.CreateSurface(); err != nil {
		return err
	}

	if err := d.buildPipelineAndSwapchain(0); err != nil {
		return err
	}

	fence, err := d.device.Handle().CreateFence(&vk.FenceCreateInfo{Flags: vk.FENCE_CREATE_SIGNALED_BIT})
	if err != nil {
		return err
	}
	d.renderFinishedFence = fence
	d.p = newSyncPool(d.device.Handle())

	d.notifyExtent()
	return nil
}

// buildPipelineAndSwapchain runs the full §4.3 sequence; currentImageCount
// is 0 on the very first build and the prior image count on a rebuild.
func (d *Display) buildPipelineAndSwapchain(currentImageCount uint32) error {
	handle := d.device.Handle()

	swapchain, format, extent, err := buildSwapchain(d.device.PhysicalDevice(), handle, d.surface.Surface(), d.b.swapchain, currentImageCount)
	if err != nil {
		return err
	}

	// Zero extent: §8's boundary behavior requires diverting to
	// SwapOutOfDate instead of submitting, so there is nothing further to
	// build until the next rebuild reports a usable extent.
	if swapchain == (vk.SwapchainKHR{}) {
		d.extentMu.Lock()
		d.b = built{extent: extent}
		d.extentMu.Unlock()
		return nil
	}

	renderPass, err := buildRenderPass(handle, format)
	if err != nil {
		handle.DestroySwapchainKHR(swapchain)
		return err
	}

	layout, pipeline, err := buildPipeline(handle, renderPass, d.device.VertexShaderModule(), d.device.FragmentShaderModule())
	if err != nil {
		handle.DestroyRenderPass(renderPass)
		handle.DestroySwapchainKHR(swapchain)
		return err
	}

	resources, err := buildFramebuffers(handle, swapchain, format, extent, renderPass)
	if err != nil {
		handle.DestroyPipeline(pipeline)
		handle.DestroyPipelineLayout(layout)
		handle.DestroyRenderPass(renderPass)
		handle.DestroySwapchainKHR(swapchain)
		return err
	}

	if err := allocateCommandBuffers(d.device, d.graphicsPool, d.transferPool, resources); err != nil {
		destroyImageResources(handle, resources)
		handle.DestroyPipeline(pipeline)
		handle.DestroyPipelineLayout(layout)
		handle.DestroyRenderPass(renderPass)
		handle.DestroySwapchainKHR(swapchain)
		return err
	}

	d.extentMu.Lock()
	d.b = built{
		swapchain:      swapchain,
		format:         format,
		extent:         extent,
		renderPass:     renderPass,
		pipelineLayout: layout,
		pipeline:       pipeline,
		images:         resources,
	}
	d.extentMu.Unlock()

	return nil
}

func (d *Display) notifyExtent() {
	d.extentMu.Lock()
	output := d.output
	extent := d.b.extent
	d.extentMu.Unlock()

	if output != nil {
		output.UpdateExtent(extent)
	}
}

// waitSlotDrain waits on a slot's presented fence, per §7 error taxonomy
// item 5: a fence that has not signalled after stopPumpAttempts waits of
// stopPumpInterval each is a hang, not a transient delay, and drives the
// display into Error so the stop/rebuild/cleanup path cannot hang forever.
// Each timed-out wait pulses the global trigger so peer displays blocked in
// WaitDeadline are not held up behind this one.
func (d *Display) waitSlotDrain(s SyncObjs) error {
	for attempt := 0; attempt < stopPumpAttempts; attempt++ {
		err := d.device.Handle().WaitForFences([]vk.Fence{s.presented}, true, uint64(stopPumpInterval))
		if err == nil {
			return nil
		}
		d.trigger.Pulse()
	}
	d.setState(StateError)
	return fmt.Errorf("presented fence did not signal after %d waits", stopPumpAttempts)
}

// renderOnce implements §4.4's per-frame algorithm.
func (d *Display) renderOnce() {
	d.extentMu.Lock()
	extent := d.b.extent
	d.extentMu.Unlock()
	if extent.Width == 0 || extent.Height == 0 {
		d.setState(StateSwapOutOfDate)
		return
	}

	slotIdx, syncObjs, err := d.p.acquire()
	if err != nil {
		d.log.Error("acquire sync slot failed", slog.String("err", err.Error()))
		d.setState(StateError)
		return
	}

	// Classify on result first: AcquireNextImageKHR returns a non-nil err
	// for every result other than Success/Suboptimal, so a check of the
	// form "err == nil && result == OUT_OF_DATE" can never be true.
	imageIndex, result, err := d.device.Handle().AcquireNextImageKHR(d.b.swapchain, math.MaxUint64, syncObjs.imageAvailable, vk.Fence{})
	switch {
	case result == vk.OUT_OF_DATE:
		d.p.free = append(d.p.free, slotIdx)
		d.setState(StateSwapOutOfDate)
		return
	case err != nil:
		d.p.free = append(d.p.free, slotIdx)
		d.log.Error("acquire next image failed", slog.String("err", err.Error()))
		d.setState(StateError)
		return
	}
	if _, prevSlot, ok := d.p.busySlot(imageIndex); ok {
		if err := d.waitSlotDrain(prevSlot); err != nil {
			d.log.Error("drain busy slot failed", slog.String("err", err.Error()))
			return
		}
		d.p.release(imageIndex)
	}

	if result == vk.SUBOPTIMAL {
		d.setState(StateSwapOutOfDate)
		if err := d.device.Handle().ReleaseSwapchainImagesEXT(d.b.swapchain, []uint32{imageIndex}); err != nil {
			d.log.Error("release suboptimal swapchain image failed", slog.String("err", err.Error()))
		}
		d.p.free = append(d.p.free, slotIdx)
		return
	}

	if err := d.device.Handle().WaitForFences([]vk.Fence{d.renderFinishedFence}, true, math.MaxUint64); err != nil {
		d.log.Error("wait render-finished fence failed", slog.String("err", err.Error()))
		d.setState(StateError)
		return
	}
	if d.lastWasDemand {
		d.trigger.MarkReady()
	}

	deadline := time.Now().Add(d.maxTimeBetweenFrames)
	d.lastWasDemand = d.trigger.WaitDeadline(deadline)

	if err := d.device.Handle().ResetFences([]vk.Fence{d.renderFinishedFence}); err != nil {
		d.log.Error("reset render-finished fence failed", slog.String("err", err.Error()))
		d.setState(StateError)
		return
	}

	img := d.b.images[imageIndex]

	if err := d.recordBackground(img); err != nil {
		d.log.Error("record background pass failed", slog.String("err", err.Error()))
		d.setState(StateError)
		return
	}
	if err := d.device.Submit(d.device.TransferFamily(), []vk.SubmitInfo{
		{CommandBuffers: []vk.CommandBuffer{img.backgroundCmd}, SignalSemaphores: []vk.Semaphore{syncObjs.backgroundFinished}},
	}, vk.Fence{}); err != nil {
		d.log.Error("submit background pass failed", slog.String("err", err.Error()))
		d.setState(StateError)
		return
	}

	if err := d.recordDraw(img); err != nil {
		d.log.Error("record draw failed", slog.String("err", err.Error()))
		d.setState(StateError)
		return
	}
	if err := d.device.Submit(d.device.GraphicsFamily(), []vk.SubmitInfo{
		{
			WaitSemaphores:   []vk.Semaphore{syncObjs.imageAvailable, syncObjs.backgroundFinished},
			WaitDstStageMask: []vk.PipelineStageFlags{vk.PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT, vk.PIPELINE_STAGE_TRANSFER_BIT},
			CommandBuffers:   []vk.CommandBuffer{img.graphicsCmd},
			SignalSemaphores: []vk.Semaphore{syncObjs.renderFinished},
		},
	}, d.renderFinishedFence); err != nil {
		d.log.Error("submit draw failed", slog.String("err", err.Error()))
		d.setState(StateError)
		return
	}

	// The presented fence must be unsignaled when handed to the driver;
	// reset it here, tied to this present, so draining a busy slot waits on
	// this frame and not a stale signal from a prior cycle.
	if err := d.device.Handle().ResetFences([]vk.Fence{syncObjs.presented}); err != nil {
		d.log.Error("reset presented fence failed", slog.String("err", err.Error()))
		d.setState(StateError)
		return
	}

	presentResult, err := d.device.Present(d.device.GraphicsFamily(), &vk.PresentInfoKHR{
		WaitSemaphores: []vk.Semaphore{syncObjs.renderFinished},
		Swapchains:     []vk.SwapchainKHR{d.b.swapchain},
		ImageIndices:   []uint32{imageIndex},
		PresentFence:   syncObjs.presented,
	})
	// Classify on presentResult first: PresentKHR, like AcquireNextImageKHR,
	// returns a non-nil err for every result other than Success/Suboptimal,
	// so "err == nil && presentResult == OUT_OF_DATE" can never be true.
	switch presentResult {
	case vk.SUCCESS:
		d.p.markBusy(imageIndex, slotIdx)
		d.framesRendered.Add(1)
	case vk.SUBOPTIMAL:
		d.setState(StateSwapOutOfDate)
		d.p.markBusy(imageIndex, slotIdx)
		d.framesRendered.Add(1)
	case vk.OUT_OF_DATE:
		d.setState(StateSwapOutOfDate)
		if err := d.device.Handle().WaitForFences([]vk.Fence{d.renderFinishedFence}, true, math.MaxUint64); err != nil {
			d.log.Error("wait render-finished fence after OutOfDate present failed", slog.String("err", err.Error()))
		}
		if err := d.device.Handle().ReleaseSwapchainImagesEXT(d.b.swapchain, []uint32{imageIndex}); err != nil {
			d.log.Error("release out-of-date swapchain image failed", slog.String("err", err.Error()))
		}
		d.p.free = append(d.p.free, slotIdx)
	default:
		d.log.Error("present failed", slog.String("err", err.Error()))
		d.p.free = append(d.p.free, slotIdx)
		d.setState(StateError)
	}
}

func (d *Display) recordBackground(img imageResources) error {
	if err := img.backgroundCmd.Reset(0); err != nil {
		return err
	}
	if err := img.backgroundCmd.Begin(&vk.CommandBufferBeginInfo{Flags: vk.COMMAND_BUFFER_USAGE_ONE_TIME_SUBMIT_BIT}); err != nil {
		return err
	}

	swapImage := img.image

	img.backgroundCmd.PipelineBarrier(
		vk.PIPELINE_STAGE_TOP_OF_PIPE_BIT, vk.PIPELINE_STAGE_TRANSFER_BIT, 0,
		[]vk.ImageMemoryBarrier{{
			SrcAccessMask:       vk.ACCESS_NONE,
			DstAccessMask:       vk.ACCESS_TRANSFER_WRITE_BIT,
			OldLayout:           vk.IMAGE_LAYOUT_UNDEFINED,
			NewLayout:           vk.IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL,
			SrcQueueFamilyIndex: vk.QUEUE_FAMILY_IGNORED,
			DstQueueFamilyIndex: vk.QUEUE_FAMILY_IGNORED,
			Image:               swapImage,
			SubresourceRange:    vk.ImageSubresourceRange{AspectMask: vk.IMAGE_ASPECT_COLOR_BIT, LevelCount: 1, LayerCount: 1},
		}},
	)

	img.backgroundCmd.CmdClearColorImage(swapImage, vk.IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL, &vk.ClearColorValue{Float32: [4]float32{0, 0, 0, 1}}, []vk.ImageSubresourceRange{
		{AspectMask: vk.IMAGE_ASPECT_COLOR_BIT, LevelCount: 1, LayerCount: 1},
	})

	img.backgroundCmd.PipelineBarrier(
		vk.PIPELINE_STAGE_TRANSFER_BIT, vk.PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT, 0,
		[]vk.ImageMemoryBarrier{{
			SrcAccessMask:       vk.ACCESS_TRANSFER_WRITE_BIT,
			DstAccessMask:       vk.ACCESS_COLOR_ATTACHMENT_WRITE_BIT,
			OldLayout:           vk.IMAGE_LAYOUT_TRANSFER_DST_OPTIMAL,
			NewLayout:           vk.IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL,
			SrcQueueFamilyIndex: vk.QUEUE_FAMILY_IGNORED,
			DstQueueFamilyIndex: vk.QUEUE_FAMILY_IGNORED,
			Image:               swapImage,
			SubresourceRange:    vk.ImageSubresourceRange{AspectMask: vk.IMAGE_ASPECT_COLOR_BIT, LevelCount: 1, LayerCount: 1},
		}},
	)

	return img.backgroundCmd.End()
}

func (d *Display) recordDraw(img imageResources) error {
	if err := img.graphicsCmd.Reset(0); err != nil {
		return err
	}
	if err := img.graphicsCmd.Begin(&vk.CommandBufferBeginInfo{Flags: vk.COMMAND_BUFFER_USAGE_ONE_TIME_SUBMIT_BIT}); err != nil {
		return err
	}

	img.graphicsCmd.CmdBeginRenderPass(&vk.RenderPassBeginInfo{
		RenderPass:  d.b.renderPass,
		Framebuffer: img.framebuffer,
		RenderArea:  vk.Rect2D{Extent: d.b.extent},
		ClearValues: []vk.ClearValue{{Color: vk.ClearColorValue{Float32: [4]float32{0, 0, 0, 1}}}},
	})

	img.graphicsCmd.BindPipeline(vk.PIPELINE_BIND_POINT_GRAPHICS, d.b.pipeline)
	img.graphicsCmd.SetViewport(0, []vk.Viewport{{
		Width: float32(d.b.extent.Width), Height: float32(d.b.extent.Height), MaxDepth: 1,
	}})
	img.graphicsCmd.SetScissor(0, []vk.Rect2D{{Extent: d.b.extent}})
	img.graphicsCmd.Draw(3, 1, 0, 0)

	img.graphicsCmd.CmdEndRenderPass()
	return img.graphicsCmd.End()
}

// rebuild implements §4.4's rebuild-on-SwapOutOfDate sequence.
func (d *Display) rebuild() {
	for _, idx := range d.p.allBusySlots() {
		if err := d.waitSlotDrain(d.p.slots[idx]); err != nil {
			d.log.Error("rebuild: slot drain hung", slog.String("err", err.Error()))
			return
		}
	}
	for imgIdx := range d.p.busy {
		d.p.release(imgIdx)
	}

	currentImageCount := uint32(len(d.b.images))

	handle := d.device.Handle()
	oldPipeline, oldLayout, oldRenderPass := d.b.pipeline, d.b.pipelineLayout, d.b.renderPass
	oldImages := d.b.images

	if err := d.buildPipelineAndSwapchain(currentImageCount); err != nil {
		d.log.Error("rebuild failed", slog.String("err", err.Error()))
		d.setState(StateError)
		return
	}

	for _, r := range oldImages {
		handle.FreeCommandBuffers(d.graphicsPool, []vk.CommandBuffer{r.graphicsCmd})
		handle.FreeCommandBuffers(d.transferPool, []vk.CommandBuffer{r.backgroundCmd})
	}
	destroyImageResources(handle, oldImages)
	handle.DestroyPipeline(oldPipeline)
	handle.DestroyPipelineLayout(oldLayout)
	handle.DestroyRenderPass(oldRenderPass)

	d.notifyExtent()

	d.extentMu.Lock()
	extent := d.b.extent
	d.extentMu.Unlock()
	if extent.Width == 0 || extent.Height == 0 {
		time.Sleep(zeroExtentRetryInterval)
		return
	}
	d.setState(StateIdle)
}

// cleanup tears down every resource owned by the display, waiting for all
// outstanding presented fences first.
func (d *Display) cleanup() {
	d.extentMu.Lock()
	output := d.output
	d.output = nil
	d.extentMu.Unlock()
	if output != nil {
		_ = output.Close()
	}

	if d.p != nil {
		for _, idx := range d.p.allBusySlots() {
			_ = d.waitSlotDrain(d.p.slots[idx])
		}
		d.p.destroyAll()
	}

	handle := d.device.Handle()

	if d.renderFinishedFence != (vk.Fence{}) {
		handle.DestroyFence(d.renderFinishedFence)
	}

	destroyImageResources(handle, d.b.images)
	if d.b.pipeline != (vk.Pipeline{}) {
		handle.DestroyPipeline(d.b.pipeline)
	}
	if d.b.pipelineLayout != (vk.PipelineLayout{}) {
		handle.DestroyPipelineLayout(d.b.pipelineLayout)
	}
	if d.b.renderPass != (vk.RenderPass{}) {
		handle.DestroyRenderPass(d.b.renderPass)
	}
	if d.b.swapchain != (vk.SwapchainKHR{}) {
		handle.DestroySwapchainKHR(d.b.swapchain)
	}

	if d.transferPool != d.graphicsPool && d.transferPool != (vk.CommandPool{}) {
		handle.DestroyCommandPool(d.transferPool)
	}
	if d.graphicsPool != (vk.CommandPool{}) {
		handle.DestroyCommandPool(d.graphicsPool)
	}

	if err := d.surface.DeleteSurface(); err != nil {
		d.log.Error("delete surface failed", slog.String("err", err.Error()))
	}
}

// Stop is idempotent: the first caller drives the state machine to Stop,
// pulses the global trigger every stopPumpInterval for up to
// stopPumpAttempts attempts while waiting for the worker to publish Stopped,
// then (pulsing no further) waits until it does, joins it, and sets Joined.
// Later callers just wait for Joined.
func (d *Display) Stop() {
	current := d.state.waitPastPreInit()
	if current >= StateStop {
		d.state.waitFor(StateJoined)
		return
	}

	d.setState(StateStop)

	for attempt := 0; attempt < stopPumpAttempts; attempt++ {
		select {
		case <-d.done:
			d.setState(StateJoined)
			return
		case <-time.After(stopPumpInterval):
			d.trigger.Pulse()
		}
	}

	<-d.done
	d.setState(StateJoined)
}
