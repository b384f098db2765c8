package display

import (
	"fmt"

	"github.com/Emimendoza/mephland/internal/gpu"
	"github.com/Emimendoza/mephland/vk"
)

// imageResources holds everything owned per swapchain image: the view and
// framebuffer built against it, and the graphics/background command
// buffers recorded against it every frame.
type imageResources struct {
	image         vk.Image
	view          vk.ImageView
	framebuffer   vk.Framebuffer
	graphicsCmd   vk.CommandBuffer
	backgroundCmd vk.CommandBuffer
}

// built is everything buildPipelineAndSwapchain produces, bundled so the
// render loop can swap it in atomically under extentMu.
type built struct {
	swapchain      vk.SwapchainKHR
	format         vk.Format
	extent         vk.Extent2D
	renderPass     vk.RenderPass
	pipelineLayout vk.PipelineLayout
	pipeline       vk.Pipeline
	images         []imageResources
}

// buildSwapchain implements §4.3 step 1: requested image count is
// max(minImageCount+1, current), clamped to the reported maximum; present
// mode prefers Mailbox; format takes index 0; the old swapchain, if any, is
// destroyed immediately after the new one exists.
//
// A zero-width or zero-height current extent (surface minimized, or a DRM
// mode with no visible region) is reported back with a zero-value
// SwapchainKHR and a nil error instead of attempting VkCreateSwapchainKHR,
// per §8's boundary behavior: the caller must divert to SwapOutOfDate
// rather than building against a degenerate extent.
func buildSwapchain(physical vk.PhysicalDevice, handle vk.Device, surface vk.SurfaceKHR, oldSwapchain vk.SwapchainKHR, currentImageCount uint32) (vk.SwapchainKHR, vk.Format, vk.Extent2D, error) {
	support, err := physical.QuerySwapchainSupport(surface)
	if err != nil {
		return vk.SwapchainKHR{}, 0, vk.Extent2D{}, fmt.Errorf("query swapchain support: %w", err)
	}
	if len(support.Formats) == 0 {
		return vk.SwapchainKHR{}, 0, vk.Extent2D{}, fmt.Errorf("no surface formats available")
	}
	if len(support.PresentModes) == 0 {
		return vk.SwapchainKHR{}, 0, vk.Extent2D{}, fmt.Errorf("no present modes available")
	}

	surfaceFormat := vk.ChooseSurfaceFormat(support.Formats)
	presentMode := vk.ChoosePresentMode(support.PresentModes)
	extent := support.Capabilities.CurrentExtent
	imageCount := vk.ChooseImageCount(support.Capabilities, currentImageCount)

	if extent.Width == 0 || extent.Height == 0 {
		if oldSwapchain != (vk.SwapchainKHR{}) {
			handle.DestroySwapchainKHR(oldSwapchain)
		}
		return vk.SwapchainKHR{}, surfaceFormat.Format, extent, nil
	}

	swapchain, err := handle.CreateSwapchainKHR(&vk.SwapchainCreateInfoKHR{
		Surface:          surface,
		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.IMAGE_USAGE_COLOR_ATTACHMENT_BIT | vk.IMAGE_USAGE_TRANSFER_DST_BIT,
		ImageSharingMode: vk.SHARING_MODE_EXCLUSIVE,
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.COMPOSITE_ALPHA_OPAQUE_BIT_KHR,
		PresentMode:      presentMode,
		Clipped:          true,
		OldSwapchain:     oldSwapchain,
	})
	if err != nil {
		return vk.SwapchainKHR{}, 0, vk.Extent2D{}, fmt.Errorf("create swapchain: %w", err)
	}

	if oldSwapchain != (vk.SwapchainKHR{}) {
		handle.DestroySwapchainKHR(oldSwapchain)
	}

	return swapchain, surfaceFormat.Format, extent, nil
}

// buildRenderPass implements §4.3 step 2.
func buildRenderPass(handle vk.Device, format vk.Format) (vk.RenderPass, error) {
	return handle.CreateRenderPass(&vk.RenderPassCreateInfo{
		Attachments: []vk.AttachmentDescription{
			{
				Format:         format,
				Samples:        vk.SAMPLE_COUNT_1_BIT,
				LoadOp:         vk.ATTACHMENT_LOAD_OP_CLEAR,
				StoreOp:        vk.ATTACHMENT_STORE_OP_STORE,
				StencilLoadOp:  vk.ATTACHMENT_LOAD_OP_DONT_CARE,
				StencilStoreOp: vk.ATTACHMENT_STORE_OP_DONT_CARE,
				InitialLayout:  vk.IMAGE_LAYOUT_UNDEFINED,
				FinalLayout:    vk.IMAGE_LAYOUT_PRESENT_SRC_KHR,
			},
		},
		Subpasses: []vk.SubpassDescription{
			{
				PipelineBindPoint: vk.PIPELINE_BIND_POINT_GRAPHICS,
				ColorAttachments: []vk.AttachmentReference{
					{Attachment: 0, Layout: vk.IMAGE_LAYOUT_COLOR_ATTACHMENT_OPTIMAL},
				},
			},
		},
		Dependencies: []vk.SubpassDependency{
			{
				SrcSubpass:    vk.SUBPASS_EXTERNAL,
				DstSubpass:    0,
				SrcStageMask:  vk.PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT,
				DstStageMask:  vk.PIPELINE_STAGE_COLOR_ATTACHMENT_OUTPUT_BIT,
				SrcAccessMask: vk.ACCESS_NONE,
				DstAccessMask: vk.ACCESS_COLOR_ATTACHMENT_WRITE_BIT,
			},
		},
	})
}

// buildPipeline implements §4.3 steps 3-4: empty pipeline layout, triangle
// list with no vertex input, dynamic viewport/scissor, clockwise front face
// with back-face culling, and alpha blending enabled.
func buildPipeline(handle vk.Device, renderPass vk.RenderPass, vertexModule, fragmentModule vk.ShaderModule) (vk.PipelineLayout, vk.Pipeline, error) {
	layout, err := handle.CreatePipelineLayout(&vk.PipelineLayoutCreateInfo{})
	if err != nil {
		return vk.PipelineLayout{}, vk.Pipeline{}, fmt.Errorf("create pipeline layout: %w", err)
	}

	pipeline, err := handle.CreateGraphicsPipeline(&vk.GraphicsPipelineCreateInfo{
		Stages: []vk.PipelineShaderStageCreateInfo{
			{Stage: vk.SHADER_STAGE_VERTEX_BIT, Module: vertexModule, Name: "main"},
			{Stage: vk.SHADER_STAGE_FRAGMENT_BIT, Module: fragmentModule, Name: "main"},
		},
		VertexInputState:   &vk.PipelineVertexInputStateCreateInfo{},
		InputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{Topology: vk.PRIMITIVE_TOPOLOGY_TRIANGLE_LIST},
		ViewportState:      &vk.PipelineViewportStateCreateInfo{},
		RasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			PolygonMode: vk.POLYGON_MODE_FILL,
			CullMode:    vk.CULL_MODE_BACK_BIT,
			FrontFace:   vk.FRONT_FACE_CLOCKWISE,
			LineWidth:   1.0,
		},
		MultisampleState: &vk.PipelineMultisampleStateCreateInfo{RasterizationSamples: vk.SAMPLE_COUNT_1_BIT},
		ColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			Attachments: []vk.PipelineColorBlendAttachmentState{
				{
					BlendEnable:         true,
					SrcColorBlendFactor: vk.BLEND_FACTOR_SRC_ALPHA,
					DstColorBlendFactor: vk.BLEND_FACTOR_ONE_MINUS_SRC_ALPHA,
					ColorBlendOp:        vk.BLEND_OP_ADD,
					SrcAlphaBlendFactor: vk.BLEND_FACTOR_ONE,
					DstAlphaBlendFactor: vk.BLEND_FACTOR_ZERO,
					AlphaBlendOp:        vk.BLEND_OP_ADD,
					ColorWriteMask:      vk.COLOR_COMPONENT_ALL,
				},
			},
		},
		DynamicState: &vk.PipelineDynamicStateCreateInfo{
			DynamicStates: []vk.DynamicState{vk.DYNAMIC_STATE_VIEWPORT, vk.DYNAMIC_STATE_SCISSOR},
		},
		Layout:     layout,
		RenderPass: renderPass,
		Subpass:    0,
	})
	if err != nil {
		handle.DestroyPipelineLayout(layout)
		return vk.PipelineLayout{}, vk.Pipeline{}, fmt.Errorf("create graphics pipeline: %w", err)
	}

	return layout, pipeline, nil
}

// buildFramebuffers implements §4.3 step 5.
func buildFramebuffers(handle vk.Device, swapchain vk.SwapchainKHR, format vk.Format, extent vk.Extent2D, renderPass vk.RenderPass) ([]imageResources, error) {
	images, err := handle.GetSwapchainImagesKHR(swapchain)
	if err != nil {
		return nil, fmt.Errorf("get swapchain images: %w", err)
	}

	resources := make([]imageResources, len(images))
	for i, image := range images {
		view, err := handle.CreateImageView(&vk.ImageViewCreateInfo{
			Image:    image,
			ViewType: vk.IMAGE_VIEW_TYPE_2D,
			Format:   format,
			Components: vk.ComponentMapping{
				R: vk.COMPONENT_SWIZZLE_IDENTITY,
				G: vk.COMPONENT_SWIZZLE_IDENTITY,
				B: vk.COMPONENT_SWIZZLE_IDENTITY,
				A: vk.COMPONENT_SWIZZLE_IDENTITY,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.IMAGE_ASPECT_COLOR_BIT,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			destroyImageResources(handle, resources[:i])
			return nil, fmt.Errorf("create image view %d: %w", i, err)
		}

		framebuffer, err := handle.CreateFramebuffer(&vk.FramebufferCreateInfo{
			RenderPass:  renderPass,
			Attachments: []vk.ImageView{view},
			Width:       extent.Width,
			Height:      extent.Height,
			Layers:      1,
		})
		if err != nil {
			handle.DestroyImageView(view)
			destroyImageResources(handle, resources[:i])
			return nil, fmt.Errorf("create framebuffer %d: %w", i, err)
		}

		resources[i] = imageResources{image: image, view: view, framebuffer: framebuffer}
	}

	return resources, nil
}

func destroyImageResources(handle vk.Device, resources []imageResources) {
	for _, r := range resources {
		if r.framebuffer != (vk.Framebuffer{}) {
			handle.DestroyFramebuffer(r.framebuffer)
		}
		if r.view != (vk.ImageView{}) {
			handle.DestroyImageView(r.view)
		}
	}
}

// allocateCommandBuffers implements §4.3 step 6: two command buffers per
// swapchain image (graphics, background), allocated up front from the
// display's existing graphics/transfer command pools.
func allocateCommandBuffers(dev *gpu.Device, graphicsPool, transferPool vk.CommandPool, resources []imageResources) error {
	for i := range resources {
		graphicsCmd, err := dev.CreateCommandBuffer(graphicsPool)
		if err != nil {
			return fmt.Errorf("allocate graphics command buffer %d: %w", i, err)
		}
		backgroundCmd, err := dev.CreateCommandBuffer(transferPool)
		if err != nil {
			return fmt.Errorf("allocate background command buffer %d: %w", i, err)
		}
		resources[i].graphicsCmd = graphicsCmd
		resources[i].backgroundCmd = backgroundCmd
	}
	return nil
}
