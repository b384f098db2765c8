// renderpass.go
package vk

/*
#include <vulkan/vulkan.h>
#include <stdlib.h>
*/
import "C"
import "unsafe"

type RenderPass struct {
	handle C.VkRenderPass
}

type Framebuffer struct {
	handle C.VkFramebuffer
}

// AttachmentLoadOp and AttachmentStoreOp are declared in command.go.

type AttachmentDescription struct {
	Format         Format
	Samples        SampleCountFlags
	LoadOp         AttachmentLoadOp
	StoreOp        AttachmentStoreOp
	StencilLoadOp  AttachmentLoadOp
	StencilStoreOp AttachmentStoreOp
	InitialLayout  ImageLayout
	FinalLayout    ImageLayout
}

type AttachmentReference struct {
	Attachment uint32
	Layout     ImageLayout
}

type SubpassDescription struct {
	PipelineBindPoint    PipelineBindPoint
	ColorAttachments     []AttachmentReference
	DepthStencilAttached *AttachmentReference
}

type SubpassDependency struct {
	SrcSubpass      uint32
	DstSubpass      uint32
	SrcStageMask    PipelineStageFlags
	DstStageMask    PipelineStageFlags
	SrcAccessMask   AccessFlags
	DstAccessMask   AccessFlags
	DependencyFlags uint32
}

const SUBPASS_EXTERNAL uint32 = 0xFFFFFFFF

type RenderPassCreateInfo struct {
	Attachments []AttachmentDescription
	Subpasses   []SubpassDescription
	Dependencies []SubpassDependency
}

type renderPassCreateData struct {
	cInfo             *C.VkRenderPassCreateInfo
	cAttachments      []C.VkAttachmentDescription
	cSubpasses        []C.VkSubpassDescription
	cColorRefs        [][]C.VkAttachmentReference
	cDependencies     []C.VkSubpassDependency
}

func (info *RenderPassCreateInfo) vulkanize() *renderPassCreateData {
	data := &renderPassCreateData{}

	data.cInfo = (*C.VkRenderPassCreateInfo)(C.calloc(1, C.sizeof_VkRenderPassCreateInfo))
	data.cInfo.sType = C.VK_STRUCTURE_TYPE_RENDER_PASS_CREATE_INFO
	data.cInfo.pNext = nil
	data.cInfo.flags = 0

	if len(info.Attachments) > 0 {
		data.cAttachments = make([]C.VkAttachmentDescription, len(info.Attachments))
		for i, att := range info.Attachments {
			data.cAttachments[i].flags = 0
			data.cAttachments[i].format = C.VkFormat(att.Format)
			data.cAttachments[i].samples = C.VkSampleCountFlagBits(att.Samples)
			data.cAttachments[i].loadOp = C.VkAttachmentLoadOp(att.LoadOp)
			data.cAttachments[i].storeOp = C.VkAttachmentStoreOp(att.StoreOp)
			data.cAttachments[i].stencilLoadOp = C.VkAttachmentLoadOp(att.StencilLoadOp)
			data.cAttachments[i].stencilStoreOp = C.VkAttachmentStoreOp(att.StencilStoreOp)
			data.cAttachments[i].initialLayout = C.VkImageLayout(att.InitialLayout)
			data.cAttachments[i].finalLayout = C.VkImageLayout(att.FinalLayout)
		}
		data.cInfo.attachmentCount = C.uint32_t(len(data.cAttachments))
		data.cInfo.pAttachments = &data.cAttachments[0]
	}

	if len(info.Subpasses) > 0 {
		data.cSubpasses = make([]C.VkSubpassDescription, len(info.Subpasses))
		data.cColorRefs = make([][]C.VkAttachmentReference, len(info.Subpasses))
		for i, sp := range info.Subpasses {
			data.cSubpasses[i].flags = 0
			data.cSubpasses[i].pipelineBindPoint = C.VkPipelineBindPoint(sp.PipelineBindPoint)

			if len(sp.ColorAttachments) > 0 {
				refs := make([]C.VkAttachmentReference, len(sp.ColorAttachments))
				for j, ref := range sp.ColorAttachments {
					refs[j].attachment = C.uint32_t(ref.Attachment)
					refs[j].layout = C.VkImageLayout(ref.Layout)
				}
				data.cColorRefs[i] = refs
				data.cSubpasses[i].colorAttachmentCount = C.uint32_t(len(refs))
				data.cSubpasses[i].pColorAttachments = &data.cColorRefs[i][0]
			}
		}
		data.cInfo.subpassCount = C.uint32_t(len(data.cSubpasses))
		data.cInfo.pSubpasses = &data.cSubpasses[0]
	}

	if len(info.Dependencies) > 0 {
		data.cDependencies = make([]C.VkSubpassDependency, len(info.Dependencies))
		for i, dep := range info.Dependencies {
			data.cDependencies[i].srcSubpass = C.uint32_t(dep.SrcSubpass)
			data.cDependencies[i].dstSubpass = C.uint32_t(dep.DstSubpass)
			data.cDependencies[i].srcStageMask = C.VkPipelineStageFlags(dep.SrcStageMask)
			data.cDependencies[i].dstStageMask = C.VkPipelineStageFlags(dep.DstStageMask)
			data.cDependencies[i].srcAccessMask = C.VkAccessFlags(dep.SrcAccessMask)
			data.cDependencies[i].dstAccessMask = C.VkAccessFlags(dep.DstAccessMask)
			data.cDependencies[i].dependencyFlags = C.VkDependencyFlags(dep.DependencyFlags)
		}
		data.cInfo.dependencyCount = C.uint32_t(len(data.cDependencies))
		data.cInfo.pDependencies = &data.cDependencies[0]
	}

	return data
}

func (data *renderPassCreateData) free() {
	if data.cInfo != nil {
		C.free(unsafe.Pointer(data.cInfo))
	}
}

func (device Device) CreateRenderPass(createInfo *RenderPassCreateInfo) (RenderPass, error) {
	data := createInfo.vulkanize()
	defer data.free()

	var renderPass C.VkRenderPass
	result := C.vkCreateRenderPass(device.handle, data.cInfo, nil, &renderPass)

	if result != C.VK_SUCCESS {
		return RenderPass{}, Result(result)
	}

	return RenderPass{handle: renderPass}, nil
}

func (device Device) DestroyRenderPass(renderPass RenderPass) {
	C.vkDestroyRenderPass(device.handle, renderPass.handle, nil)
}

type FramebufferCreateInfo struct {
	RenderPass  RenderPass
	Attachments []ImageView
	Width       uint32
	Height      uint32
	Layers      uint32
}

func (device Device) CreateFramebuffer(createInfo *FramebufferCreateInfo) (Framebuffer, error) {
	cInfo := (*C.VkFramebufferCreateInfo)(C.calloc(1, C.sizeof_VkFramebufferCreateInfo))
	defer C.free(unsafe.Pointer(cInfo))

	cInfo.sType = C.VK_STRUCTURE_TYPE_FRAMEBUFFER_CREATE_INFO
	cInfo.pNext = nil
	cInfo.flags = 0
	cInfo.renderPass = createInfo.RenderPass.handle
	cInfo.width = C.uint32_t(createInfo.Width)
	cInfo.height = C.uint32_t(createInfo.Height)
	cInfo.layers = C.uint32_t(createInfo.Layers)

	cAttachments := make([]C.VkImageView, len(createInfo.Attachments))
	for i, view := range createInfo.Attachments {
		cAttachments[i] = view.handle
	}
	if len(cAttachments) > 0 {
		cInfo.attachmentCount = C.uint32_t(len(cAttachments))
		cInfo.pAttachments = &cAttachments[0]
	}

	var framebuffer C.VkFramebuffer
	result := C.vkCreateFramebuffer(device.handle, cInfo, nil, &framebuffer)

	if result != C.VK_SUCCESS {
		return Framebuffer{}, Result(result)
	}

	return Framebuffer{handle: framebuffer}, nil
}

func (device Device) DestroyFramebuffer(framebuffer Framebuffer) {
	C.vkDestroyFramebuffer(device.handle, framebuffer.handle, nil)
}
