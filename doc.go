/*
Package vkrender is a small Vulkan renderer core for go. It draws a textured, indexed mesh
into a window surface with multisampling, a depth buffer and mipmapped textures, keeping
several frames in flight.

Components

	MemoryAllocator		groups buffer and image memory into large blocks per memory type
	PresentationChain	the swapchain, its images and views, and its recreation
	ResourceManager		owns buffers, attachments, command buffers and synchronization objects,
				records layout transitions and performs staged uploads
	TextureUploader		uploads decoded images into sampled, mipmapped textures
	FrameScheduler		waits, acquires, records, submits and presents one frame per call

Everything talks to Vulkan through the Device and Surface interfaces. VulkanDevice and
VulkanSurface implement them on github.com/vulkan-go/vulkan, native handles are exposed in the
fields prefixed with 'VK' so applications are not limited by what this package wraps.

Frames and images

There are F frames in flight and M presentable images, F may not exceed M. Each frame slot
owns a fence, a command buffer and a uniform buffer. Acquisition semaphores rotate by their
own index modulo M, render finished semaphores are indexed by the acquired image. A typical
setup looks like:

	chain := vkrender.NewPresentationChain(device, surface, options.ChainOptions(window.GetFramebufferSize))
	chain.Create()
	resources, _ := vkrender.NewResourceManager(device, queues, options)
	resources.Prepare(chain, model)
	scheduler, _ := vkrender.NewFrameScheduler(resources, chain, model, pipeline, sets, nil)
	for !window.ShouldClose() {
		glfw.PollEvents()
		scheduler.DrawFrame()
	}

Image layouts

Images track the layout of each mip level. Transition looks up the stages and access masks for
a layout pair in a fixed table, a BarrierOverride replaces individual fields, and pairs
missing from the table are only accepted with every field overridden.

The package logs through logrus and is silent unless SetLogger is called.
*/
package vkrender
