package vkrender

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type QueueFamily struct {
	Index                   uint32
	VKQueueFamilyProperties vk.QueueFamilyProperties
	supportsPresent         bool
}

func (q *QueueFamily) has(bit vk.QueueFlagBits) bool {
	return q.VKQueueFamilyProperties.QueueFlags&vk.QueueFlags(bit) == vk.QueueFlags(bit)
}

func (q *QueueFamily) IsGraphics() bool { return q.has(vk.QueueGraphicsBit) }
func (q *QueueFamily) IsCompute() bool  { return q.has(vk.QueueComputeBit) }
func (q *QueueFamily) IsTransfer() bool { return q.has(vk.QueueTransferBit) }

func (q *QueueFamily) SupportsPresent() bool {
	return q.supportsPresent
}

func (q *QueueFamily) String() string {
	return fmt.Sprintf("{ Index: %d Graphics: %v Transfer: %v Present: %v }", q.Index, q.IsGraphics(), q.IsTransfer(), q.supportsPresent)
}

// QueueFamilies returns the device's queue families, recording for each
// whether it can present to surface
func (p *PhysicalDevice) QueueFamilies(surface vk.Surface) []*QueueFamily {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &count, nil)
	if count == 0 {
		return nil
	}
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &count, props)

	ret := make([]*QueueFamily, count)
	for i := range props {
		props[i].Deref()
		var present vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(p.VKPhysicalDevice, uint32(i), surface, &present)
		ret[i] = &QueueFamily{Index: uint32(i), VKQueueFamilyProperties: props[i], supportsPresent: present == vk.True}
	}
	return ret
}

// QueueSelection is the set of queue families the renderer submits to
type QueueSelection struct {
	Graphics uint32
	Present  uint32
	// Transfer is set when the device has a family that transfers but cannot draw
	Transfer Optional[uint32]
}

// Families returns the distinct families of the selection
func (s QueueSelection) Families() []uint32 {
	families := []uint32{s.Graphics}
	if s.Present != s.Graphics {
		families = append(families, s.Present)
	}
	if s.Transfer.HasValue() {
		families = append(families, s.Transfer.Get())
	}
	return families
}

// SelectQueueFamilies picks the families to use from families. A family that
// both draws and presents is preferred.
func SelectQueueFamilies(families []*QueueFamily) (QueueSelection, error) {
	var sel QueueSelection
	var graphics, present *QueueFamily

	for _, q := range families {
		if q.IsGraphics() && q.SupportsPresent() {
			graphics, present = q, q
			break
		}
	}
	if graphics == nil {
		for _, q := range families {
			if graphics == nil && q.IsGraphics() {
				graphics = q
			}
			if present == nil && q.SupportsPresent() {
				present = q
			}
		}
	}
	if graphics == nil {
		return sel, errors.New("no graphics capable queue family found")
	}
	if present == nil {
		return sel, errors.New("no queue family can present to the surface")
	}
	sel.Graphics = graphics.Index
	sel.Present = present.Index

	for _, q := range families {
		if q.IsTransfer() && !q.IsGraphics() {
			sel.Transfer.Set(q.Index)
			break
		}
	}
	return sel, nil
}
