package vkrender

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// Allocation is a range of a memory block handed out by the MemoryAllocator
type Allocation struct {
	Offset uint64
	Size   uint64

	block *memoryBlock
}

func (a *Allocation) String() string {
	return fmt.Sprintf("[%d %d]", a.Offset, a.Size)
}

// Memory returns the device memory the allocation lives in
func (a *Allocation) Memory() *DeviceMemory {
	if a.block == nil {
		return nil
	}
	return a.block.memory
}

// Mapped returns the host mapping of the allocation, or nil if the
// allocation is not in host visible memory
func (a *Allocation) Mapped() []byte {
	if a.block == nil || a.block.mapped == nil {
		return nil
	}
	return a.block.mapped[a.Offset : a.Offset+a.Size]
}

type IAllocator interface {
	Free(a *Allocation)
	Allocate(size uint64, align uint64) *Allocation
}

// LinearAllocator hands out ranges of a fixed size region, first fit, keeping
// allocations sorted by offset
type LinearAllocator struct {
	Size   uint64
	allocs []*Allocation
}

func makeAlignUp(a uint64, align uint64) uint64 {
	if align <= 1 {
		return a
	}
	m := a % align
	if m == 0 {
		return a
	}
	a = (a - m) + align
	return a
}

func (p *LinearAllocator) Free(fa *Allocation) {
	fi := -1
	for i, a := range p.allocs {
		if a == fa {
			fi = i
		}
	}
	if fi != -1 {
		p.allocs = append(p.allocs[:fi], p.allocs[fi+1:]...)
	}
}

func (p *LinearAllocator) Allocate(size uint64, align uint64) *Allocation {
	if len(p.allocs) == 0 {
		if size <= p.Size {
			na := &Allocation{Offset: 0, Size: size}
			p.allocs = append(p.allocs, na)
			return na
		}
		return nil
	}

	// We can insert at the head of the block
	if p.allocs[0].Offset >= size {
		na := &Allocation{Offset: 0, Size: size}
		p.allocs = append([]*Allocation{na}, p.allocs...)
		return na
	}

	for i := 0; i+1 < len(p.allocs); i++ {
		c := p.allocs[i]
		n := p.allocs[i+1]

		l := makeAlignUp(c.Offset+c.Size, align)
		h := n.Offset

		if h >= l && h-l >= size {
			na := &Allocation{Offset: l, Size: size}
			p.allocs = append(p.allocs[:i+1], append([]*Allocation{na}, p.allocs[i+1:]...)...)
			return na
		}
	}

	l := p.allocs[len(p.allocs)-1]
	nl := makeAlignUp(l.Offset+l.Size, align)
	if p.Size >= nl && p.Size-nl >= size {
		na := &Allocation{Offset: nl, Size: size}
		p.allocs = append(p.allocs, na)
		return na
	}
	return nil
}

// Used returns the number of bytes handed out
func (p *LinearAllocator) Used() uint64 {
	var used uint64
	for _, a := range p.allocs {
		used += a.Size
	}
	return used
}

func (p *LinearAllocator) Empty() bool {
	return len(p.allocs) == 0
}

func (p *LinearAllocator) String() string {
	return fmt.Sprintf("%v", p.allocs)
}

// MemoryIntent describes how memory will be used by the host
type MemoryIntent int

const (
	// MemoryDeviceLocal is memory only the device touches
	MemoryDeviceLocal MemoryIntent = iota
	// MemoryHostSequentialWrite is memory the host writes front to back and
	// the device reads, it is persistently mapped
	MemoryHostSequentialWrite
)

func (m MemoryIntent) String() string {
	switch m {
	case MemoryDeviceLocal:
		return "device-local"
	case MemoryHostSequentialWrite:
		return "host-sequential-write"
	}
	return "unknown"
}

const (
	DefaultMemoryBlockSize     = 64 << 20
	DefaultDedicatedThreshold  = 16 << 20
	hostCoherentVisibleMemFlag = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
)

type memoryBlock struct {
	memory    *DeviceMemory
	allocator *LinearAllocator
	mapped    []byte
	dedicated bool
}

// MemoryStats summarizes the memory held by a MemoryAllocator
type MemoryStats struct {
	Blocks   int
	Reserved uint64
	Used     uint64
}

// MemoryAllocator groups buffer and image allocations into large blocks of
// device memory, one set of blocks per memory type, instead of making a native
// allocation per object.
type MemoryAllocator struct {
	device             Device
	types              []MemoryType
	blockSize          uint64
	dedicatedThreshold uint64
	blocks             map[uint32][]*memoryBlock
}

// NewMemoryAllocator creates an allocator, a zero blockSize or threshold selects the default
func NewMemoryAllocator(device Device, blockSize, dedicatedThreshold uint64) *MemoryAllocator {
	if blockSize == 0 {
		blockSize = DefaultMemoryBlockSize
	}
	if dedicatedThreshold == 0 {
		dedicatedThreshold = DefaultDedicatedThreshold
	}
	return &MemoryAllocator{
		device:             device,
		types:              device.MemoryTypes(),
		blockSize:          blockSize,
		dedicatedThreshold: dedicatedThreshold,
		blocks:             make(map[uint32][]*memoryBlock),
	}
}

// FindMemoryType returns the index of a memory type allowed by typeBits that
// suits the intent
func (m *MemoryAllocator) FindMemoryType(typeBits uint32, intent MemoryIntent) (uint32, error) {
	var required, preferred vk.MemoryPropertyFlags
	switch intent {
	case MemoryHostSequentialWrite:
		required = hostCoherentVisibleMemFlag
	default:
		preferred = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	}

	fallback := -1
	for i, t := range m.types {
		if typeBits&(1<<uint(i)) == 0 || t.Flags&required != required {
			continue
		}
		if t.Flags&preferred == preferred {
			return uint32(i), nil
		}
		if fallback == -1 {
			fallback = i
		}
	}
	if fallback != -1 {
		return uint32(fallback), nil
	}
	return 0, errors.Wrapf(ErrMemoryTypeNotFound, "type bits %#x, intent %s", typeBits, intent)
}

// AllocateBuffer creates a buffer and binds it to memory suiting intent. Host
// visible buffers are persistently mapped, see Buffer.Bytes.
func (m *MemoryAllocator) AllocateBuffer(size uint64, usage vk.BufferUsageFlags, intent MemoryIntent) (*Buffer, error) {
	buffer, reqs, err := m.device.CreateBuffer(size, usage)
	if err != nil {
		return nil, errors.Wrap(err, "creating buffer")
	}

	alloc, err := m.allocate(reqs, intent)
	if err != nil {
		m.device.DestroyBuffer(buffer)
		return nil, err
	}

	if err := m.device.BindBufferMemory(buffer, alloc.block.memory, alloc.Offset); err != nil {
		m.release(alloc)
		m.device.DestroyBuffer(buffer)
		return nil, errors.Wrap(err, "binding buffer memory")
	}
	buffer.Allocation = alloc
	return buffer, nil
}

// AllocateImage creates an image described by desc and binds it to memory suiting intent
func (m *MemoryAllocator) AllocateImage(desc ImageDescriptor, intent MemoryIntent) (*Image, error) {
	img, reqs, err := m.device.CreateImage(desc)
	if err != nil {
		return nil, errors.Wrap(err, "creating image")
	}

	alloc, err := m.allocate(reqs, intent)
	if err != nil {
		m.device.DestroyImage(img)
		return nil, err
	}

	if err := m.device.BindImageMemory(img, alloc.block.memory, alloc.Offset); err != nil {
		m.release(alloc)
		m.device.DestroyImage(img)
		return nil, errors.Wrap(err, "binding image memory")
	}
	img.Allocation = alloc
	return img, nil
}

// FreeBuffer destroys the buffer and returns its memory to the allocator
func (m *MemoryAllocator) FreeBuffer(b *Buffer) {
	if b == nil {
		return
	}
	m.device.DestroyBuffer(b)
	if b.Allocation != nil {
		m.release(b.Allocation)
		b.Allocation = nil
	}
}

// FreeImage destroys the image and returns its memory to the allocator
func (m *MemoryAllocator) FreeImage(i *Image) {
	if i == nil {
		return
	}
	m.device.DestroyImage(i)
	if i.Allocation != nil {
		m.release(i.Allocation)
		i.Allocation = nil
	}
}

func (m *MemoryAllocator) allocate(reqs MemoryRequirements, intent MemoryIntent) (*Allocation, error) {
	typeIndex, err := m.FindMemoryType(reqs.TypeBits, intent)
	if err != nil {
		return nil, err
	}

	if reqs.Size >= m.dedicatedThreshold || reqs.Size > m.blockSize {
		block, err := m.newBlock(typeIndex, reqs.Size, intent, true)
		if err != nil {
			return nil, err
		}
		a := block.allocator.Allocate(reqs.Size, reqs.Alignment)
		a.block = block
		return a, nil
	}

	for _, block := range m.blocks[typeIndex] {
		if block.dedicated {
			continue
		}
		if intent == MemoryHostSequentialWrite && block.mapped == nil {
			continue
		}
		if a := block.allocator.Allocate(reqs.Size, reqs.Alignment); a != nil {
			a.block = block
			return a, nil
		}
	}

	block, err := m.newBlock(typeIndex, m.blockSize, intent, false)
	if err != nil {
		return nil, err
	}
	a := block.allocator.Allocate(reqs.Size, reqs.Alignment)
	a.block = block
	return a, nil
}

func (m *MemoryAllocator) newBlock(typeIndex uint32, size uint64, intent MemoryIntent, dedicated bool) (*memoryBlock, error) {
	mem, err := m.device.AllocateMemory(size, typeIndex)
	if err != nil {
		return nil, errors.Wrapf(err, "allocating %d bytes from memory type %d", size, typeIndex)
	}

	block := &memoryBlock{
		memory:    mem,
		allocator: &LinearAllocator{Size: size},
		dedicated: dedicated,
	}

	if m.types[typeIndex].Flags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 && intent == MemoryHostSequentialWrite {
		mapped, err := m.device.MapMemory(mem)
		if err != nil {
			m.device.FreeMemory(mem)
			return nil, errors.Wrap(err, "mapping memory block")
		}
		block.mapped = mapped
	}

	m.blocks[typeIndex] = append(m.blocks[typeIndex], block)

	Logger().WithFields(logrus.Fields{
		"type":      typeIndex,
		"size":      size,
		"dedicated": dedicated,
		"mapped":    block.mapped != nil,
	}).Debug("allocated memory block")

	return block, nil
}

func (m *MemoryAllocator) release(a *Allocation) {
	block := a.block
	if block == nil {
		return
	}
	block.allocator.Free(a)
	a.block = nil
	if !block.dedicated || !block.allocator.Empty() {
		return
	}

	// dedicated blocks go back to the device as soon as they are empty
	typeIndex := block.memory.TypeIndex
	blocks := m.blocks[typeIndex]
	for i, b := range blocks {
		if b == block {
			m.blocks[typeIndex] = append(blocks[:i], blocks[i+1:]...)
			break
		}
	}
	m.freeBlock(block)
}

func (m *MemoryAllocator) freeBlock(block *memoryBlock) {
	if block.mapped != nil {
		m.device.UnmapMemory(block.memory)
		block.mapped = nil
	}
	m.device.FreeMemory(block.memory)
}

// Stats reports the blocks held by the allocator
func (m *MemoryAllocator) Stats() MemoryStats {
	var s MemoryStats
	for _, blocks := range m.blocks {
		for _, b := range blocks {
			s.Blocks++
			s.Reserved += b.memory.Size
			s.Used += b.allocator.Used()
		}
	}
	return s
}

// Destroy releases every memory block, any buffers or images still bound to
// them must already have been destroyed
func (m *MemoryAllocator) Destroy() {
	for typeIndex, blocks := range m.blocks {
		for _, b := range blocks {
			m.freeBlock(b)
		}
		delete(m.blocks, typeIndex)
	}
}
