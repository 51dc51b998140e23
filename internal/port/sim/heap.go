package sim

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

const heapAlign = 8

// Heap is a first-fit allocator over a fixed address range. Free blocks are
// kept in a tree ordered by address so neighbours can be coalesced on free.
// It is only used from the trap handler and needs no locking of its own.
type Heap struct {
	base  uintptr
	size  uintptr
	free  *redblacktree.Tree  // block start -> block length
	used  map[uintptr]uintptr // allocation start -> length
	inUse uintptr
}

func NewHeap(base uintptr, size int) *Heap {
	h := &Heap{
		base: base,
		size: uintptr(size) &^ (heapAlign - 1),
		free: redblacktree.NewWith(addrCmp),
		used: make(map[uintptr]uintptr),
	}
	if h.size > 0 {
		h.free.Put(base, h.size)
	}
	return h
}

// Alloc returns the address of n bytes, or 0 when n is zero, exceeds the
// heap or no free block is large enough.
func (h *Heap) Alloc(n uintptr) uintptr {
	if n == 0 || n > h.size {
		return 0
	}
	n = (n + heapAlign - 1) &^ (heapAlign - 1)

	it := h.free.Iterator()
	for it.Next() {
		addr, length := it.Key().(uintptr), it.Value().(uintptr)
		if length < n {
			continue
		}
		h.free.Remove(addr)
		if length > n {
			h.free.Put(addr+n, length-n)
		}
		h.used[addr] = n
		h.inUse += n
		return addr
	}
	return 0
}

// Free releases an allocation. Unknown addresses are ignored and reported.
func (h *Heap) Free(addr uintptr) bool {
	n, ok := h.used[addr]
	if !ok {
		return false
	}
	delete(h.used, addr)
	h.inUse -= n

	start, length := addr, n
	if next, found := h.free.Ceiling(addr); found && next.Key.(uintptr) == addr+n {
		length += next.Value.(uintptr)
		h.free.Remove(next.Key)
	}
	if prev, found := h.free.Floor(addr); found {
		k, v := prev.Key.(uintptr), prev.Value.(uintptr)
		if k+v == addr {
			start = k
			length += v
			h.free.Remove(k)
		}
	}
	h.free.Put(start, length)
	return true
}

// InUse returns the number of allocated bytes.
func (h *Heap) InUse() uintptr { return h.inUse }

// FreeBlocks returns the number of disjoint free ranges.
func (h *Heap) FreeBlocks() int { return h.free.Size() }

// Largest returns the size of the largest free block.
func (h *Heap) Largest() uintptr {
	var largest uintptr
	it := h.free.Iterator()
	for it.Next() {
		if v := it.Value().(uintptr); v > largest {
			largest = v
		}
	}
	return largest
}

// addrCmp orders free blocks by start address.
func addrCmp(a, b any) int {
	ka, kb := a.(uintptr), b.(uintptr)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}
