package inventory

import (
	"errors"
	"sync/atomic"
)

var (
	ErrClosed  = errors.New("container closed")
	ErrNilItem = errors.New("nil item")
)

// Verdict is a hook answer for "may this item enter this container".
type Verdict int

const (
	VerdictNoOpinion Verdict = iota
	VerdictAllow
	VerdictDeny
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "allow"
	case VerdictDeny:
		return "deny"
	default:
		return "no_opinion"
	}
}

// AcceptFunc is consulted before a container's default filter. Slot is -1 when the
// caller has no target slot.
type AcceptFunc func(c *Container, it *Item, slot int) Verdict

// FilterFunc is a container's default type policy.
type FilterFunc func(def *ItemDef) bool

var nextContainerUID atomic.Uint64

// Container is a fixed-capacity, slot-ordered list of item stacks.
//
// Containers belong to the host loop goroutine and are not safe for concurrent use.
type Container struct {
	uid      uint64
	capacity int
	items    []*Item

	filter FilterFunc
	hook   AcceptFunc

	dirty  bool
	closed bool
}

type Option func(*Container)

// WithFilter sets the default type policy. Without one every item type is accepted.
func WithFilter(f FilterFunc) Option {
	return func(c *Container) { c.filter = f }
}

// WithAcceptHook sets the hook consulted before the default filter.
func WithAcceptHook(h AcceptFunc) Option {
	return func(c *Container) { c.hook = h }
}

func NewContainer(capacity int, opts ...Option) *Container {
	if capacity < 0 {
		capacity = 0
	}
	c := &Container{
		uid:      nextContainerUID.Add(1),
		capacity: capacity,
		items:    make([]*Item, 0, capacity),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Container) UID() uint64   { return c.uid }
func (c *Container) Capacity() int { return c.capacity }
func (c *Container) Len() int      { return len(c.items) }
func (c *Container) Closed() bool  { return c.closed }

func (c *Container) SetAcceptHook(h AcceptFunc) { c.hook = h }

// At returns the stack at slot i, or nil when i is out of range.
func (c *Container) At(i int) *Item {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

// Items returns a copy of the slot list.
func (c *Container) Items() []*Item {
	out := make([]*Item, len(c.items))
	copy(out, c.items)
	return out
}

// Total returns the summed quantity of every stack of the given item def id.
func (c *Container) Total(defID string) int {
	n := 0
	for _, it := range c.items {
		if it != nil && it.Def != nil && it.Def.ID == defID {
			n += it.Amount
		}
	}
	return n
}

func (c *Container) Contains(it *Item) bool {
	for _, cur := range c.items {
		if cur == it {
			return true
		}
	}
	return false
}

// CanAccept runs the accept hook, then the default filter.
func (c *Container) CanAccept(it *Item, slot int) bool {
	if it == nil || it.Def == nil {
		return false
	}
	if c.hook != nil {
		switch c.hook(c, it, slot) {
		case VerdictAllow:
			return true
		case VerdictDeny:
			return false
		}
	}
	if c.filter == nil {
		return true
	}
	return c.filter(it.Def)
}

// Insert is the normal insertion path: it enforces capacity and type policy and
// appends the stack to the next slot. It reports whether the stack was accepted.
func (c *Container) Insert(it *Item) bool {
	if c.closed || it == nil {
		return false
	}
	if len(c.items) >= c.capacity {
		return false
	}
	if !c.CanAccept(it, len(c.items)) {
		return false
	}
	if it.parent != nil && it.parent != c {
		it.parent.Remove(it)
	}
	it.parent = c
	if !c.Contains(it) {
		c.items = append(c.items, it)
	}
	it.MarkDirty()
	c.MarkDirty()
	return true
}

// ForceInsert assigns ownership and appends the stack without consulting the type
// policy or capacity.
func (c *Container) ForceInsert(it *Item) error {
	if it == nil {
		return ErrNilItem
	}
	if c.closed {
		return ErrClosed
	}
	it.parent = c
	it.MarkDirty()
	if !c.Contains(it) {
		c.items = append(c.items, it)
	}
	c.MarkDirty()
	return nil
}

// Remove detaches the stack from this container.
func (c *Container) Remove(it *Item) bool {
	for i, cur := range c.items {
		if cur != it {
			continue
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
		if it.parent == c {
			it.parent = nil
		}
		c.MarkDirty()
		return true
	}
	return false
}

// Take removes up to n units of defID, emptying stacks in slot order.
// It returns how many units were removed.
func (c *Container) Take(defID string, n int) int {
	if n <= 0 {
		return 0
	}
	taken := 0
	for _, it := range c.Items() {
		if taken >= n {
			break
		}
		if it == nil || it.Def == nil || it.Def.ID != defID {
			continue
		}
		k := it.Amount
		if k > n-taken {
			k = n - taken
		}
		it.Amount -= k
		taken += k
		it.MarkDirty()
		if it.Amount <= 0 {
			c.Remove(it)
			it.removed = true
		}
	}
	if taken > 0 {
		c.MarkDirty()
	}
	return taken
}

// Close marks the container as belonging to a destroyed owner.
func (c *Container) Close() { c.closed = true }

func (c *Container) MarkDirty()  { c.dirty = true }
func (c *Container) Dirty() bool { return c.dirty }
func (c *Container) ClearDirty() { c.dirty = false }
