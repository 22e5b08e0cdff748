// Package accordion keeps at most one card open on narrow viewports.
package accordion

import (
	"errors"
	"fmt"

	"github.com/gabrielmiguelok/cardgrid/pkg/dom"
	"github.com/gabrielmiguelok/cardgrid/pkg/render"
)

// DefaultBreakpoint is the widest viewport, in CSS pixels, that counts as
// narrow.
const DefaultBreakpoint = 640

// OpenClass marks the expanded card.
const OpenClass = "is-open"

var (
	// ErrDetached is returned for clicks while no handlers are attached.
	ErrDetached = errors.New("accordion handlers are not attached")
	// ErrOutOfRange is returned for clicks on an unknown card.
	ErrOutOfRange = errors.New("card index out of range")
)

// Controller owns the open state of one render pass. Click handlers live in
// a slot per card: attaching again replaces the slot, so a card never holds
// more than one handler.
type Controller struct {
	state      render.State
	breakpoint int
	narrow     bool
	handlers   []func()
	open       int
}

// New returns a detached controller with every card closed. A breakpoint of
// zero or less selects DefaultBreakpoint.
func New(state render.State, breakpoint int) *Controller {
	if breakpoint <= 0 {
		breakpoint = DefaultBreakpoint
	}
	c := &Controller{
		state:      state,
		breakpoint: breakpoint,
		open:       -1,
	}
	for _, card := range state.Cards {
		dom.RemoveClass(card, OpenClass)
	}
	return c
}

// Breakpoint returns the narrow threshold.
func (c *Controller) Breakpoint() int {
	return c.breakpoint
}

// IsNarrow reports whether width falls at or under the threshold.
func (c *Controller) IsNarrow(width int) bool {
	return width <= c.breakpoint
}

// Configure is the single entry point for viewport changes. Handlers are
// attached when narrow is true and detached otherwise. Open state is never
// changed here.
func (c *Controller) Configure(narrow bool) {
	c.narrow = narrow
	if narrow {
		c.Attach()
	} else {
		c.Detach()
	}
}

// SetViewportWidth configures the controller for a viewport width.
func (c *Controller) SetViewportWidth(width int) {
	c.Configure(c.IsNarrow(width))
}

// Narrow reports the last configured mode.
func (c *Controller) Narrow() bool {
	return c.narrow
}

// Attach installs one click handler per card.
func (c *Controller) Attach() {
	if c.handlers == nil {
		c.handlers = make([]func(), len(c.state.Cards))
	}
	for i := range c.state.Cards {
		c.handlers[i] = func() { c.toggle(i) }
	}
}

// Detach removes every handler.
func (c *Controller) Detach() {
	c.handlers = nil
}

// Attached reports whether handlers are installed.
func (c *Controller) Attached() bool {
	return c.handlers != nil
}

// HandlerCount returns the number of installed handlers.
func (c *Controller) HandlerCount() int {
	n := 0
	for _, h := range c.handlers {
		if h != nil {
			n++
		}
	}
	return n
}

// Click dispatches a click on card i.
func (c *Controller) Click(i int) error {
	if i < 0 || i >= len(c.state.Cards) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	if !c.Attached() {
		return ErrDetached
	}
	c.handlers[i]()
	return nil
}

func (c *Controller) toggle(i int) {
	prev := c.open
	if prev == i {
		c.open = -1
	} else {
		c.open = i
	}

	// Both class changes land before anyone can observe the DOM.
	if prev >= 0 {
		dom.RemoveClass(c.state.Cards[prev], OpenClass)
	}
	if c.open >= 0 {
		dom.AddClass(c.state.Cards[c.open], OpenClass)
	}
}

// IsOpen reports whether card i is open.
func (c *Controller) IsOpen(i int) bool {
	return i >= 0 && i == c.open
}

// Open returns the index of the open card, or -1.
func (c *Controller) Open() int {
	return c.open
}

// OpenCount returns the number of cards carrying the open class.
func (c *Controller) OpenCount() int {
	n := 0
	for _, card := range c.state.Cards {
		if dom.HasClass(card, OpenClass) {
			n++
		}
	}
	return n
}

// Len returns the number of controlled cards.
func (c *Controller) Len() int {
	return len(c.state.Cards)
}
