// Package gridview is the live component that serves the card grid page.
package gridview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gabrielmiguelok/cardgrid/pkg/accordion"
	"github.com/gabrielmiguelok/cardgrid/pkg/core"
	"github.com/gabrielmiguelok/cardgrid/pkg/dom"
	"github.com/gabrielmiguelok/cardgrid/pkg/logging"
	"github.com/gabrielmiguelok/cardgrid/pkg/page"
	"github.com/gabrielmiguelok/cardgrid/pkg/protocol"
	"github.com/gabrielmiguelok/cardgrid/pkg/pubsub"
)

// DefaultViewportWidth is assumed when the client does not report one.
const DefaultViewportWidth = 1280

// ParamWidth is the query parameter carrying the initial viewport width.
const ParamWidth = "width"

// Event errors.
var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrBadPayload   = errors.New("invalid event payload")
	ErrNotLoaded    = errors.New("content not loaded")
)

// View renders the card grid and reacts to clicks, viewport changes and
// reloads. Every reload rebuilds the page from the shell, so open state
// and styles never carry over between loads.
type View struct {
	core.BaseComponent

	loader *page.Loader
	shell  []byte
	logger logging.Logger

	mu      sync.Mutex
	page    *dom.Page
	result  *page.Result
	loadErr error
	width   int
	loads   int
}

// Option configures a View.
type Option func(*View)

// WithShell replaces dom.DefaultShell as the page template.
func WithShell(shell []byte) Option {
	return func(v *View) {
		v.shell = shell
	}
}

// WithLogger sets the view logger.
func WithLogger(l logging.Logger) Option {
	return func(v *View) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a view loading through loader.
func New(loader *page.Loader, opts ...Option) *View {
	v := &View{
		loader: loader,
		logger: logging.NopLogger{},
		width:  DefaultViewportWidth,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Factory returns a constructor suitable for router.Live.
func Factory(loader *page.Loader, opts ...Option) func() core.Component {
	return func() core.Component {
		return New(loader, opts...)
	}
}

// Name implements core.Component.
func (v *View) Name() string {
	return "gridview"
}

// Mount reads the viewport width from params and runs the first load. A
// failed content fetch is not a mount error: the page shows the error
// message in the grid instead.
func (v *View) Mount(ctx context.Context, params core.Params, session core.Session) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if w, ok := params.GetInt(ParamWidth); ok && w > 0 {
		v.width = w
	}
	return v.reloadLocked(ctx)
}

// HandleEvent implements core.Component.
func (v *View) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch event {
	case protocol.EventCardClick:
		i, ok := protocol.Int(payload, "index")
		if !ok {
			return fmt.Errorf("%w: index", ErrBadPayload)
		}
		return v.clickLocked(i)

	case protocol.EventViewport:
		w, ok := protocol.Int(payload, ParamWidth)
		if !ok || w <= 0 {
			return fmt.Errorf("%w: width", ErrBadPayload)
		}
		v.width = w
		if v.result != nil {
			v.result.Accordion.SetViewportWidth(w)
			v.Assigns().Set("narrow", v.result.Accordion.Narrow())
		}
		return nil

	case protocol.EventReload:
		return v.reloadLocked(ctx)

	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}
}

func (v *View) clickLocked(i int) error {
	if v.result == nil {
		return ErrNotLoaded
	}
	err := v.result.Accordion.Click(i)
	if errors.Is(err, accordion.ErrDetached) {
		// Wide viewports have no click handlers.
		return nil
	}
	if err != nil {
		return err
	}
	v.Assigns().Set("open", v.result.Accordion.Open())
	return nil
}

// HandleInfo reloads on content changes.
func (v *View) HandleInfo(ctx context.Context, msg any) error {
	ev, ok := msg.(pubsub.ContentChanged)
	if !ok {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.logger.Debug("content changed, reloading",
		logging.String("location", ev.Location),
		logging.String("op", ev.Op),
	)
	return v.reloadLocked(ctx)
}

// reloadLocked rebuilds the page from the shell and runs the loader.
func (v *View) reloadLocked(ctx context.Context) error {
	p, err := v.newPage()
	if err != nil {
		return err
	}

	res, err := v.loader.Load(ctx, p, v.width)
	v.page = p
	v.result = res
	v.loadErr = err
	v.loads++

	a := v.Assigns()
	a.Set("loads", v.loads)
	a.Set("open", -1)
	if res != nil {
		a.Set("cards", res.State.Len())
		a.Set("narrow", res.Accordion.Narrow())
	} else {
		a.Set("cards", 0)
	}
	return nil
}

func (v *View) newPage() (*dom.Page, error) {
	if len(v.shell) == 0 {
		return dom.NewPage(), nil
	}
	return dom.ParsePageBytes(v.shell)
}

// Render writes the whole page.
func (v *View) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		v.mu.Lock()
		defer v.mu.Unlock()

		if v.page == nil {
			return ErrNotLoaded
		}
		return v.page.Render(w)
	})
}

// Width returns the current viewport width.
func (v *View) Width() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width
}

// Result returns the last successful load, or nil.
func (v *View) Result() *page.Result {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.result
}

// LoadErr returns the error of the last load, if any.
func (v *View) LoadErr() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadErr
}

// Page returns the current page.
func (v *View) Page() *dom.Page {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}
