// Package livetest drives live components in tests without a browser or a
// WebSocket connection.
package livetest

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/gabrielmiguelok/cardgrid/pkg/core"
)

// LiveViewTest mounts a component and re-renders it after every event.
type LiveViewTest struct {
	component core.Component
	transport *MockTransport
	params    core.Params
	session   core.Session
	rendered  string
	doc       *goquery.Document
	events    []core.Event
	t         testing.TB
}

// MountOption configures the test mount.
type MountOption func(*LiveViewTest)

// WithParams sets mount parameters.
func WithParams(params core.Params) MountOption {
	return func(lvt *LiveViewTest) {
		lvt.params = params
	}
}

// WithSession sets session data.
func WithSession(session core.Session) MountOption {
	return func(lvt *LiveViewTest) {
		lvt.session = session
	}
}

// Mount creates and mounts a component for testing.
func Mount(t testing.TB, comp core.Component, opts ...MountOption) *LiveViewTest {
	t.Helper()

	lvt := &LiveViewTest{
		component: comp,
		transport: NewMockTransport(),
		params:    core.Params{},
		session:   core.Session{},
		t:         t,
	}
	for _, opt := range opts {
		opt(lvt)
	}

	if setter, ok := comp.(interface{ SetSocket(*core.Socket) }); ok {
		setter.SetSocket(core.NewSocket(lvt.transport.ID, lvt.transport))
	}

	if err := comp.Mount(context.Background(), lvt.params, lvt.session); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}

	lvt.render()
	return lvt
}

// Push sends an event and re-renders. A handler error fails the test.
func (lvt *LiveViewTest) Push(event string, payload map[string]any) *LiveViewTest {
	lvt.t.Helper()

	if err := lvt.PushErr(event, payload); err != nil {
		lvt.t.Errorf("HandleEvent(%s) failed: %v", event, err)
	}
	return lvt
}

// PushErr sends an event and returns the handler error. The component is
// re-rendered only when the handler succeeds.
func (lvt *LiveViewTest) PushErr(event string, payload map[string]any) error {
	lvt.t.Helper()

	lvt.events = append(lvt.events, core.Event{Type: event, Payload: payload})
	if err := lvt.component.HandleEvent(context.Background(), event, payload); err != nil {
		return err
	}
	lvt.render()
	return nil
}

// SendInfo sends an info message to the component.
func (lvt *LiveViewTest) SendInfo(msg any) *LiveViewTest {
	lvt.t.Helper()

	if err := lvt.component.HandleInfo(context.Background(), msg); err != nil {
		lvt.t.Errorf("HandleInfo failed: %v", err)
		return lvt
	}
	lvt.render()
	return lvt
}

func (lvt *LiveViewTest) render() {
	lvt.t.Helper()

	ctx := context.Background()
	renderer := lvt.component.Render(ctx)
	if renderer == nil {
		lvt.t.Fatalf("Render returned nil")
	}

	var buf bytes.Buffer
	if err := renderer.Render(ctx, &buf); err != nil {
		lvt.t.Fatalf("Render failed: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		lvt.t.Fatalf("parsing rendered HTML: %v", err)
	}

	lvt.rendered = buf.String()
	lvt.doc = doc
}

// Rendered returns the current rendered HTML.
func (lvt *LiveViewTest) Rendered() string {
	return lvt.rendered
}

// Find queries the rendered HTML.
func (lvt *LiveViewTest) Find(selector string) *goquery.Selection {
	return lvt.doc.Find(selector)
}

// AssertHasElement verifies that selector matches at least one element.
func (lvt *LiveViewTest) AssertHasElement(selector string) *LiveViewTest {
	lvt.t.Helper()

	if lvt.doc.Find(selector).Length() == 0 {
		lvt.t.Errorf("Element not found: %s\nRendered HTML:\n%s", selector, lvt.rendered)
	}
	return lvt
}

// AssertNoElement verifies that selector matches nothing.
func (lvt *LiveViewTest) AssertNoElement(selector string) *LiveViewTest {
	lvt.t.Helper()

	if n := lvt.doc.Find(selector).Length(); n != 0 {
		lvt.t.Errorf("Element should not exist: %s (found %d)", selector, n)
	}
	return lvt
}

// AssertCount verifies how many elements selector matches.
func (lvt *LiveViewTest) AssertCount(selector string, want int) *LiveViewTest {
	lvt.t.Helper()

	if n := lvt.doc.Find(selector).Length(); n != want {
		lvt.t.Errorf("%s: expected %d elements, got %d", selector, want, n)
	}
	return lvt
}

// AssertText verifies the trimmed text of the first element matching
// selector.
func (lvt *LiveViewTest) AssertText(selector, want string) *LiveViewTest {
	lvt.t.Helper()

	sel := lvt.doc.Find(selector).First()
	if sel.Length() == 0 {
		lvt.t.Errorf("Element not found: %s", selector)
		return lvt
	}
	if got := strings.TrimSpace(sel.Text()); got != want {
		lvt.t.Errorf("%s: text = %q, want %q", selector, got, want)
	}
	return lvt
}

// AssertContains verifies the rendered HTML contains s.
func (lvt *LiveViewTest) AssertContains(s string) *LiveViewTest {
	lvt.t.Helper()

	if !strings.Contains(lvt.rendered, s) {
		lvt.t.Errorf("Text not found: %q\nRendered HTML:\n%s", s, lvt.rendered)
	}
	return lvt
}

// AssertAttr verifies an attribute of the first element matching selector.
func (lvt *LiveViewTest) AssertAttr(selector, attr, want string) *LiveViewTest {
	lvt.t.Helper()

	got, ok := lvt.doc.Find(selector).First().Attr(attr)
	if !ok {
		lvt.t.Errorf("%s: attribute %s missing", selector, attr)
		return lvt
	}
	if got != want {
		lvt.t.Errorf("%s[%s] = %q, want %q", selector, attr, got, want)
	}
	return lvt
}

// AssertAssign verifies an assign value.
func (lvt *LiveViewTest) AssertAssign(key string, expected any) *LiveViewTest {
	lvt.t.Helper()

	getter, ok := lvt.component.(interface{ Assigns() *core.Assigns })
	if !ok {
		lvt.t.Errorf("component %s has no assigns", lvt.component.Name())
		return lvt
	}

	actual := getter.Assigns().Get(key)
	if !reflect.DeepEqual(actual, expected) {
		lvt.t.Errorf("Assign %s mismatch:\n  Expected: %v (%T)\n  Actual:   %v (%T)",
			key, expected, expected, actual, actual)
	}
	return lvt
}

// Transport returns the mock transport behind the component's socket.
func (lvt *LiveViewTest) Transport() *MockTransport {
	return lvt.transport
}

// Component returns the component under test.
func (lvt *LiveViewTest) Component() core.Component {
	return lvt.component
}

// Events returns all events that were pushed.
func (lvt *LiveViewTest) Events() []core.Event {
	return lvt.events
}
