package livetest

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"testing"

	"github.com/gabrielmiguelok/cardgrid/pkg/core"
)

type greeter struct {
	core.BaseComponent
	name string
}

func (g *greeter) Name() string { return "greeter" }

func (g *greeter) Mount(ctx context.Context, params core.Params, session core.Session) error {
	g.name = params.GetDefault("name", "world")
	g.Assigns().Set("name", g.name)
	return nil
}

func (g *greeter) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<p class="greeting" data-name="%s">hello %s</p>`,
			html.EscapeString(g.name), html.EscapeString(g.name))
		return err
	})
}

func (g *greeter) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	name, _ := payload["name"].(string)
	if event != "rename" || name == "" {
		return errors.New("bad rename")
	}
	g.name = name
	g.Assigns().Set("name", name)
	return g.Socket().Push("renamed", map[string]any{"name": name})
}

func TestLiveViewTest_Flow(t *testing.T) {
	lvt := Mount(t, &greeter{}, WithParams(core.Params{"name": "grid"}))

	lvt.AssertHasElement("p.greeting").
		AssertCount("p", 1).
		AssertText(".greeting", "hello grid").
		AssertAttr(".greeting", "data-name", "grid").
		AssertAssign("name", "grid").
		AssertNoElement("ul")

	lvt.Push("rename", map[string]any{"name": "<cards>"})
	lvt.AssertText(".greeting", "hello <cards>").
		AssertContains("hello &lt;cards&gt;")

	if err := lvt.PushErr("rename", nil); err == nil {
		t.Error("expected error for empty rename")
	}
	if n := len(lvt.Events()); n != 2 {
		t.Errorf("expected 2 recorded events, got %d", n)
	}

	events := lvt.Transport().SentEvents()
	if len(events) != 1 || events[0] != "renamed" {
		t.Errorf("unexpected sent events %v", events)
	}
}

func TestMockTransport_Failures(t *testing.T) {
	m := NewMockTransport()
	s := core.NewSocket(m.ID, m)

	m.FailWith(errors.New("wire down"))
	if err := s.Push("x", nil); !errors.Is(err, core.ErrSendFailed) {
		t.Errorf("expected ErrSendFailed, got %v", err)
	}

	m.FailWith(nil)
	m.Close()
	if err := s.Push("x", nil); !errors.Is(err, core.ErrSocketClosed) {
		t.Errorf("expected ErrSocketClosed, got %v", err)
	}
	if len(m.Sent()) != 0 {
		t.Errorf("nothing should have been recorded, got %v", m.Sent())
	}
}
