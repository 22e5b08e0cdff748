// Package page runs the load pipeline: fetch the content document, then
// rebuild the page from it.
package page

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/net/html"

	"github.com/gabrielmiguelok/cardgrid/pkg/accordion"
	"github.com/gabrielmiguelok/cardgrid/pkg/content"
	"github.com/gabrielmiguelok/cardgrid/pkg/dom"
	"github.com/gabrielmiguelok/cardgrid/pkg/logging"
	"github.com/gabrielmiguelok/cardgrid/pkg/metrics"
	"github.com/gabrielmiguelok/cardgrid/pkg/render"
	"github.com/gabrielmiguelok/cardgrid/pkg/textutil"
	"github.com/gabrielmiguelok/cardgrid/pkg/theme"
)

// ErrorMessage replaces the grid content when a load fails.
const ErrorMessage = "載入卡片內容時發生問題，請稍後再試。"

// ErrNoContainer is returned when the page has no grid container. Nothing
// is fetched in that case.
var ErrNoContainer = errors.New("grid container not found")

// Loader fetches content and renders it into pages.
type Loader struct {
	source     content.Source
	logger     logging.Logger
	cleaner    textutil.Cleaner
	breakpoint int
	metrics    *metrics.Metrics
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// WithCleaner sets the separators trimmed from titles.
func WithCleaner(c textutil.Cleaner) Option {
	return func(ld *Loader) {
		ld.cleaner = c
	}
}

// WithBreakpoint sets the accordion threshold in pixels.
func WithBreakpoint(px int) Option {
	return func(ld *Loader) {
		ld.breakpoint = px
	}
}

// WithMetrics records every fetch in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(ld *Loader) {
		ld.metrics = m
	}
}

// NewLoader creates a loader reading from src.
func NewLoader(src content.Source, opts ...Option) *Loader {
	ld := &Loader{
		source:     src,
		logger:     logging.NopLogger{},
		cleaner:    textutil.DefaultCleaner(),
		breakpoint: accordion.DefaultBreakpoint,
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Source returns the content source.
func (ld *Loader) Source() content.Source {
	return ld.source
}

// Breakpoint returns the accordion threshold in pixels.
func (ld *Loader) Breakpoint() int {
	return ld.breakpoint
}

// Result describes a successful load.
type Result struct {
	Document   *content.Document
	State      render.State
	Accordion  *accordion.Controller
	Title      textutil.Label
	Subtitle   textutil.Label
	Stylesheet string
}

// Load fetches the document and rebuilds p from it. width is the viewport
// width used to configure the accordion.
//
// On a fetch or decode failure the grid holds only ErrorMessage and the
// error is returned; the rest of the page is left as it was.
func (ld *Loader) Load(ctx context.Context, p *dom.Page, width int) (*Result, error) {
	container, ok := p.Container()
	if !ok {
		ld.logger.Error("grid container not found", logging.String("selector", dom.ContainerSelector))
		return nil, ErrNoContainer
	}

	start := time.Now()
	doc, err := ld.source.Fetch(ctx)
	ld.metrics.ObserveLoad(time.Since(start), err)
	if err != nil {
		ld.logger.Error("loading content failed",
			logging.String("source", ld.source.Location()),
			logging.Err(err),
		)
		dom.ShowMessage(container, ErrorMessage)
		return nil, fmt.Errorf("loading content: %w", err)
	}

	res := &Result{Document: doc}

	if doc.Meta != nil {
		if doc.Meta.Title != nil {
			if n, ok := p.QueryOne(dom.TitleSelector); ok {
				res.Title = ld.applyLabel(n, *doc.Meta.Title)
				if res.Title.Text != "" {
					if err := p.SetTitle(res.Title.Text); err != nil {
						ld.logger.Warn("setting document title failed", logging.Err(err))
					}
				}
			}
		}
		if doc.Meta.Subtitle != nil {
			if n, ok := p.QueryOne(dom.SubtitleSelector); ok {
				res.Subtitle = ld.applyLabel(n, *doc.Meta.Subtitle)
			}
		}

		res.Stylesheet = theme.Synthesize(doc.Meta.Styles, doc.Palette())
		if res.Stylesheet != "" {
			if _, err := p.AppendStyle(res.Stylesheet); err != nil {
				ld.logger.Warn("appending stylesheet failed", logging.Err(err))
			}
		}
	}

	res.State = render.Cards(container, doc.Cards)
	res.Accordion = accordion.New(res.State, ld.breakpoint)
	res.Accordion.SetViewportWidth(width)

	ld.logger.Debug("content rendered",
		logging.String("source", ld.source.Location()),
		logging.Int("cards", res.State.Len()),
		logging.Bool("narrow", res.Accordion.Narrow()),
		logging.Duration("duration", time.Since(start)),
	)

	return res, nil
}

func (ld *Loader) applyLabel(n *html.Node, raw string) textutil.Label {
	label := ld.cleaner.Split(raw)
	dom.SetText(n, label.Text)
	if label.HasURL() {
		dom.SetClickTarget(n, label.URL)
	}
	return label
}
