package hxmodal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Modal events, fired on the Modal itself.
const (
	EventOpened = "opened"
	EventClosed = "closed"
)

// ModalState is the lifecycle position of a Modal.
type ModalState int

const (
	ModalClosed ModalState = iota
	ModalLoading
	ModalOpening
	ModalOpen
	ModalClosing
)

func (s ModalState) String() string {
	switch s {
	case ModalClosed:
		return "closed"
	case ModalLoading:
		return "loading"
	case ModalOpening:
		return "opening"
	case ModalOpen:
		return "open"
	case ModalClosing:
		return "closing"
	}
	return fmt.Sprintf("ModalState(%d)", int(s))
}

// OpenRequest describes a fragment to load into the modal.
//
// Success runs after the markup is attached to the target but before
// EventOpened fires, so it can subscribe to EventOpened. Error runs instead
// when the fragment cannot be fetched; the modal then stays closed.
type OpenRequest struct {
	URL     string
	Success func(fragment string)
	Error   func(err error)
}

// Modal presents remote markup in a dialog element of the page.
//
// Open and Close never block. EventOpened is posted only after the fetched
// markup is attached and the dialog is marked open; EventClosed is posted
// after the dialog is hidden. Both are delivered on the Modal's Scheduler.
type Modal struct {
	*Emitter

	mu        sync.Mutex
	state     ModalState
	target    *goquery.Selection
	fetcher   Fetcher
	scheduler Scheduler
	swap      SwapMode
	logger    *slog.Logger
}

// ModalOption configures a Modal.
type ModalOption func(*Modal)

// WithFetcher sets the Fetcher used by Open.
func WithFetcher(f Fetcher) ModalOption {
	return func(m *Modal) {
		m.fetcher = f
	}
}

// WithScheduler sets the Scheduler that delivers modal events.
func WithScheduler(s Scheduler) ModalOption {
	return func(m *Modal) {
		m.scheduler = s
	}
}

// WithSwap sets how fetched markup is placed into the target.
func WithSwap(mode SwapMode) ModalOption {
	return func(m *Modal) {
		m.swap = mode
	}
}

// WithModalLogger sets the modal's logger.
func WithModalLogger(l *slog.Logger) ModalOption {
	return func(m *Modal) {
		m.logger = l
	}
}

// NewModal creates a closed modal bound to target.
//
// Without WithScheduler the modal uses Immediate; without WithFetcher it uses
// an HTTPFetcher on the same scheduler.
func NewModal(target *goquery.Selection, opts ...ModalOption) *Modal {
	m := &Modal{
		Emitter:   NewEmitter(),
		target:    target,
		scheduler: Immediate,
		swap:      SwapInner,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.fetcher == nil {
		m.fetcher = NewHTTPFetcher(m.scheduler, WithFetchLogger(m.logger))
	}
	m.logger = m.logger.With("component", "modal")
	if target != nil {
		m.hide()
	}
	return m
}

// Target returns the dialog element.
func (m *Modal) Target() *goquery.Selection {
	return m.target
}

// Scheduler returns the scheduler delivering the modal's events.
func (m *Modal) Scheduler() Scheduler {
	return m.scheduler
}

// Swap returns how fetched markup is placed into the target.
func (m *Modal) Swap() SwapMode {
	return m.swap
}

// State returns the current lifecycle state.
func (m *Modal) State() ModalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Open fetches req.URL and presents it. It returns ErrModalBusy unless the
// modal is closed, and ErrConfiguration when there is no target.
func (m *Modal) Open(ctx context.Context, req OpenRequest) error {
	if m.target == nil || m.target.Length() == 0 {
		return fmt.Errorf("%w: modal has no target element", ErrConfiguration)
	}
	if !m.transition(ModalClosed, ModalLoading) {
		return fmt.Errorf("%w: state %s", ErrModalBusy, m.State())
	}

	m.logger.DebugContext(ctx, "opening modal", "url", req.URL)
	m.fetcher.Fetch(ctx, req.URL, func(body string, err error) {
		if err != nil {
			m.setState(ModalClosed)
			if req.Error != nil {
				req.Error(fmt.Errorf("%w: %v", ErrFetch, err))
			}
			return
		}
		if !m.transition(ModalLoading, ModalOpening) {
			m.logger.WarnContext(ctx, "fragment arrived after modal left loading state", "state", m.State())
			return
		}

		m.swap.apply(m.target, body)
		m.show()
		if req.Success != nil {
			req.Success(body)
		}
		m.scheduler.Post(func() {
			if !m.transition(ModalOpening, ModalOpen) {
				return
			}
			m.Trigger(EventOpened)
		})
	})
	return nil
}

// Close hides the dialog and posts EventClosed. Closing a modal that is not
// open or opening does nothing.
func (m *Modal) Close() {
	m.mu.Lock()
	if m.state != ModalOpen && m.state != ModalOpening {
		m.mu.Unlock()
		return
	}
	m.state = ModalClosing
	m.mu.Unlock()

	m.hide()
	m.scheduler.Post(func() {
		if !m.transition(ModalClosing, ModalClosed) {
			return
		}
		m.Trigger(EventClosed)
	})
}

func (m *Modal) show() {
	m.target.AddClass("open")
	m.target.SetAttr("aria-hidden", "false")
}

func (m *Modal) hide() {
	m.target.RemoveClass("open")
	m.target.SetAttr("aria-hidden", "true")
}

func (m *Modal) transition(from, to ModalState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		return false
	}
	m.state = to
	return true
}

func (m *Modal) setState(s ModalState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
