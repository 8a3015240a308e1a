package hxmodal

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Page events, fired on the Page for external listeners.
const (
	// EventFormRetrieved carries the fragment once the dialog reports opened.
	EventFormRetrieved = "user:form:create:retrieved"
	// EventFormInit carries (*UserModel, *FormSession) after wiring.
	EventFormInit = "user:form:create:init"
)

// Defaults for Page configuration.
const (
	DefaultSuccessMessage  = "User account created successfully, you can now log in to the site"
	DefaultFormSelector    = ".formcontent"
	CreateAccountSelector  = "#btn-create-account"
	MsgFormUnavailable     = "Unable to retrieve create user form"
	msgMissingModalContent = "please provide a reference to the element which should be used for modal content"
)

// Page coordinates the "create account" dialog of a single page.
//
// A click on the create-account button fetches the form fragment into the
// modal. Once the modal reports opened, the page builds a UserModel and a
// FormSession over the fragment and wires their signals:
//
//	session form:submit:cancel  → close the modal
//	modal closed (once)         → destroy the model
//	model destroy               → tear the session down
//	session form:submit         → clear field errors
//	session form:submit:errors  → render field errors
//	session form:submit:success → close the modal, show the success message
//
// External code observes the flow through EventFormRetrieved and
// EventFormInit.
type Page struct {
	*Emitter

	formURL          string
	origin           string
	modal            *Modal
	notificationTmpl Template
	formErrorTmpl    Template
	errorSelector    string
	formSelector     string
	successMessage   string
	notifier         Notifier
	submitter        Submitter
	logger           *slog.Logger

	mu      sync.Mutex
	current *FormSession
}

// PageOption configures a Page.
type PageOption func(*Page)

// WithFormURL sets the URL of the create-user form fragment.
func WithFormURL(url string) PageOption {
	return func(p *Page) {
		p.formURL = strings.TrimSpace(url)
	}
}

// WithOrigin sets the URL the page was loaded from. A relative form URL is
// resolved against it.
func WithOrigin(origin string) PageOption {
	return func(p *Page) {
		p.origin = strings.TrimSpace(origin)
	}
}

// WithModal sets the dialog the form is presented in.
func WithModal(m *Modal) PageOption {
	return func(p *Page) {
		p.modal = m
	}
}

// WithNotificationTemplate sets the template applied to notifications.
func WithNotificationTemplate(t Template) PageOption {
	return func(p *Page) {
		p.notificationTmpl = t
	}
}

// WithFormErrorTemplate sets the template applied to field errors.
func WithFormErrorTemplate(t Template) PageOption {
	return func(p *Page) {
		p.formErrorTmpl = t
	}
}

// WithErrorSelector overrides the selector of field-error elements.
func WithErrorSelector(selector string) PageOption {
	return func(p *Page) {
		if selector != "" {
			p.errorSelector = selector
		}
	}
}

// WithFormSelector overrides the selector of the form container inside the
// fetched fragment.
func WithFormSelector(selector string) PageOption {
	return func(p *Page) {
		if selector != "" {
			p.formSelector = selector
		}
	}
}

// WithSuccessMessage overrides the message shown after account creation.
func WithSuccessMessage(msg string) PageOption {
	return func(p *Page) {
		if msg != "" {
			p.successMessage = msg
		}
	}
}

// WithNotifier sets where notifications are displayed.
func WithNotifier(n Notifier) PageOption {
	return func(p *Page) {
		p.notifier = n
	}
}

// WithPageSubmitter sets the transport used by form sessions.
func WithPageSubmitter(s Submitter) PageOption {
	return func(p *Page) {
		p.submitter = s
	}
}

// WithLogger sets the page's logger.
func WithLogger(l *slog.Logger) PageOption {
	return func(p *Page) {
		p.logger = l
	}
}

// NewPage creates a page controller. Missing fetch URL or modal are not
// reported here; operations that need them return ErrConfiguration.
func NewPage(opts ...PageOption) *Page {
	p := &Page{
		Emitter:        NewEmitter(),
		errorSelector:  DefaultErrorSelector,
		formSelector:   DefaultFormSelector,
		successMessage: DefaultSuccessMessage,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "page")
	if p.origin != "" && p.formURL != "" {
		p.formURL = resolveURL(p.origin, p.formURL)
	}
	if p.notifier == nil {
		p.notifier = LogNotifier{Logger: p.logger}
	}
	if p.submitter == nil && p.modal != nil {
		p.submitter = NewHTTPSubmitter(p.modal.Scheduler(), WithBaseURL(p.formURL), WithSubmitLogger(p.logger))
	}

	p.ListenTo(p, EventFormRetrieved, func(args ...any) {
		fragment, _ := firstArg[string](args)
		if _, err := p.InitCreateUserForm(fragment); err != nil {
			p.logger.Error("create-user form initialisation failed", "error", err)
			p.errorMessage(MsgFormUnavailable)
			if p.modal != nil {
				p.modal.Close()
			}
		}
	})
	return p
}

// Modal returns the page's dialog, or nil.
func (p *Page) Modal() *Modal {
	return p.modal
}

// Session returns the live form session, or nil when no dialog session is
// active.
func (p *Page) Session() *FormSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || p.current.Removed() {
		return nil
	}
	return p.current
}

// CheckModalContentElement returns ErrConfiguration when no modal target is
// configured.
func (p *Page) CheckModalContentElement() error {
	if p.modal == nil || p.modal.Target() == nil || p.modal.Target().Length() == 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, msgMissingModalContent)
	}
	return nil
}

// Click dispatches a click on the element matching selector.
func (p *Page) Click(ctx context.Context, selector string) error {
	switch selector {
	case CreateAccountSelector:
		return p.GetCreateUserForm(ctx)
	}
	return fmt.Errorf("%w: click %s", ErrUnknownAction, selector)
}

// GetCreateUserForm loads the create-user form into the modal.
//
// Configuration is checked before any I/O. A fetch failure is shown as an
// error notification. On success EventFormRetrieved fires once the modal
// reports opened, so the form subtree exists before anything binds to it.
func (p *Page) GetCreateUserForm(ctx context.Context) error {
	if p.formURL == "" {
		return fmt.Errorf("%w: no URL for retrieving the create-user form was provided", ErrConfiguration)
	}
	if err := p.CheckModalContentElement(); err != nil {
		return err
	}

	return p.modal.Open(ctx, OpenRequest{
		URL: p.formURL,
		Success: func(fragment string) {
			opened := p.modal.Once(EventOpened, func(...any) {
				p.Trigger(EventFormRetrieved, fragment)
			})
			// A modal closed before it finished opening never fires opened.
			p.modal.Once(EventClosed, func(...any) { opened.Cancel() })
		},
		Error: func(err error) {
			p.logger.WarnContext(ctx, "create-user form unavailable", "url", p.formURL, "error", err)
			p.errorMessage(MsgFormUnavailable)
		},
	})
}

// InitCreateUserForm builds and wires the dialog session for fragment, then
// fires EventFormInit.
func (p *Page) InitCreateUserForm(fragment string) (*FormSession, error) {
	if err := p.CheckModalContentElement(); err != nil {
		return nil, err
	}
	if p.Session() != nil {
		return nil, ErrSessionActive
	}

	ref, err := ParseAPIReference(fragment)
	if err != nil {
		return nil, err
	}
	root := p.latestFormRoot()
	if root.Length() == 0 {
		return nil, fmt.Errorf("%w: no %s in modal content", ErrInvalidFragment, p.formSelector)
	}

	model := NewUserModel(ref)
	session := NewFormSession(model, root,
		WithSubmitter(p.submitter),
		WithSessionLogger(p.logger),
	)

	session.ListenTo(session, EventSubmitCancel, func(...any) {
		p.modal.Close()
	})
	p.modal.Once(EventClosed, func(...any) {
		model.Destroy()
	})
	session.ListenTo(model, EventDestroy, func(...any) {
		session.Remove()
	})
	session.ListenTo(session, EventSubmit, func(...any) {
		RemoveFormErrors(session.Root(), p.errorSelector)
	})
	session.ListenTo(session, EventSubmitErrors, func(args ...any) {
		errs, _ := firstArg[map[string][]string](args)
		unplaced := DisplayFormErrors(session.Root(), errs, p.formErrorTmpl, p.errorSelector)
		if len(unplaced) > 0 {
			p.errorMessage(joinUnplaced(unplaced))
		}
	})
	session.ListenTo(session, EventSubmitSuccess, func(...any) {
		p.modal.Close()
		p.userMessage(p.successMessage)
	})

	p.mu.Lock()
	p.current = session
	p.mu.Unlock()

	p.logger.Info("create-user form initialised",
		"session_id", model.SessionID(),
		"create_url", model.CreateURL(),
		"fields", len(session.Fields()),
	)
	p.Trigger(EventFormInit, model, session)
	return session, nil
}

// latestFormRoot returns the form container inserted by the most recent
// swap. Appending swaps can leave containers of earlier fetches in place.
func (p *Page) latestFormRoot() *goquery.Selection {
	containers := p.modal.Target().Find(p.formSelector)
	if p.modal.Swap() == SwapBeforeEnd {
		return containers.Last()
	}
	return containers.First()
}

func (p *Page) errorMessage(msg string) {
	p.notifier.Notify(NotificationFlash(FlashError, msg, p.notificationTmpl))
}

func (p *Page) userMessage(msg string) {
	p.notifier.Notify(NotificationFlash(FlashSuccess, msg, p.notificationTmpl))
}

// joinUnplaced flattens field errors that have no element on the form.
func joinUnplaced(errs map[string][]string) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		msg := strings.Join(errs[f], " ")
		if f == FormLevelKey {
			parts = append(parts, msg)
			continue
		}
		parts = append(parts, f+": "+msg)
	}
	return strings.Join(parts, "; ")
}

// resolveURL resolves ref against base, returning ref unchanged when either
// does not parse.
func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func firstArg[T any](args []any) (T, bool) {
	var zero T
	if len(args) == 0 {
		return zero, false
	}
	v, ok := args[0].(T)
	return v, ok
}
