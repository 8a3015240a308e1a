package hxmodal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// Session and model events.
const (
	EventDestroy       = "destroy"
	EventSubmit        = "form:submit"
	EventSubmitCancel  = "form:submit:cancel"
	EventSubmitErrors  = "form:submit:errors"
	EventSubmitSuccess = "form:submit:success"
)

// UserModel is the transient data holder for one dialog session.
type UserModel struct {
	*Emitter

	id        string
	createURL string
	updateURL string

	mu        sync.Mutex
	attrs     map[string]string
	destroyed bool
}

// NewUserModel creates a model for the endpoints advertised by a fragment.
func NewUserModel(ref APIReference) *UserModel {
	return &UserModel{
		Emitter:   NewEmitter(),
		id:        uuid.NewString(),
		createURL: ref.CreateURL,
		updateURL: ref.UpdateURL,
		attrs:     make(map[string]string),
	}
}

// SessionID identifies the dialog session in logs.
func (m *UserModel) SessionID() string { return m.id }

// CreateURL returns the href-create endpoint.
func (m *UserModel) CreateURL() string { return m.createURL }

// UpdateURL returns the href-update endpoint.
func (m *UserModel) UpdateURL() string { return m.updateURL }

// Get returns an attribute value.
func (m *UserModel) Get(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attrs[key]
}

// Set stores attribute values.
func (m *UserModel) Set(values map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.attrs[k] = v
	}
}

// ID returns the server-assigned id, empty until the account is created.
func (m *UserModel) ID() string {
	return m.Get("id")
}

// IsNew reports whether the account has not been created yet.
func (m *UserModel) IsNew() bool {
	return m.ID() == ""
}

// endpoint picks the create or update call for the model's current state.
// An update URL may carry an {id} placeholder.
func (m *UserModel) endpoint() (method, url string) {
	if m.IsNew() || m.updateURL == "" {
		return http.MethodPost, m.createURL
	}
	return http.MethodPut, strings.ReplaceAll(m.updateURL, "{id}", m.ID())
}

// Destroy fires EventDestroy the first time it is called.
func (m *UserModel) Destroy() {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return
	}
	m.destroyed = true
	m.mu.Unlock()

	m.Trigger(EventDestroy, m)
}

// Destroyed reports whether Destroy has run.
func (m *UserModel) Destroyed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.destroyed
}

// SessionState is the position of a FormSession in its submit cycle.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionSubmitting
	SessionTerminal
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionSubmitting:
		return "submitting"
	case SessionTerminal:
		return "terminal"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// FormSession binds one UserModel to the form subtree of an open dialog.
//
// It turns submit and cancel actions into signals; the page decides what
// those signals do to the dialog:
//
//	Idle → Submitting → Idle       (form:submit:errors)
//	Idle → Submitting → Terminal   (form:submit:success)
//	Idle|Submitting → Terminal     (form:submit:cancel)
type FormSession struct {
	*Emitter

	model     *UserModel
	root      *goquery.Selection
	fields    []string
	submitter Submitter
	logger    *slog.Logger

	mu      sync.Mutex
	state   SessionState
	removed bool
}

// SessionOption configures a FormSession.
type SessionOption func(*FormSession)

// WithFieldNames sets the fields collected on submit. Defaults to
// FieldNames(root).
func WithFieldNames(names []string) SessionOption {
	return func(s *FormSession) {
		s.fields = names
	}
}

// WithSubmitter sets the transport for submissions.
func WithSubmitter(sub Submitter) SessionOption {
	return func(s *FormSession) {
		s.submitter = sub
	}
}

// WithSessionLogger sets the session's logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *FormSession) {
		s.logger = l
	}
}

// NewFormSession creates an idle session over root.
func NewFormSession(model *UserModel, root *goquery.Selection, opts ...SessionOption) *FormSession {
	s := &FormSession{
		Emitter: NewEmitter(),
		model:   model,
		root:    root,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fields == nil {
		s.fields = FieldNames(root)
	}
	s.logger = s.logger.With("component", "form_session", "session_id", model.SessionID())
	return s
}

// Model returns the session's model.
func (s *FormSession) Model() *UserModel { return s.model }

// Root returns the form subtree.
func (s *FormSession) Root() *goquery.Selection { return s.root }

// Fields returns the field names collected on submit.
func (s *FormSession) Fields() []string { return s.fields }

// State returns the current state.
func (s *FormSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Values returns the current field values of the subtree.
func (s *FormSession) Values() map[string]string {
	return FormValues(s.root, s.fields)
}

// Fill writes values into the subtree's fields.
func (s *FormSession) Fill(values map[string]string) {
	FillForm(s.root, values)
}

// Submit sends the subtree's values to the model's endpoint.
//
// EventSubmit fires synchronously before the request starts. The outcome
// arrives later as EventSubmitErrors or EventSubmitSuccess.
func (s *FormSession) Submit(ctx context.Context) error {
	if s.submitter == nil {
		return fmt.Errorf("%w: form session has no submitter", ErrConfiguration)
	}
	s.mu.Lock()
	switch s.state {
	case SessionSubmitting:
		s.mu.Unlock()
		return ErrSubmitPending
	case SessionTerminal:
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.state = SessionSubmitting
	s.mu.Unlock()

	values := s.Values()
	s.model.Set(values)
	s.Trigger(EventSubmit, values)

	method, endpoint := s.model.endpoint()
	s.logger.DebugContext(ctx, "submitting form", "method", method, "url", endpoint, "fields", len(values))
	s.submitter.Submit(ctx, SubmitRequest{Method: method, URL: endpoint, Values: values}, func(resp SubmitResponse, err error) {
		s.complete(ctx, resp, err)
	})
	return nil
}

func (s *FormSession) complete(ctx context.Context, resp SubmitResponse, err error) {
	s.mu.Lock()
	if s.state != SessionSubmitting {
		state := s.state
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "dropping submission result for finished session", "state", state, "error", err)
		return
	}
	if err != nil {
		s.state = SessionIdle
	} else {
		s.state = SessionTerminal
	}
	s.mu.Unlock()

	if err != nil {
		s.Trigger(EventSubmitErrors, submitErrorPayload(err))
		return
	}
	if resp.ID != "" {
		s.model.Set(map[string]string{"id": resp.ID})
	}
	s.Trigger(EventSubmitSuccess, s.model)
}

// submitErrorPayload converts any submission error into a field→messages
// map, so transport failures reach the user like validation failures.
func submitErrorPayload(err error) map[string][]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		if payload := ve.Payload(); len(payload) > 0 {
			return payload
		}
	}
	return map[string][]string{FormLevelKey: {"Unable to create the account, please try again"}}
}

// Cancel fires EventSubmitCancel and ends the session. Cancelling a finished
// session does nothing.
func (s *FormSession) Cancel() {
	s.mu.Lock()
	if s.state == SessionTerminal {
		s.mu.Unlock()
		return
	}
	s.state = SessionTerminal
	s.mu.Unlock()

	s.Trigger(EventSubmitCancel)
}

// Remove tears the session down: it stops listening to other emitters and
// detaches the form subtree from the document. Handlers registered on the
// session with On stay in place, so listeners outside the page still see the
// signal being dispatched when teardown happens. Only the first call has any
// effect.
func (s *FormSession) Remove() {
	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return
	}
	s.removed = true
	s.state = SessionTerminal
	s.mu.Unlock()

	s.StopListening()
	s.root.Remove()
	s.logger.Debug("form session removed")
}

// Removed reports whether Remove has run.
func (s *FormSession) Removed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed
}
