// Package accounts is the account server behind the create-account dialog:
// it serves the front page, the signup form fragment and the JSON user API
// the form submits to.
package accounts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pthm/hxmodal/lib/encoding"
)

const (
	ticketPurpose  = "user-create"
	maxBodyBytes   = 64 << 10
	msgInvalidData = "invalid data"
)

// Server serves the account pages and API.
type Server struct {
	store          *Store
	tickets        *encoding.Encoder
	ticketTTL      time.Duration
	encrypt        bool
	minPassword    int
	title          string
	successMessage string
	logger         *slog.Logger

	mu       sync.Mutex
	redeemed map[string]time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithStore sets the user store.
func WithStore(s *Store) Option {
	return func(srv *Server) {
		srv.store = s
	}
}

// WithTicketTTL sets how long an issued form can be submitted. Zero means
// forever.
func WithTicketTTL(d time.Duration) Option {
	return func(srv *Server) {
		srv.ticketTTL = d
	}
}

// WithEncryptedTickets makes tickets opaque instead of signed.
func WithEncryptedTickets(encrypt bool) Option {
	return func(srv *Server) {
		srv.encrypt = encrypt
	}
}

// WithMinPasswordLength sets the shortest accepted password.
func WithMinPasswordLength(n int) Option {
	return func(srv *Server) {
		if n > 0 {
			srv.minPassword = n
		}
	}
}

// WithTitle sets the front page title.
func WithTitle(title string) Option {
	return func(srv *Server) {
		srv.title = title
	}
}

// WithSuccessMessage sets the account-created message advertised to the
// page. Empty keeps the page's default.
func WithSuccessMessage(msg string) Option {
	return func(srv *Server) {
		srv.successMessage = msg
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(srv *Server) {
		srv.logger = l
	}
}

// NewServer creates a server issuing form tickets with tickets.
func NewServer(tickets *encoding.Encoder, opts ...Option) *Server {
	s := &Server{
		tickets:     tickets,
		ticketTTL:   30 * time.Minute,
		minPassword: 8,
		title:       "Chat Demo Application",
		logger:      slog.Default(),
		redeemed:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewStore(0)
	}
	s.logger = s.logger.With("component", "accounts")
	return s
}

// Store returns the server's user store.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(s.logger))
	r.Use(loggingMiddleware(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/", s.handleIndex)
	r.Get(formURLPath, s.handleForm)

	r.Route(usersAPIPath, func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", invalidRequest)
		r.Put("/", invalidRequest)
		r.Delete("/", invalidRequest)

		r.Get("/{id}", s.handleGet)
		r.Put("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
		r.Post("/{id}", invalidRequest)
	})
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, Page(PageData{
		Title:          s.title,
		FormURL:        formURLPath,
		SuccessMessage: s.successMessage,
	}))
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	ticket, _, err := s.tickets.Issue(uuid.NewString(), ticketPurpose, s.ticketTTL, s.encrypt)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "issue form ticket", "error", err)
		http.Error(w, "unable to build form", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	s.render(w, r, Fragment(FragmentData{
		CreateURL: usersAPIPath + "?t=" + url.QueryEscape(ticket),
		UpdateURL: usersAPIPath + "/{id}",
		Fields:    createFields,
	}))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ticket, err := s.tickets.Decode(r.URL.Query().Get("t"), s.encrypt)
	switch {
	case errors.Is(err, encoding.ErrExpired):
		writeFail(w, http.StatusBadRequest, "the form has expired, please reload it", nil)
		return
	case err != nil || ticket.Purpose != ticketPurpose:
		s.logger.WarnContext(r.Context(), "rejected create ticket",
			"request_id", RequestIDFromContext(r.Context()), "error", err)
		writeFail(w, http.StatusBadRequest, "invalid form ticket", nil)
		return
	}
	if s.isRedeemed(ticket.FormID) {
		writeFail(w, http.StatusBadRequest, "this form was already submitted", nil)
		return
	}

	values, err := decodeValues(w, r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, msgInvalidData, nil)
		return
	}

	form, errs := ValidateCreate(values, s.minPassword, s.store)
	if errs != nil {
		writeFail(w, http.StatusBadRequest, msgInvalidData, errs)
		return
	}

	if !s.reserve(ticket) {
		writeFail(w, http.StatusBadRequest, "this form was already submitted", nil)
		return
	}
	u, err := s.store.Create(User{
		Username:  form.Username,
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
	}, form.Password)
	if err != nil {
		s.release(ticket.FormID)
	}
	switch {
	case errors.Is(err, ErrUsernameTaken):
		writeFail(w, http.StatusBadRequest, msgInvalidData, FieldErrors{"username": {"A user with that username already exists."}})
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "create user", "error", err)
		writeFail(w, http.StatusInternalServerError, "unable to create user", nil)
		return
	}

	s.logger.InfoContext(r.Context(), "user created",
		"request_id", RequestIDFromContext(r.Context()),
		"user_id", u.ID,
		"form_id", ticket.FormID,
	)
	writeSuccess(w, u.ID)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := s.store.Get(id)
	if err != nil {
		writeFail(w, http.StatusBadRequest, badPK(id), nil)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	values, err := decodeValues(w, r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, msgInvalidData, nil)
		return
	}
	changes, errs := ValidateUpdate(values)
	if errs != nil {
		writeFail(w, http.StatusBadRequest, msgInvalidData, errs)
		return
	}

	u, err := s.store.Update(id, changes)
	switch {
	case errors.Is(err, ErrNotFound):
		writeFail(w, http.StatusBadRequest, badPK(id), nil)
		return
	case errors.Is(err, ErrUsernameTaken):
		writeFail(w, http.StatusBadRequest, msgInvalidData, FieldErrors{"username": {"A user with that username already exists."}})
		return
	case err != nil:
		writeFail(w, http.StatusInternalServerError, "unable to update user", nil)
		return
	}
	writeSuccess(w, u.ID)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(id); err != nil {
		writeFail(w, http.StatusBadRequest, badPK(id), nil)
		return
	}
	s.logger.InfoContext(r.Context(), "user deleted", "user_id", id)
	writeSuccess(w, id)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		s.logger.ErrorContext(r.Context(), "render", "path", r.URL.Path, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) isRedeemed(formID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.redeemed[formID]
	return ok
}

// reserve marks a ticket used unless it already is, forgetting tickets that
// have expired anyway. It reports whether the caller now holds the ticket.
func (s *Server) reserve(t encoding.Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, used := s.redeemed[t.FormID]; used {
		return false
	}
	now := time.Now()
	for id, expires := range s.redeemed {
		if !expires.IsZero() && now.After(expires) {
			delete(s.redeemed, id)
		}
	}
	s.redeemed[t.FormID] = t.Expires
	return true
}

// release returns a reserved ticket after a failed create.
func (s *Server) release(formID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.redeemed, formID)
}

// decodeValues reads a JSON object body. Non-string scalars are kept in
// their JSON text form.
func decodeValues(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		return nil, err
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			values[k] = s
			continue
		}
		values[k] = string(bytes.TrimSpace(v))
	}
	return values, nil
}

func badPK(id string) string {
	return fmt.Sprintf("id %s does not exist (User)", id)
}
