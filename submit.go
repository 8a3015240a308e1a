package hxmodal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result values reported by the account endpoint.
const (
	ResultSuccess = "success"
	ResultFail    = "fail"
)

// SubmitRequest is one create or update call against the account endpoint.
type SubmitRequest struct {
	Method string // http.MethodPost to create, http.MethodPut to update
	URL    string
	Values map[string]string
}

// SubmitResponse is the endpoint's answer to a successful submission.
type SubmitResponse struct {
	ID string
}

// Submitter sends form values to the account endpoint. Implementations must
// not block the caller; done is delivered later through a Scheduler. A
// rejection with field errors is reported as *ValidationError.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest, done func(SubmitResponse, error))
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, req SubmitRequest, done func(SubmitResponse, error))

// Submit calls f.
func (f SubmitterFunc) Submit(ctx context.Context, req SubmitRequest, done func(SubmitResponse, error)) {
	f(ctx, req, done)
}

// apiResponse mirrors the JSON envelope of the account endpoint:
//
//	{"result": "success", "id": "..."}
//	{"result": "fail", "error": "...", "errors": {"email": ["invalid"]}}
type apiResponse struct {
	Result string              `json:"result"`
	ID     json.RawMessage     `json:"id,omitempty"`
	Error  string              `json:"error,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// HTTPSubmitter posts JSON bodies to the endpoint URLs advertised by the
// form fragment. Relative URLs are resolved against the base URL.
type HTTPSubmitter struct {
	client    *http.Client
	base      *url.URL
	scheduler Scheduler
	logger    *slog.Logger
}

// HTTPSubmitterOption configures an HTTPSubmitter.
type HTTPSubmitterOption func(*HTTPSubmitter)

// WithSubmitClient sets the client used for requests.
func WithSubmitClient(c *http.Client) HTTPSubmitterOption {
	return func(s *HTTPSubmitter) {
		s.client = c
	}
}

// WithBaseURL sets the URL relative endpoint URLs are resolved against.
func WithBaseURL(base string) HTTPSubmitterOption {
	return func(s *HTTPSubmitter) {
		if u, err := url.Parse(base); err == nil {
			s.base = u
		}
	}
}

// WithSubmitLogger sets the submitter's logger.
func WithSubmitLogger(l *slog.Logger) HTTPSubmitterOption {
	return func(s *HTTPSubmitter) {
		s.logger = l
	}
}

// NewHTTPSubmitter creates a submitter delivering results on sched.
func NewHTTPSubmitter(sched Scheduler, opts ...HTTPSubmitterOption) *HTTPSubmitter {
	s := &HTTPSubmitter{
		client:    &http.Client{Timeout: 15 * time.Second},
		scheduler: sched,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "submitter")
	return s
}

// Submit starts the request and returns immediately.
func (s *HTTPSubmitter) Submit(ctx context.Context, req SubmitRequest, done func(SubmitResponse, error)) {
	go func() {
		resp, err := s.do(ctx, req)
		switch {
		case err == nil:
			s.logger.InfoContext(ctx, "submission accepted", "method", req.Method, "url", req.URL, "id", resp.ID)
		case IsValidationError(err):
			s.logger.InfoContext(ctx, "submission rejected", "method", req.Method, "url", req.URL, "error", err)
		default:
			s.logger.WarnContext(ctx, "submission failed", "method", req.Method, "url", req.URL, "error", err)
		}
		s.scheduler.Post(func() { done(resp, err) })
	}()
}

func (s *HTTPSubmitter) resolve(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: endpoint %q: %v", ErrSubmit, raw, err)
	}
	if s.base != nil {
		u = s.base.ResolveReference(u)
	}
	return u.String(), nil
}

func (s *HTTPSubmitter) do(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}
	endpoint, err := s.resolve(req.URL)
	if err != nil {
		return SubmitResponse{}, err
	}

	body, err := json.Marshal(req.Values)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("%w: encode values: %v", ErrSubmit, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("%w: build request: %v", ErrSubmit, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFragmentBytes))
	if err != nil {
		return SubmitResponse{}, fmt.Errorf("%w: read response: %v", ErrSubmit, err)
	}

	var payload apiResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return SubmitResponse{}, fmt.Errorf("%w: status %d: decode response: %v", ErrSubmit, resp.StatusCode, err)
		}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299 && payload.Result != ResultFail:
		return SubmitResponse{ID: rawID(payload.ID)}, nil
	case resp.StatusCode == http.StatusBadRequest || payload.Result == ResultFail:
		return SubmitResponse{}, &ValidationError{Fields: payload.Errors, Message: payload.Error}
	default:
		return SubmitResponse{}, fmt.Errorf("%w: %s %s: unexpected status %d", ErrSubmit, method, endpoint, resp.StatusCode)
	}
}

// rawID accepts both string and numeric ids.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
