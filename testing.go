package hxmodal

import (
	"context"
	"sync"
)

// fetchCall is a request waiting in a StubFetcher.
type fetchCall struct {
	URL  string
	done func(string, error)
}

// StubFetcher is a Fetcher for tests. Requests are recorded and stay
// pending until the test resolves them, so the test decides when and how
// each fetch completes:
//
//	fetcher := &hxmodal.StubFetcher{}
//	modal := hxmodal.NewModal(target, hxmodal.WithFetcher(fetcher))
//	page.GetCreateUserForm(ctx)
//	fetcher.Resolve(fragment)
//
// With AutoBody set, every request completes immediately with that body.
type StubFetcher struct {
	AutoBody string

	mu      sync.Mutex
	calls   []string
	pending []fetchCall
}

// Fetch records the request.
func (f *StubFetcher) Fetch(_ context.Context, url string, done func(string, error)) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	if f.AutoBody != "" {
		body := f.AutoBody
		f.mu.Unlock()
		done(body, nil)
		return
	}
	f.pending = append(f.pending, fetchCall{URL: url, done: done})
	f.mu.Unlock()
}

// Calls returns the URLs requested so far.
func (f *StubFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Pending returns the number of unresolved requests.
func (f *StubFetcher) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Resolve completes the oldest pending request with body. It reports false
// when nothing is pending.
func (f *StubFetcher) Resolve(body string) bool {
	call, ok := f.pop()
	if ok {
		call.done(body, nil)
	}
	return ok
}

// Fail completes the oldest pending request with err.
func (f *StubFetcher) Fail(err error) bool {
	call, ok := f.pop()
	if ok {
		call.done("", err)
	}
	return ok
}

func (f *StubFetcher) pop() (fetchCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return fetchCall{}, false
	}
	call := f.pending[0]
	f.pending = f.pending[1:]
	return call, true
}

// StubSubmitter is a Submitter for tests. Submissions are recorded and stay
// pending until Accept or Reject is called.
type StubSubmitter struct {
	mu       sync.Mutex
	requests []SubmitRequest
	pending  []func(SubmitResponse, error)
}

// Submit records req.
func (s *StubSubmitter) Submit(_ context.Context, req SubmitRequest, done func(SubmitResponse, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	s.pending = append(s.pending, done)
}

// Requests returns the submissions received so far.
func (s *StubSubmitter) Requests() []SubmitRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SubmitRequest(nil), s.requests...)
}

// Accept completes the oldest pending submission with id.
func (s *StubSubmitter) Accept(id string) bool {
	done, ok := s.pop()
	if ok {
		done(SubmitResponse{ID: id}, nil)
	}
	return ok
}

// Reject completes the oldest pending submission with err.
func (s *StubSubmitter) Reject(err error) bool {
	done, ok := s.pop()
	if ok {
		done(SubmitResponse{}, err)
	}
	return ok
}

func (s *StubSubmitter) pop() (func(SubmitResponse, error), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, false
	}
	done := s.pending[0]
	s.pending = s.pending[1:]
	return done, true
}

// RecordingNotifier collects flashes for assertions.
type RecordingNotifier struct {
	mu      sync.Mutex
	flashes []Flash
}

// Notify records f.
func (n *RecordingNotifier) Notify(f Flash) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.flashes = append(n.flashes, f)
}

// Flashes returns the recorded flashes in order.
func (n *RecordingNotifier) Flashes() []Flash {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Flash(nil), n.flashes...)
}

// Levels returns the level of each recorded flash.
func (n *RecordingNotifier) Levels() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	levels := make([]string, len(n.flashes))
	for i, f := range n.flashes {
		levels[i] = f.Level
	}
	return levels
}
