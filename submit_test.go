package hxmodal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type submitResult struct {
	resp SubmitResponse
	err  error
}

func submitSync(t *testing.T, s *HTTPSubmitter, loop *Loop, req SubmitRequest) submitResult {
	t.Helper()
	ch := make(chan submitResult, 1)
	s.Submit(context.Background(), req, func(resp SubmitResponse, err error) {
		ch <- submitResult{resp, err}
	})

	deadline := time.After(5 * time.Second)
	for {
		loop.Drain()
		select {
		case r := <-ch:
			return r
		case <-deadline:
			t.Fatal("submit did not complete")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHTTPSubmitter(t *testing.T) {
	var (
		mu                 sync.Mutex
		gotMethod, gotPath string
	)
	last := func() (string, string) {
		mu.Lock()
		defer mu.Unlock()
		return gotMethod, gotPath
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		gotMethod, gotPath = r.Method, r.URL.RequestURI()
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch body["username"] {
		case "ada":
			fmt.Fprint(w, `{"result":"success","id":"u-1"}`)
		case "numeric":
			fmt.Fprint(w, `{"result":"success","id":42}`)
		case "taken":
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"result":"fail","error":"Invalid data","errors":{"username":["This username is taken"]}}`)
		case "soft":
			fmt.Fprint(w, `{"result":"fail","error":"Invalid data"}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	loop := NewLoop()
	s := NewHTTPSubmitter(loop, WithSubmitClient(srv.Client()), WithBaseURL(srv.URL+"/accounts/form"), WithSubmitLogger(discardLogger()))

	t.Run("created", func(t *testing.T) {
		r := submitSync(t, s, loop, SubmitRequest{URL: "/api/users?t=x", Values: map[string]string{"username": "ada"}})
		if r.err != nil {
			t.Fatalf("Submit() error = %v", r.err)
		}
		if r.resp.ID != "u-1" {
			t.Errorf("ID = %q, want u-1", r.resp.ID)
		}
		if method, path := last(); method != http.MethodPost || path != "/api/users?t=x" {
			t.Errorf("request = %s %s, want POST /api/users?t=x", method, path)
		}
	})

	t.Run("numeric id", func(t *testing.T) {
		r := submitSync(t, s, loop, SubmitRequest{Method: http.MethodPut, URL: "/api/users/42", Values: map[string]string{"username": "numeric"}})
		if r.err != nil || r.resp.ID != "42" {
			t.Errorf("Submit() = %+v, %v; want ID 42", r.resp, r.err)
		}
		if method, _ := last(); method != http.MethodPut {
			t.Errorf("method = %s, want PUT", method)
		}
	})

	t.Run("field errors", func(t *testing.T) {
		r := submitSync(t, s, loop, SubmitRequest{URL: "/api/users", Values: map[string]string{"username": "taken"}})
		var ve *ValidationError
		if !errors.As(r.err, &ve) {
			t.Fatalf("Submit() error = %v, want *ValidationError", r.err)
		}
		want := map[string][]string{"username": {"This username is taken"}}
		if diff := cmp.Diff(want, ve.Fields); diff != "" {
			t.Errorf("Fields mismatch (-want +got):\n%s", diff)
		}
		if ve.Message != "Invalid data" {
			t.Errorf("Message = %q, want %q", ve.Message, "Invalid data")
		}
	})

	t.Run("fail result with 200", func(t *testing.T) {
		r := submitSync(t, s, loop, SubmitRequest{URL: "/api/users", Values: map[string]string{"username": "soft"}})
		if !IsValidationError(r.err) {
			t.Errorf("Submit() error = %v, want validation error", r.err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		r := submitSync(t, s, loop, SubmitRequest{URL: "/api/users", Values: map[string]string{"username": "boom"}})
		if !errors.Is(r.err, ErrSubmit) {
			t.Errorf("Submit() error = %v, want ErrSubmit", r.err)
		}
		if IsValidationError(r.err) {
			t.Error("server error must not be a validation error")
		}
	})
}
