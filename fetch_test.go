package hxmodal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fetchResult struct {
	body string
	err  error
}

func fetchSync(t *testing.T, f *HTTPFetcher, loop *Loop, url string) fetchResult {
	t.Helper()
	ch := make(chan fetchResult, 1)
	f.Fetch(context.Background(), url, func(body string, err error) {
		ch <- fetchResult{body, err}
	})

	deadline := time.After(5 * time.Second)
	for {
		loop.Drain()
		select {
		case r := <-ch:
			return r
		case <-deadline:
			t.Fatal("fetch did not complete")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/form":
			if r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
				http.Error(w, "ajax only", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `<div class="formcontent"></div>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	loop := NewLoop()
	f := NewHTTPFetcher(loop, WithHTTPClient(srv.Client()), WithFetchLogger(discardLogger()))

	ok := fetchSync(t, f, loop, srv.URL+"/form")
	if ok.err != nil {
		t.Fatalf("Fetch() error = %v", ok.err)
	}
	if ok.body != `<div class="formcontent"></div>` {
		t.Errorf("body = %q", ok.body)
	}

	missing := fetchSync(t, f, loop, srv.URL+"/missing")
	if missing.err == nil {
		t.Error("Fetch() of a 404 should fail")
	}
}

func TestHTTPFetcherDeliversOnScheduler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	loop := NewLoop()
	f := NewHTTPFetcher(loop, WithHTTPClient(srv.Client()), WithFetchLogger(discardLogger()))

	called := make(chan struct{}, 1)
	f.Fetch(context.Background(), srv.URL, func(string, error) { called <- struct{}{} })

	deadline := time.Now().Add(5 * time.Second)
	for loop.Pending() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("result never posted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case <-called:
		t.Fatal("callback ran before the loop drained")
	default:
	}
	loop.Drain()
	select {
	case <-called:
	default:
		t.Error("callback did not run on Drain")
	}
}
