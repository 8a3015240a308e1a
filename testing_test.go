package hxmodal

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStubFetcher(t *testing.T) {
	f := &StubFetcher{}
	var got []string
	record := func(body string, err error) {
		if err != nil {
			got = append(got, "err:"+err.Error())
			return
		}
		got = append(got, body)
	}

	f.Fetch(context.Background(), "/a", record)
	f.Fetch(context.Background(), "/b", record)
	if f.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", f.Pending())
	}

	f.Resolve("first")
	f.Fail(errors.New("down"))
	if f.Resolve("none") {
		t.Error("Resolve() with nothing pending should report false")
	}

	if diff := cmp.Diff([]string{"first", "err:down"}, got); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/a", "/b"}, f.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestStubFetcherAutoBody(t *testing.T) {
	f := &StubFetcher{AutoBody: "<p>hi</p>"}
	var body string
	f.Fetch(context.Background(), "/a", func(b string, _ error) { body = b })

	if body != "<p>hi</p>" || f.Pending() != 0 {
		t.Errorf("body = %q, pending = %d", body, f.Pending())
	}
}

func TestStubSubmitter(t *testing.T) {
	s := &StubSubmitter{}
	var ids []string
	var errs []error
	done := func(resp SubmitResponse, err error) {
		ids = append(ids, resp.ID)
		errs = append(errs, err)
	}

	s.Submit(context.Background(), SubmitRequest{URL: "/api/users"}, done)
	s.Submit(context.Background(), SubmitRequest{URL: "/api/users"}, done)
	s.Accept("u-1")
	s.Reject(ErrSubmit)

	if s.Accept("u-2") {
		t.Error("Accept() with nothing pending should report false")
	}
	if diff := cmp.Diff([]string{"u-1", ""}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if errs[0] != nil || !errors.Is(errs[1], ErrSubmit) {
		t.Errorf("errs = %v", errs)
	}
	if n := len(s.Requests()); n != 2 {
		t.Errorf("Requests() = %d, want 2", n)
	}
}

func TestRecordingNotifier(t *testing.T) {
	n := &RecordingNotifier{}
	n.Notify(Flash{Level: FlashError, Markup: "a"})
	n.Notify(Flash{Level: FlashSuccess, Markup: "b"})

	if diff := cmp.Diff([]string{FlashError, FlashSuccess}, n.Levels()); diff != "" {
		t.Errorf("levels mismatch (-want +got):\n%s", diff)
	}
	if got := n.Flashes()[1].Markup; got != "b" {
		t.Errorf("second markup = %q, want b", got)
	}
}
