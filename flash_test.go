package hxmodal

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestFlashLevelConstants(t *testing.T) {
	if FlashSuccess != "success" {
		t.Errorf("FlashSuccess = %q, want %q", FlashSuccess, "success")
	}
	if FlashError != "error" {
		t.Errorf("FlashError = %q, want %q", FlashError, "error")
	}
	if FlashWarning != "warning" {
		t.Errorf("FlashWarning = %q, want %q", FlashWarning, "warning")
	}
	if FlashInfo != "info" {
		t.Errorf("FlashInfo = %q, want %q", FlashInfo, "info")
	}
}

func TestRenderFlash(t *testing.T) {
	result := RenderFlash(Flash{Level: FlashSuccess, Markup: "Item saved successfully"})

	if !strings.Contains(result, `class="toast toast-success"`) {
		t.Error("Missing toast-success class")
	}
	if !strings.Contains(result, `data-auto-dismiss="3000"`) {
		t.Error("Missing data-auto-dismiss")
	}
	if !strings.Contains(result, "Item saved successfully") {
		t.Error("Missing flash message")
	}
}

func TestRenderFlashEscapesText(t *testing.T) {
	result := RenderFlash(Flash{Level: FlashError, Markup: `Tom & "Jerry"`})

	if !strings.Contains(result, "Tom &amp; &#34;Jerry&#34;") {
		t.Errorf("message not escaped: %s", result)
	}
}

func TestRenderFlashEscapesAngleBracketText(t *testing.T) {
	result := RenderFlash(Flash{Level: FlashError, Markup: "a < b > c"})

	if !strings.Contains(result, "a &lt; b &gt; c") {
		t.Errorf("plain text not escaped: %s", result)
	}
}

func TestRenderFlashSanitizesMarkup(t *testing.T) {
	result := RenderFlash(Flash{Level: FlashInfo, Markup: `<div class="alert-box">hi<script>alert(1)</script></div>`, Rendered: true})

	if strings.Contains(result, "<script>") {
		t.Errorf("script not stripped: %s", result)
	}
	if !strings.Contains(result, `<div class="alert-box">hi`) {
		t.Errorf("allowed markup lost: %s", result)
	}
}

func TestToastNotifier(t *testing.T) {
	doc, err := ParseDocument(`<div id="toasts"></div>`)
	if err != nil {
		t.Fatal(err)
	}
	n := NewToastNotifier(doc.Find("#toasts"))

	n.Notify(Flash{Level: FlashError, Markup: "Unable to retrieve create user form"})
	n.Notify(Flash{Level: FlashSuccess, Markup: "done"})

	toasts := n.Toasts()
	if toasts.Length() != 2 {
		t.Fatalf("toasts = %d, want 2", toasts.Length())
	}
	if !toasts.First().HasClass("toast-error") {
		t.Error("first toast should be an error")
	}
	if got := toasts.Last().Text(); got != "done" {
		t.Errorf("last toast text = %q, want %q", got, "done")
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogNotifier{Logger: logger}.Notify(Flash{Level: FlashError, Markup: "broken"})

	out := buf.String()
	if !strings.Contains(out, "level=ERROR") {
		t.Errorf("log level not error: %s", out)
	}
	if !strings.Contains(out, "message=broken") {
		t.Errorf("message not logged: %s", out)
	}
}
