package hxmodal

import (
	"context"
	"html"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Flash levels for toast notifications.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// Flash is a one-time notification shown to the user.
//
// Rendered reports that Markup is template output and holds HTML. Otherwise
// Markup is plain text and RenderFlash escapes it.
type Flash struct {
	Level    string
	Markup   string
	Rendered bool
}

// Notifier displays flashes. The page reports fetch failures and
// unplaceable field errors through it, and the account-created message.
type Notifier interface {
	Notify(f Flash)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(f Flash)

// Notify calls fn(f).
func (fn NotifierFunc) Notify(f Flash) {
	fn(f)
}

// RenderFlash renders a toast element for f.
//
// The data-auto-dismiss attribute is read by the page script, which removes
// the toast after the given delay in milliseconds.
func RenderFlash(f Flash) string {
	var sb strings.Builder
	sb.WriteString(`<div class="toast toast-`)
	sb.WriteString(html.EscapeString(f.Level))
	sb.WriteString(`" data-auto-dismiss="3000">`)
	if f.Rendered {
		sb.WriteString(markupSanitizer().Sanitize(f.Markup))
	} else {
		sb.WriteString(html.EscapeString(f.Markup))
	}
	sb.WriteString(`</div>`)
	return sb.String()
}

// ToastNotifier appends toasts into a container element of the page,
// normally #toasts.
type ToastNotifier struct {
	container *goquery.Selection
}

// NewToastNotifier creates a notifier writing into container.
func NewToastNotifier(container *goquery.Selection) *ToastNotifier {
	return &ToastNotifier{container: container}
}

// Notify appends f to the container.
func (n *ToastNotifier) Notify(f Flash) {
	n.container.AppendHtml(RenderFlash(f))
}

// Toasts returns the rendered toast elements currently in the container.
func (n *ToastNotifier) Toasts() *goquery.Selection {
	return n.container.Find(".toast")
}

// LogNotifier writes flashes to a structured logger. Pages without a toast
// container fall back to it so no message is lost.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs f at a level matching its flash level.
func (n LogNotifier) Notify(f Flash) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch f.Level {
	case FlashError:
		level = slog.LevelError
	case FlashWarning:
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "notification", "level", f.Level, "message", f.Markup)
}
