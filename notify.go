package hxmodal

import (
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"
)

// Template renders markup from named values. Notification templates receive
// "msg"; field-error templates receive "field", "errors" and "msg".
type Template func(data map[string]any) (string, error)

// RenderNotification returns message rendered through tmpl, or message
// unchanged when tmpl is nil or fails.
func RenderNotification(message string, tmpl Template) string {
	out, _ := renderNotification(message, tmpl)
	return out
}

// NotificationFlash renders message through tmpl into a flash of level.
func NotificationFlash(level, message string, tmpl Template) Flash {
	out, rendered := renderNotification(message, tmpl)
	return Flash{Level: level, Markup: out, Rendered: rendered}
}

func renderNotification(message string, tmpl Template) (string, bool) {
	if tmpl == nil {
		return message, false
	}
	out, err := tmpl(map[string]any{"msg": message})
	if err != nil {
		return message, false
	}
	return out, true
}

var (
	markupPolicyOnce sync.Once
	markupPolicy     *bluemonday.Policy
)

// markupSanitizer is the policy applied to every template output before it
// reaches the document.
func markupSanitizer() *bluemonday.Policy {
	markupPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class", "role").Globally()
		policy.AllowDataAttributes()
		markupPolicy = policy
	})
	return markupPolicy
}

// CompileTemplate compiles a Django-syntax template such as
//
//	<div class="alert-box">{{ msg }}</div>
//
// Output is sanitized, so templates cannot inject scripts into the page.
func CompileTemplate(src string) (Template, error) {
	tpl, err := pongo2.FromString(strings.TrimSpace(src))
	if err != nil {
		return nil, fmt.Errorf("%w: compile template: %v", ErrConfiguration, err)
	}
	return func(data map[string]any) (string, error) {
		out, err := tpl.Execute(pongo2.Context(data))
		if err != nil {
			return "", fmt.Errorf("execute template: %w", err)
		}
		return markupSanitizer().Sanitize(out), nil
	}, nil
}

// TemplateFrom compiles the template held by the element matching selector,
// typically a <script type="text/template"> block. A missing element yields a
// nil Template and no error.
func TemplateFrom(root *goquery.Selection, selector string) (Template, error) {
	el := root.Find(selector).First()
	if el.Length() == 0 {
		return nil, nil
	}
	src, err := el.Html()
	if err != nil {
		return nil, fmt.Errorf("%w: read template %s: %v", ErrConfiguration, selector, err)
	}
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	return CompileTemplate(src)
}
