package hxmodal

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultErrorSelector matches the elements that receive field errors.
const DefaultErrorSelector = "small.error"

// AttrErrorField names the field an error element reports on.
const AttrErrorField = "data-field"

// RemoveFormErrors empties every error element below root and clears the
// invalid markers left on fields by DisplayFormErrors.
func RemoveFormErrors(root *goquery.Selection, selector string) {
	if selector == "" {
		selector = DefaultErrorSelector
	}
	root.Find(selector).Each(func(_ int, el *goquery.Selection) {
		el.Empty()
	})
	root.Find(`[aria-invalid="true"]`).RemoveAttr("aria-invalid")
}

// DisplayFormErrors renders errs into the error elements below root.
//
// An error element is associated with a field by its data-field attribute,
// or else with the first named field inside its parent. Messages are
// normalised (trimmed, de-duplicated, order kept) and rendered with tmpl, or
// as escaped text when tmpl is nil.
//
// It returns the payload entries that matched no element, so the caller can
// surface them elsewhere.
func DisplayFormErrors(root *goquery.Selection, errs map[string][]string, tmpl Template, selector string) map[string][]string {
	if selector == "" {
		selector = DefaultErrorSelector
	}

	placed := make(map[string]bool, len(errs))
	root.Find(selector).Each(func(_ int, el *goquery.Selection) {
		field := errorFieldFor(el)
		if field == "" {
			return
		}
		messages := normalizeMessages(errs[field])
		if len(messages) == 0 {
			return
		}
		el.SetHtml(renderFieldError(field, messages, tmpl))
		placed[field] = true
		if field != FormLevelKey {
			root.Find(fieldByName(field)).SetAttr("aria-invalid", "true")
		}
	})

	var unplaced map[string][]string
	for field, messages := range errs {
		messages = normalizeMessages(messages)
		if placed[field] || len(messages) == 0 {
			continue
		}
		if unplaced == nil {
			unplaced = make(map[string][]string)
		}
		unplaced[field] = messages
	}
	return unplaced
}

func errorFieldFor(el *goquery.Selection) string {
	if field, ok := el.Attr(AttrErrorField); ok {
		return strings.TrimSpace(field)
	}
	named := el.Parent().Find(fieldSelector).First()
	return strings.TrimSpace(named.AttrOr("name", ""))
}

func renderFieldError(field string, messages []string, tmpl Template) string {
	if tmpl != nil {
		out, err := tmpl(map[string]any{
			"field":  field,
			"errors": messages,
			"msg":    strings.Join(messages, " "),
		})
		if err == nil {
			return out
		}
	}
	escaped := make([]string, len(messages))
	for i, m := range messages {
		escaped[i] = html.EscapeString(m)
	}
	return strings.Join(escaped, "<br>")
}

// normalizeMessages trims whitespace and removes empty and duplicate
// messages while preserving order.
func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
