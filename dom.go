package hxmodal

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Attribute names on the <api> marker inside a form fragment.
const (
	AttrHrefCreate = "href-create"
	AttrHrefUpdate = "href-update"
	AttrUserCreate = "user-create"
)

// ParseDocument parses page or fragment markup.
func ParseDocument(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return doc, nil
}

// APIReference holds the endpoint URLs advertised by a form fragment.
type APIReference struct {
	CreateURL string
	UpdateURL string
}

// ParseAPIReference reads href-create and href-update from the first <api>
// element in fragment.
func ParseAPIReference(fragment string) (APIReference, error) {
	doc, err := ParseDocument(fragment)
	if err != nil {
		return APIReference{}, fmt.Errorf("%w: %v", ErrInvalidFragment, err)
	}
	return APIReferenceFrom(doc.Selection)
}

// APIReferenceFrom reads the <api> marker below root.
func APIReferenceFrom(root *goquery.Selection) (APIReference, error) {
	api := root.Find("api").First()
	if api.Length() == 0 {
		return APIReference{}, fmt.Errorf("%w: missing <api> reference", ErrInvalidFragment)
	}
	ref := APIReference{
		CreateURL: strings.TrimSpace(api.AttrOr(AttrHrefCreate, "")),
		UpdateURL: strings.TrimSpace(api.AttrOr(AttrHrefUpdate, "")),
	}
	if ref.CreateURL == "" {
		return APIReference{}, fmt.Errorf("%w: <api> has no %s", ErrInvalidFragment, AttrHrefCreate)
	}
	return ref, nil
}

const fieldSelector = "input[name], select[name], textarea[name]"

// FieldNames lists the names of the form fields below root in document
// order, without duplicates. Buttons are not fields.
func FieldNames(root *goquery.Selection) []string {
	var names []string
	seen := make(map[string]struct{})
	root.Find(fieldSelector).Each(func(_ int, s *goquery.Selection) {
		if isButton(s) {
			return
		}
		name := strings.TrimSpace(s.AttrOr("name", ""))
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	})
	return names
}

// FormValues collects the current value of each named field below root.
// Unchecked checkboxes and radios are omitted.
func FormValues(root *goquery.Selection, names []string) map[string]string {
	values := make(map[string]string, len(names))
	for _, name := range names {
		fields := root.Find(fieldByName(name))
		fields.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if isButton(s) {
				return true
			}
			if v, ok := fieldValue(s); ok {
				values[name] = v
				return false
			}
			return true
		})
	}
	return values
}

// FillForm writes values into the named fields below root.
func FillForm(root *goquery.Selection, values map[string]string) {
	for name, value := range values {
		root.Find(fieldByName(name)).Each(func(_ int, s *goquery.Selection) {
			switch goquery.NodeName(s) {
			case "textarea":
				s.SetText(value)
			case "select":
				s.Find("option").Each(func(_ int, opt *goquery.Selection) {
					if optionValue(opt) == value {
						opt.SetAttr("selected", "selected")
					} else {
						opt.RemoveAttr("selected")
					}
				})
			default:
				switch strings.ToLower(s.AttrOr("type", "")) {
				case "checkbox", "radio":
					if s.AttrOr("value", "on") == value {
						s.SetAttr("checked", "checked")
					} else {
						s.RemoveAttr("checked")
					}
				default:
					s.SetAttr("value", value)
				}
			}
		})
	}
}

func fieldByName(name string) string {
	quoted := strings.ReplaceAll(name, `"`, `\"`)
	return fmt.Sprintf(`input[name="%[1]s"], select[name="%[1]s"], textarea[name="%[1]s"]`, quoted)
}

func fieldValue(s *goquery.Selection) (string, bool) {
	switch goquery.NodeName(s) {
	case "textarea":
		return s.Text(), true
	case "select":
		opt := s.Find("option[selected]").First()
		if opt.Length() == 0 {
			opt = s.Find("option").First()
		}
		if opt.Length() == 0 {
			return "", true
		}
		return optionValue(opt), true
	}
	switch strings.ToLower(s.AttrOr("type", "")) {
	case "checkbox", "radio":
		if _, checked := s.Attr("checked"); !checked {
			return "", false
		}
		return s.AttrOr("value", "on"), true
	}
	return s.AttrOr("value", ""), true
}

func optionValue(opt *goquery.Selection) string {
	if v, ok := opt.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(opt.Text())
}

func isButton(s *goquery.Selection) bool {
	if goquery.NodeName(s) != "input" {
		return false
	}
	switch strings.ToLower(s.AttrOr("type", "")) {
	case "submit", "button", "reset", "image":
		return true
	}
	return false
}
