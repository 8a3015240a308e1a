package hxmodal

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element hooks read from the page by Bootstrap.
const (
	ModalContentSelector         = "#modal-content"
	NotificationTemplateSelector = "#template-notification"
	FormErrorTemplateSelector    = "#template-formerror"
	ToastContainerSelector       = "#toasts"

	// AttrSuccessMessage on the page's <api> element overrides the
	// account-created message.
	AttrSuccessMessage = "data-success-message"
)

// Bootstrap builds a Page from page markup.
//
// The page advertises the form URL as <api user-create="...">, optionally
// with a data-success-message attribute. The dialog is #modal-content and
// the optional templates are #template-notification and #template-formerror.
// When the page has a #toasts container, notifications are appended there.
// pageOpts are applied last and override anything read from the document.
func Bootstrap(doc *goquery.Document, modalOpts []ModalOption, pageOpts ...PageOption) (*Page, error) {
	root := doc.Selection

	notification, err := TemplateFrom(root, NotificationTemplateSelector)
	if err != nil {
		return nil, err
	}
	formError, err := TemplateFrom(root, FormErrorTemplateSelector)
	if err != nil {
		return nil, err
	}

	api := root.Find("api").First()
	opts := []PageOption{
		WithFormURL(api.AttrOr(AttrUserCreate, "")),
		WithSuccessMessage(api.AttrOr(AttrSuccessMessage, "")),
		WithNotificationTemplate(notification),
		WithFormErrorTemplate(formError),
	}
	if target := root.Find(ModalContentSelector).First(); target.Length() > 0 {
		opts = append(opts, WithModal(NewModal(target, modalOpts...)))
	}
	if toasts := root.Find(ToastContainerSelector).First(); toasts.Length() > 0 {
		opts = append(opts, WithNotifier(NewToastNotifier(toasts)))
	}
	return NewPage(append(opts, pageOpts...)...), nil
}

// BootstrapMarkup parses markup and calls Bootstrap. The parsed document is
// returned so callers can inspect the page after interactions.
func BootstrapMarkup(markup string, modalOpts []ModalOption, pageOpts ...PageOption) (*Page, *goquery.Document, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, nil, fmt.Errorf("%w: empty page markup", ErrConfiguration)
	}
	doc, err := ParseDocument(markup)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	page, err := Bootstrap(doc, modalOpts, pageOpts...)
	if err != nil {
		return nil, nil, err
	}
	return page, doc, nil
}
