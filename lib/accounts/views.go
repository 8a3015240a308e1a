package accounts

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Routes served by the account server.
const (
	formURLPath  = "/accounts/form"
	usersAPIPath = "/api/users"
)

// PageData is the model of the front page.
type PageData struct {
	Title          string
	FormURL        string
	SuccessMessage string
}

// FragmentData is the model of the create-user form fragment.
type FragmentData struct {
	CreateURL string
	UpdateURL string
	Fields    []FormField
}

// FormField describes one input of the create-user form.
type FormField struct {
	Name     string
	Label    string
	Type     string
	Required bool
}

// createFields lists the inputs of the signup form in display order.
var createFields = []FormField{
	{Name: "username", Label: "Username", Type: "text", Required: true},
	{Name: "email", Label: "Email", Type: "email", Required: true},
	{Name: "first_name", Label: "First name", Type: "text"},
	{Name: "last_name", Label: "Last name", Type: "text"},
	{Name: "password", Label: "Password", Type: "password", Required: true},
	{Name: "password2", Label: "Password (again)", Type: "password", Required: true},
}

// notificationTemplate and formErrorTemplate are Django-syntax templates
// compiled by the page script.
const (
	notificationTemplate = `<div class="alert-box radius" data-alert>{{ msg }}<a href="#" class="close">&times;</a></div>`
	formErrorTemplate    = `{% for e in errors %}<span class="error-msg">{{ e }}</span>{% endfor %}`
)

// Page renders the front page.
func Page(data PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\">")
		fmt.Fprintf(&b, "<title>%s</title>", templ.EscapeString(data.Title))
		b.WriteString("</head><body>")
		fmt.Fprintf(&b, `<api user-create="%s"`, templ.EscapeString(data.FormURL))
		if data.SuccessMessage != "" {
			fmt.Fprintf(&b, ` data-success-message="%s"`, templ.EscapeString(data.SuccessMessage))
		}
		b.WriteString("></api>")
		fmt.Fprintf(&b, `<header><h1>%s</h1>`, templ.EscapeString(data.Title))
		b.WriteString(`<button id="btn-create-account" class="button">Create account</button></header>`)
		b.WriteString(`<div id="modal-content" class="reveal-modal" data-reveal aria-hidden="true"></div>`)
		b.WriteString(`<div id="toasts" aria-live="polite"></div>`)
		fmt.Fprintf(&b, `<script type="text/template" id="template-notification">%s</script>`, notificationTemplate)
		fmt.Fprintf(&b, `<script type="text/template" id="template-formerror">%s</script>`, formErrorTemplate)
		b.WriteString("</body></html>")
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// Fragment renders the create-user form loaded into the modal.
func Fragment(data FragmentData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<api href-create="%s" href-update="%s"></api>`,
			templ.EscapeString(data.CreateURL), templ.EscapeString(data.UpdateURL))
		b.WriteString(`<h2>Create an account</h2><div class="formcontent"><form novalidate>`)
		for _, f := range data.Fields {
			name := templ.EscapeString(f.Name)
			b.WriteString(`<div class="row">`)
			fmt.Fprintf(&b, `<label for="id_%s">%s</label>`, name, templ.EscapeString(f.Label))
			fmt.Fprintf(&b, `<input id="id_%s" type="%s" name="%s"`, name, templ.EscapeString(f.Type), name)
			if f.Required {
				b.WriteString(" required")
			}
			b.WriteString(">")
			fmt.Fprintf(&b, `<small class="error" data-field="%s"></small>`, name)
			b.WriteString("</div>")
		}
		fmt.Fprintf(&b, `<small class="error" data-field="%s"></small>`, FormLevelKey)
		b.WriteString(`<input type="submit" class="button" value="Create account">`)
		b.WriteString(`</form></div><a class="close-reveal-modal" aria-label="Close">&#215;</a>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
