package accounts

import (
	"net/mail"
	"regexp"
	"strings"
)

// FormLevelKey holds messages that are not tied to one field.
const FormLevelKey = "__all__"

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

var usernamePattern = regexp.MustCompile(`^[\w.@+-]{1,30}$`)

// CreateForm is the decoded body of a create request.
type CreateForm struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// FieldErrors maps a field name to its messages.
type FieldErrors map[string][]string

func (e FieldErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

// ValidateCreate checks a create request the way the signup form does.
func ValidateCreate(values map[string]string, minPassword int, store *Store) (CreateForm, FieldErrors) {
	f := CreateForm{
		Username:  strings.TrimSpace(values["username"]),
		Email:     strings.TrimSpace(values["email"]),
		FirstName: strings.TrimSpace(values["first_name"]),
		LastName:  strings.TrimSpace(values["last_name"]),
		Password:  values["password"],
	}
	errs := FieldErrors{}

	switch {
	case f.Username == "":
		errs.add("username", "This field is required.")
	case !usernamePattern.MatchString(f.Username):
		errs.add("username", "Enter a valid username. This value may contain only letters, numbers and @/./+/-/_ characters.")
	case store != nil && store.UsernameTaken(f.Username):
		errs.add("username", "A user with that username already exists.")
	}

	if f.Email == "" {
		errs.add("email", "This field is required.")
	} else if addr, err := mail.ParseAddress(f.Email); err != nil || addr.Address != f.Email {
		errs.add("email", "Enter a valid email address.")
	}

	switch {
	case f.Password == "":
		errs.add("password", "This field is required.")
	case len(f.Password) < minPassword:
		errs.add("password", "This password is too short.")
	case len(f.Password) > maxPasswordBytes:
		errs.add("password", "This password is too long.")
	}
	if confirm, ok := values["password2"]; ok && confirm != f.Password {
		errs.add("password2", "The two password fields didn't match.")
	}

	if len(errs) == 0 {
		return f, nil
	}
	return f, errs
}

// ValidateUpdate checks the subset of fields present in an update request.
func ValidateUpdate(values map[string]string) (User, FieldErrors) {
	u := User{
		Username:  strings.TrimSpace(values["username"]),
		Email:     strings.TrimSpace(values["email"]),
		FirstName: strings.TrimSpace(values["first_name"]),
		LastName:  strings.TrimSpace(values["last_name"]),
	}
	errs := FieldErrors{}
	if u.Username != "" && !usernamePattern.MatchString(u.Username) {
		errs.add("username", "Enter a valid username.")
	}
	if u.Email != "" {
		if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
			errs.add("email", "Enter a valid email address.")
		}
	}
	if len(errs) == 0 {
		return u, nil
	}
	return u, errs
}
