package accounts

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/crypto/bcrypt"
)

func TestValidateCreate(t *testing.T) {
	store := NewStore(bcrypt.MinCost)
	if _, err := store.Create(User{Username: "taken"}, "password1"); err != nil {
		t.Fatal(err)
	}

	valid := map[string]string{
		"username":   "alice",
		"email":      "alice@example.com",
		"first_name": " Alice ",
		"password":   "password1",
		"password2":  "password1",
	}
	with := func(k, v string) map[string]string {
		out := make(map[string]string, len(valid))
		for key, val := range valid {
			out[key] = val
		}
		out[k] = v
		return out
	}

	tests := []struct {
		name   string
		values map[string]string
		want   FieldErrors
	}{
		{name: "valid", values: valid},
		{
			name:   "missing username",
			values: with("username", "  "),
			want:   FieldErrors{"username": {"This field is required."}},
		},
		{
			name:   "bad username",
			values: with("username", "has space"),
			want:   FieldErrors{"username": {"Enter a valid username. This value may contain only letters, numbers and @/./+/-/_ characters."}},
		},
		{
			name:   "taken username",
			values: with("username", "TAKEN"),
			want:   FieldErrors{"username": {"A user with that username already exists."}},
		},
		{
			name:   "bad email",
			values: with("email", "not-an-email"),
			want:   FieldErrors{"email": {"Enter a valid email address."}},
		},
		{
			name:   "display name email",
			values: with("email", "Alice <alice@example.com>"),
			want:   FieldErrors{"email": {"Enter a valid email address."}},
		},
		{
			name:   "short password",
			values: map[string]string{"username": "alice", "email": "a@example.com", "password": "short", "password2": "short"},
			want:   FieldErrors{"password": {"This password is too short."}},
		},
		{
			name:   "long password",
			values: map[string]string{"username": "alice", "email": "a@example.com", "password": strings.Repeat("x", 73)},
			want:   FieldErrors{"password": {"This password is too long."}},
		},
		{
			name:   "mismatched confirmation",
			values: with("password2", "password2"),
			want:   FieldErrors{"password2": {"The two password fields didn't match."}},
		},
		{
			name:   "empty body",
			values: map[string]string{},
			want: FieldErrors{
				"username": {"This field is required."},
				"email":    {"This field is required."},
				"password": {"This field is required."},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := ValidateCreate(tt.values, 8, store)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ValidateCreate() errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateCreateTrims(t *testing.T) {
	form, errs := ValidateCreate(map[string]string{
		"username":   " alice ",
		"email":      "alice@example.com",
		"first_name": " Alice ",
		"password":   " padded pass ",
	}, 8, nil)
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := CreateForm{Username: "alice", Email: "alice@example.com", FirstName: "Alice", Password: " padded pass "}
	if diff := cmp.Diff(want, form); diff != "" {
		t.Errorf("form mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateUpdate(t *testing.T) {
	u, errs := ValidateUpdate(map[string]string{"last_name": "Liddell"})
	if errs != nil {
		t.Fatalf("partial update rejected: %v", errs)
	}
	if u.LastName != "Liddell" || u.Username != "" {
		t.Errorf("ValidateUpdate() = %+v", u)
	}

	_, errs = ValidateUpdate(map[string]string{"username": "bad name", "email": "nope"})
	want := FieldErrors{
		"username": {"Enter a valid username."},
		"email":    {"Enter a valid email address."},
	}
	if diff := cmp.Diff(want, errs); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}
