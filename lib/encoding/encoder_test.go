package encoding

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewEncoder(t *testing.T) {
	// Should work with any key length (derives 32-byte key)
	if _, err := NewEncoder([]byte("short")); err != nil {
		t.Fatalf("NewEncoder with short key failed: %v", err)
	}
	if _, err := NewEncoder([]byte("this-is-a-32-byte-key-for-aes!!!")); err != nil {
		t.Fatalf("NewEncoder with 32-byte key failed: %v", err)
	}
	if _, err := NewEncoder(nil); err == nil {
		t.Fatal("NewEncoder with empty key should fail")
	}
}

func TestRoundTrip(t *testing.T) {
	for _, sensitive := range []bool{false, true} {
		name := "signed"
		if sensitive {
			name = "encrypted"
		}
		t.Run(name, func(t *testing.T) {
			enc, err := NewEncoder([]byte("test-key"))
			if err != nil {
				t.Fatalf("NewEncoder failed: %v", err)
			}

			encoded, issued, err := enc.Issue("form-1", "user-create", time.Hour, sensitive)
			if err != nil {
				t.Fatalf("Issue failed: %v", err)
			}
			if strings.ContainsAny(encoded, "+/=") {
				t.Errorf("ticket %q is not URL-safe", encoded)
			}

			got, err := enc.Decode(encoded, sensitive)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got.FormID != "form-1" || got.Purpose != "user-create" {
				t.Errorf("Decode() = %+v", got)
			}
			if !got.Expires.Equal(issued.Expires) {
				t.Errorf("Expires = %v, want %v", got.Expires, issued.Expires)
			}
		})
	}
}

func TestSignedTamperDetection(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))
	encoded, _, err := enc.Issue("form-1", "user-create", time.Hour, false)
	if err != nil {
		t.Fatal(err)
	}

	other, _ := NewEncoder([]byte("other-key"))
	if _, err := other.Decode(encoded, false); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Decode with wrong key error = %v, want ErrSignatureInvalid", err)
	}

	payload, sig, _ := strings.Cut(encoded, ".")
	forged := "A" + payload[1:] + "." + sig
	if _, err := enc.Decode(forged, false); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Decode of a modified payload error = %v, want ErrSignatureInvalid", err)
	}

	if _, err := enc.Decode("no-signature", false); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Decode without signature error = %v, want ErrInvalidFormat", err)
	}
}

func TestEncryptedTamperDetection(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))
	encoded, _, err := enc.Issue("form-1", "user-create", time.Hour, true)
	if err != nil {
		t.Fatal(err)
	}

	other, _ := NewEncoder([]byte("other-key"))
	if _, err := other.Decode(encoded, true); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("Decode with wrong key error = %v, want ErrDecryptFailed", err)
	}
	if _, err := enc.Decode("AAAA", true); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Decode of short ciphertext error = %v, want ErrInvalidFormat", err)
	}
}

func TestExpiry(t *testing.T) {
	enc, _ := NewEncoder([]byte("test-key"))
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	enc.now = func() time.Time { return start }

	encoded, _, err := enc.Issue("form-1", "user-create", time.Minute, false)
	if err != nil {
		t.Fatal(err)
	}

	enc.now = func() time.Time { return start.Add(30 * time.Second) }
	if _, err := enc.Decode(encoded, false); err != nil {
		t.Errorf("Decode before expiry error = %v", err)
	}

	enc.now = func() time.Time { return start.Add(2 * time.Minute) }
	got, err := enc.Decode(encoded, false)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("Decode after expiry error = %v, want ErrExpired", err)
	}
	if got.FormID != "form-1" {
		t.Errorf("expired ticket should still carry its payload, got %+v", got)
	}

	forever, _, _ := enc.Issue("form-2", "user-create", 0, false)
	enc.now = func() time.Time { return start.Add(24 * 365 * time.Hour) }
	if _, err := enc.Decode(forever, false); err != nil {
		t.Errorf("Decode of ticket without expiry error = %v", err)
	}
}
