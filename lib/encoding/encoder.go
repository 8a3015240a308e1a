// Package encoding issues and verifies form tickets.
//
// A ticket binds an account-creation request to the form fragment it was
// issued with. The server embeds it in the fragment's href-create URL and
// rejects create requests whose ticket is missing, forged or expired.
package encoding

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Ticket errors.
var (
	ErrInvalidFormat    = errors.New("encoding: invalid ticket format")
	ErrSignatureInvalid = errors.New("encoding: ticket signature invalid")
	ErrDecryptFailed    = errors.New("encoding: ticket decryption failed")
	ErrExpired          = errors.New("encoding: ticket expired")
)

// Ticket is the payload carried by an issued form.
type Ticket struct {
	FormID   string    `msgpack:"f"`
	Purpose  string    `msgpack:"p"`
	IssuedAt time.Time `msgpack:"i"`
	Expires  time.Time `msgpack:"e"`
}

// Expired reports whether the ticket is past its expiry at now. A zero
// expiry never expires.
func (t Ticket) Expired(now time.Time) bool {
	return !t.Expires.IsZero() && now.After(t.Expires)
}

// Encoder handles encoding and decoding of tickets.
// It supports two modes:
//   - Signed (default): Base64 + HMAC signature - visible but tamper-proof
//   - Encrypted: AES-256-GCM - fully opaque
type Encoder struct {
	key []byte
	gcm cipher.AEAD
	now func() time.Time
}

// NewEncoder creates a new encoder with the given key.
// Keys shorter than 32 bytes are stretched with SHA-256.
func NewEncoder(key []byte) (*Encoder, error) {
	if len(key) == 0 {
		return nil, errors.New("encoding: empty key")
	}
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}

	block, err := aes.NewCipher(key[:32])
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Encoder{
		key: key,
		gcm: gcm,
		now: time.Now,
	}, nil
}

// Issue creates a ticket for formID valid for ttl and encodes it.
func (e *Encoder) Issue(formID, purpose string, ttl time.Duration, sensitive bool) (string, Ticket, error) {
	now := e.now().UTC()
	t := Ticket{FormID: formID, Purpose: purpose, IssuedAt: now}
	if ttl > 0 {
		t.Expires = now.Add(ttl)
	}
	s, err := e.Encode(t, sensitive)
	return s, t, err
}

// Encode serializes a ticket. If sensitive is true, the data is encrypted;
// otherwise it's signed.
func (e *Encoder) Encode(t Ticket, sensitive bool) (string, error) {
	packed, err := msgpack.Marshal(&t)
	if err != nil {
		return "", fmt.Errorf("encoding: marshal ticket: %w", err)
	}

	if sensitive {
		return e.encrypt(packed)
	}
	return e.sign(packed), nil
}

// Decode verifies and deserializes a ticket, rejecting expired ones.
func (e *Encoder) Decode(encoded string, sensitive bool) (Ticket, error) {
	var packed []byte
	var err error

	if sensitive {
		packed, err = e.decrypt(encoded)
	} else {
		packed, err = e.verify(encoded)
	}
	if err != nil {
		return Ticket{}, err
	}

	var t Ticket
	if err := msgpack.Unmarshal(packed, &t); err != nil {
		return Ticket{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if t.Expired(e.now()) {
		return t, ErrExpired
	}
	return t, nil
}

// sign creates a signed (but visible) encoding: base64.signature
func (e *Encoder) sign(data []byte) string {
	b64 := base64.RawURLEncoding.EncodeToString(data)
	mac := hmac.New(sha256.New, e.key)
	mac.Write(data)
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:16]) // 16 bytes = 128 bits
	return b64 + "." + sig
}

// verify checks the signature and returns the payload.
func (e *Encoder) verify(encoded string) ([]byte, error) {
	payload, sigPart, ok := strings.Cut(encoded, ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidFormat)
	}

	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	mac := hmac.New(sha256.New, e.key)
	mac.Write(data)
	if !hmac.Equal(sig, mac.Sum(nil)[:16]) {
		return nil, ErrSignatureInvalid
	}

	return data, nil
}

// encrypt creates an encrypted encoding using AES-256-GCM
func (e *Encoder) encrypt(data []byte) (string, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := e.gcm.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// decrypt decodes and decrypts an encrypted string
func (e *Encoder) decrypt(encoded string) ([]byte, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	if len(ciphertext) < e.gcm.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrInvalidFormat)
	}

	nonce := ciphertext[:e.gcm.NonceSize()]
	ciphertext = ciphertext[e.gcm.NonceSize():]

	data, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return data, nil
}
