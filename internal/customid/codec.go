// Package customid packs small pieces of state into component custom ids.
//
// A custom id produced here looks like "prefix:payload.sig": payload is the
// base64url msgpack encoding of a value and sig is a truncated HMAC-SHA256
// over prefix and payload, so state round-trips through Discord without a
// server-side lookup and cannot be forged by a client.
package customid

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/lojasmm/discordui/internal/components"
)

var (
	ErrInvalidFormat    = errors.New("customid: invalid format")
	ErrSignatureInvalid = errors.New("customid: signature verification failed")
	ErrTooLong          = errors.New("customid: encoded id exceeds 100 characters")
)

const sigLen = 8

// Codec signs and verifies custom ids.
type Codec struct {
	key []byte
}

// NewCodec returns a codec for key. Keys shorter than 32 bytes are stretched
// with SHA-256.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) == 0 {
		return nil, errors.New("customid: empty key")
	}
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}
	return &Codec{key: key}, nil
}

// Encode returns prefix:payload.sig for v.
func (c *Codec) Encode(prefix string, v any) (string, error) {
	if prefix == "" || strings.ContainsAny(prefix, ":.") {
		return "", fmt.Errorf("customid: prefix %q must be non-empty and free of ':' and '.'", prefix)
	}
	packed, err := msgpack.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("customid: encoding state: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(packed)
	id := prefix + ":" + payload + "." + base64.RawURLEncoding.EncodeToString(c.sign(prefix, payload))
	if len(id) > components.MaxCustomIDLength {
		return "", fmt.Errorf("%w: %d characters", ErrTooLong, len(id))
	}
	return id, nil
}

// Decode verifies customID and unpacks its state into v.
func (c *Codec) Decode(customID string, v any) error {
	prefix, rest, ok := strings.Cut(customID, ":")
	if !ok || prefix == "" {
		return ErrInvalidFormat
	}
	payload, sig, ok := strings.Cut(rest, ".")
	if !ok {
		return ErrInvalidFormat
	}
	gotSig, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return ErrInvalidFormat
	}
	if !hmac.Equal(gotSig, c.sign(prefix, payload)) {
		return ErrSignatureInvalid
	}
	packed, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return ErrInvalidFormat
	}
	if err := msgpack.Unmarshal(packed, v); err != nil {
		return fmt.Errorf("customid: decoding state: %w", err)
	}
	return nil
}

func (c *Codec) sign(prefix, payload string) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(prefix))
	mac.Write([]byte{':'})
	mac.Write([]byte(payload))
	return mac.Sum(nil)[:sigLen]
}

// Prefix returns the part of customID before the first ':', or the whole id
// when it has none.
func Prefix(customID string) string {
	prefix, _, _ := strings.Cut(customID, ":")
	return prefix
}
