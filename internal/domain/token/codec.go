// Package token implements the reversible identifier codec used to hide
// numeric database keys from the API surface. Tokens are AES-GCM sealed and
// URL-safe; any token not produced under the active key fails to decode.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"

	"github.com/go-faster/errors"
)

// ErrInvalidToken is returned when a token is malformed, was issued under a
// different key, or has been tampered with. Callers must treat it as a bad
// identifier, never as not-found.
var ErrInvalidToken = errors.New("invalid identifier token")

// KeySize is the required secret key length in bytes (AES-256).
const KeySize = 32

// idSize is the sealed plaintext length: one big-endian int64.
const idSize = 8

// Codec encodes and decodes numeric identifiers under a fixed secret key.
// It holds no mutable state and is safe for concurrent use. Construct one
// at startup and inject it; rotating the key invalidates all outstanding
// tokens.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec creates a Codec from a 32-byte secret key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, errors.Errorf("token key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "create cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "create gcm")
	}

	return &Codec{aead: aead}, nil
}

// Encode seals id into an opaque URL-safe token. The nonce is random, so
// repeated calls with the same id yield different tokens that all decode to
// the same value.
func (c *Codec) Encode(id int64) string {
	nonceSize := c.aead.NonceSize()
	buf := make([]byte, nonceSize, nonceSize+idSize+c.aead.Overhead())
	rand.Read(buf)

	plain := binary.BigEndian.AppendUint64(nil, uint64(id))
	sealed := c.aead.Seal(buf, buf[:nonceSize], plain, nil)

	return base64.RawURLEncoding.EncodeToString(sealed)
}

// Decode recovers the identifier sealed in tok. It returns ErrInvalidToken
// for anything that was not produced by Encode under the same key.
func (c *Codec) Decode(tok string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		return 0, ErrInvalidToken
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize+idSize+c.aead.Overhead() {
		return 0, ErrInvalidToken
	}

	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return 0, ErrInvalidToken
	}
	if len(plain) != idSize {
		return 0, ErrInvalidToken
	}

	return int64(binary.BigEndian.Uint64(plain)), nil
}
