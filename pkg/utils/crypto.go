package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/maheshrc27/socialsync/internal/apperr"
)

// EnvelopePrefix marks a value produced by Cipher.Encrypt. The full format is
// enc.v1:<base64 iv>:<base64 ciphertext>:<base64 tag>.
const EnvelopePrefix = "enc.v1:"

const (
	ivSize  = 12
	tagSize = 16
)

var base64KeyPattern = regexp.MustCompile(`^[A-Za-z0-9+/=]+$`)

// Cipher seals stored provider credentials with AES-256-GCM.
type Cipher struct {
	aead cipher.AEAD
}

func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, apperr.Encryption("init", errors.New("data encryption key is not set"))
	}

	block, err := aes.NewCipher(DeriveKey(secret))
	if err != nil {
		slog.Info(err.Error())
		return nil, apperr.Encryption("init", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		slog.Info(err.Error())
		return nil, apperr.Encryption("init", err)
	}

	return &Cipher{aead: aead}, nil
}

// DeriveKey turns the configured secret into a 32-byte key. Anything that looks
// like base64 and is at least 44 characters long is decoded and used only when
// it yields exactly 32 bytes; a 64-character hex key therefore lands in the
// base64 branch first and, decoding to 48 bytes, is hashed like any other
// string. Stored envelopes were produced under this rule.
func DeriveKey(secret string) []byte {
	if base64KeyPattern.MatchString(secret) && len(secret) >= 44 {
		if key, err := decodeLenientBase64(secret); err == nil && len(key) == 32 {
			return key
		}
	}

	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// decodeLenientBase64 stops at the first padding character.
func decodeLenientBase64(s string) ([]byte, error) {
	if i := strings.IndexByte(s, '='); i >= 0 {
		s = s[:i]
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EnvelopePrefix)
}

// Encrypt returns the envelope for plaintext. Values that already carry the
// envelope prefix are returned unchanged, so a plaintext that merely starts
// with "enc.v1:" does not round-trip: Decrypt treats it as an envelope and
// fails. Provider tokens never start with that prefix.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if IsEncrypted(plaintext) {
		return plaintext, nil
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		slog.Info(err.Error())
		return "", apperr.Encryption("encrypt", err)
	}

	// Seal appends the tag to the ciphertext
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return EnvelopePrefix +
		base64.StdEncoding.EncodeToString(iv) + ":" +
		base64.StdEncoding.EncodeToString(ct) + ":" +
		base64.StdEncoding.EncodeToString(tag), nil
}

// EncryptIfPresent leaves empty values empty so absent tokens stay absent.
func (c *Cipher) EncryptIfPresent(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return c.Encrypt(plaintext)
}

// Decrypt opens an envelope. Values without the prefix are legacy plaintext and
// are returned as-is; a prefixed value that is malformed or fails tag
// verification is an EncryptionError.
func (c *Cipher) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}

	parts := strings.Split(strings.TrimPrefix(value, EnvelopePrefix), ":")
	if len(parts) != 3 {
		return "", apperr.Encryption("decrypt", errors.New("malformed encrypted payload"))
	}

	iv, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", apperr.Encryption("decrypt iv", err)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", apperr.Encryption("decrypt ciphertext", err)
	}
	tag, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", apperr.Encryption("decrypt tag", err)
	}

	if len(iv) != ivSize || len(tag) != tagSize {
		return "", apperr.Encryption("decrypt", errors.New("invalid iv or tag length"))
	}

	plaintext, err := c.aead.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		slog.Info(err.Error())
		return "", apperr.Encryption("decrypt", err)
	}

	return string(plaintext), nil
}
