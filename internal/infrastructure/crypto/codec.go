package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/nonfatal"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

const (
	keySize       = 32
	minSecretSize = 16
	keyInfo       = "pfcontrol-field-encryption"
)

var (
	ErrWeakSecret        = fmt.Errorf("encryption secret must be at least %d bytes", minSecretSize)
	ErrEmptyEnvelope     = errors.New("empty envelope")
	ErrMalformedEnvelope = errors.New("malformed envelope")
)

// Codec seals JSON values with AES-256-GCM.
type Codec struct {
	aead   cipher.AEAD
	logger *zap.Logger
}

func NewCodec(secret string, logger *zap.Logger) (*Codec, error) {
	if len(secret) < minSecretSize {
		return nil, ErrWeakSecret
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}

	return &Codec{aead: aead, logger: logger}, nil
}

func (c *Codec) Encrypt(v any) (*Envelope, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	iv := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	sealed := c.aead.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - c.aead.Overhead()

	return &Envelope{
		IV:      hex.EncodeToString(iv),
		Data:    hex.EncodeToString(sealed[:tagStart]),
		AuthTag: hex.EncodeToString(sealed[tagStart:]),
	}, nil
}

func (c *Codec) Decrypt(env *Envelope, dst any) error {
	if env == nil || env.IsZero() {
		return ErrEmptyEnvelope
	}

	iv, err := hex.DecodeString(env.IV)
	if err != nil || len(iv) != c.aead.NonceSize() {
		return ErrMalformedEnvelope
	}
	data, err := hex.DecodeString(env.Data)
	if err != nil {
		return ErrMalformedEnvelope
	}
	tag, err := hex.DecodeString(env.AuthTag)
	if err != nil || len(tag) != c.aead.Overhead() {
		return ErrMalformedEnvelope
	}

	plaintext, err := c.aead.Open(nil, iv, append(data, tag...), nil)
	if err != nil {
		return fmt.Errorf("failed to open envelope: %w", err)
	}

	if err := json.Unmarshal(plaintext, dst); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

// DecryptJSON decrypts into dst and reports failures as a logged non-fatal
// outcome. dst is left untouched when decryption fails.
func (c *Codec) DecryptJSON(env *Envelope, dst any) nonfatal.Result {
	if env == nil || env.IsZero() {
		return nonfatal.Fail("crypto.decrypt", ErrEmptyEnvelope)
	}
	return nonfatal.From("crypto.decrypt", c.Decrypt(env, dst)).Log(c.logger)
}

// DecryptString returns the empty string for anything that does not decrypt.
func (c *Codec) DecryptString(env *Envelope) string {
	var s string
	if r := c.DecryptJSON(env, &s); !r.OK() {
		return ""
	}
	return s
}

// EncryptToText seals v and returns the envelope as JSON text.
func (c *Codec) EncryptToText(v any) (string, error) {
	env, err := c.Encrypt(v)
	if err != nil {
		return "", err
	}
	return env.String(), nil
}

// DecryptIP reads an IP column that may hold legacy formats. It tries, in
// order: a raw plaintext address, a JSON string wrapping an envelope, and a
// direct envelope object. Anything else yields "".
func (c *Codec) DecryptIP(stored string) string {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return ""
	}

	switch stored[0] {
	case '{':
		return c.decryptEnvelopeText(stored)
	case '"':
		var inner string
		if err := json.Unmarshal([]byte(stored), &inner); err != nil {
			c.logger.Warn("unreadable wrapped ip value", zap.Error(err))
			return ""
		}
		inner = strings.TrimSpace(inner)
		if strings.HasPrefix(inner, "{") {
			return c.decryptEnvelopeText(inner)
		}
		return inner
	default:
		return stored
	}
}

func (c *Codec) decryptEnvelopeText(text string) string {
	var env Envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		c.logger.Warn("unreadable ip envelope", zap.Error(err))
		return ""
	}
	return c.DecryptString(&env)
}
