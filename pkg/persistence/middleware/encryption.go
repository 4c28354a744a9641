package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/chatloop/chatloop/pkg/domain"
	"github.com/chatloop/chatloop/pkg/ports"
)

// envelopeKey marks an encrypted conversation in the underlying store.
const envelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new writes. Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key fails to
	// decrypt, enabling zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.StateStore
	config EncryptionConfig
}

// NewEncryption creates a middleware that stores conversations as AES-GCM
// encrypted envelopes. The backend sees only the opaque blob; both the
// state ID and the context are hidden.
func NewEncryption(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.StateStore) ports.StateStore {
		return &encryptionMiddleware{next: next, config: config}
	}
}

func (m *encryptionMiddleware) Set(ctx context.Context, chatID string, stateID string, convCtx domain.Context) error {
	plain, err := json.Marshal(domain.Conversation{StateID: stateID, Context: convCtx})
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	ciphertext, err := encrypt(plain, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("encrypt conversation: %w", err)
	}

	envelope := domain.Context{
		envelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
	}
	return m.next.Set(ctx, chatID, "encrypted", envelope)
}

func (m *encryptionMiddleware) Get(ctx context.Context, chatID string) (*domain.Conversation, error) {
	stored, err := m.next.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}

	encoded, ok := stored.Context[envelopeKey].(string)
	if !ok {
		// Fail closed: with encryption configured, a plaintext record is
		// treated as corrupt rather than passed through.
		return nil, errors.New("conversation is missing its encrypted envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("decrypt conversation: %w", err)
	}

	var conv domain.Conversation
	if err := json.Unmarshal(plain, &conv); err != nil {
		return nil, fmt.Errorf("unmarshal decrypted conversation: %w", err)
	}
	return &conv, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, chatID string) error {
	return m.next.Delete(ctx, chatID)
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
