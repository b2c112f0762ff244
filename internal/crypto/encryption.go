package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/banking/sar-workbench/internal/domain"
)

// FieldEncryptor provides AES-256-GCM encryption for archived narratives and
// HMAC-SHA256 chain signatures for audit events.
type FieldEncryptor struct {
	keys           map[int][]byte
	currentVersion int
	hmacSecret     []byte
}

// NewFieldEncryptor creates a new field encryptor with versioned keys
func NewFieldEncryptor(keysBase64 []string, currentVersion int, hmacSecretBase64 string) (*FieldEncryptor, error) {
	if len(keysBase64) == 0 {
		return nil, errors.New("at least one encryption key is required")
	}

	keys := make(map[int][]byte)
	for i, keyB64 := range keysBase64 {
		key, err := base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode key %d: %w", i+1, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("key %d must be 32 bytes for AES-256, got %d", i+1, len(key))
		}
		keys[i+1] = key
	}

	if _, exists := keys[currentVersion]; !exists {
		return nil, fmt.Errorf("current version %d not found in keys", currentVersion)
	}

	hmacSecret, err := base64.StdEncoding.DecodeString(hmacSecretBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode HMAC secret: %w", err)
	}
	if len(hmacSecret) == 0 {
		return nil, errors.New("audit HMAC secret is required")
	}

	return &FieldEncryptor{
		keys:           keys,
		currentVersion: currentVersion,
		hmacSecret:     hmacSecret,
	}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM with the current key version
func (e *FieldEncryptor) Encrypt(plaintext string) (string, int, error) {
	aesGCM, err := e.gcm(e.currentVersion)
	if err != nil {
		return "", 0, err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", 0, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), e.currentVersion, nil
}

// Decrypt decrypts ciphertext using the specified key version
func (e *FieldEncryptor) Decrypt(ciphertext string, keyVersion int) (string, error) {
	aesGCM, err := e.gcm(keyVersion)
	if err != nil {
		return "", err
	}

	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(decoded) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertextBytes := decoded[:nonceSize], decoded[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

func (e *FieldEncryptor) gcm(version int) (cipher.AEAD, error) {
	key, exists := e.keys[version]
	if !exists {
		return nil, fmt.Errorf("key version %d not found", version)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}

// CurrentKeyVersion returns the current encryption key version
func (e *FieldEncryptor) CurrentKeyVersion() int {
	return e.currentVersion
}

// HMAC creates an HMAC-SHA256 signature for non-repudiation
func (e *FieldEncryptor) HMAC(data string) string {
	h := hmac.New(sha256.New, e.hmacSecret)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// Sign chains an audit event to the previous entry's signature.
// The genesis entry uses an empty previous signature.
func (e *FieldEncryptor) Sign(prev string, event domain.AuditEvent) string {
	return e.HMAC(signingPayload(prev, event))
}

// Verify checks an audit event's chained signature.
func (e *FieldEncryptor) Verify(prev string, event domain.AuditEvent) bool {
	expected := e.Sign(prev, event)
	return hmac.Equal([]byte(expected), []byte(event.Signature))
}

func signingPayload(prev string, event domain.AuditEvent) string {
	return strings.Join([]string{
		prev,
		event.EventID.String(),
		strconv.FormatUint(event.Sequence, 10),
		event.Timestamp.Format(time.RFC3339Nano),
		event.User,
		string(event.Action),
		event.CaseID,
		event.Description,
	}, "|")
}

// MaskPII masks personally identifiable information for logging
func MaskPII(value string, piiType string) string {
	if len(value) == 0 {
		return ""
	}

	switch piiType {
	case "name":
		return maskName(value)
	case "account":
		return maskAccount(value)
	default:
		return "***MASKED***"
	}
}

func maskAccount(account string) string {
	if len(account) < 4 {
		return "****"
	}
	return "****" + account[len(account)-4:]
}

func maskName(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 || len(name) < 2 {
		return "***"
	}
	for i, p := range parts {
		parts[i] = p[:1] + "***"
	}
	return strings.Join(parts, " ")
}
