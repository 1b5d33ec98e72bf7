// internal/service/publishing/infrastructure/credential_aes_adapter.go
package infrastructure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
)

// AESCredentialStore 用 AES-256-GCM 加解密频道凭据。
// 密文格式：base64(nonce || ciphertext)。密钥从配置的口令派生。
type AESCredentialStore struct {
	key [32]byte
}

func NewAESCredentialStore(secret string) *AESCredentialStore {
	return &AESCredentialStore{key: sha256.Sum256([]byte(secret))}
}

func (s *AESCredentialStore) newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt 供管理面写入凭据时使用。
func (s *AESCredentialStore) Encrypt(plaintext string) (string, error) {
	gcm, err := s.newGCM()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt 在密文被篡改或密钥不符时返回错误。
func (s *AESCredentialStore) Decrypt(encrypted string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", errors.Wrap(err, "credential is not valid base64")
	}
	gcm, err := s.newGCM()
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("credential ciphertext too short")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.Wrap(err, "credential decrypt failed")
	}
	return string(plaintext), nil
}
