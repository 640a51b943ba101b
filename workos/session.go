package workos

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/pbkdf2"
)

// Sealed session wire format: base64url(salt[16] || nonce[12] || ciphertext).
// The key is derived from the cookie password with PBKDF2-SHA256.
const (
	minCookiePasswordLen = 32

	sealSaltLen   = 16
	sealKeyLen    = 32
	sealKDFRounds = 4096
)

func sealKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, sealKDFRounds, sealKeyLen, sha256.New)
}

// seal encrypts payload against the cookie password.
func seal(payload []byte, password string) (string, error) {
	salt := make([]byte, sealSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errSession("unable to generate seal salt", err)
	}

	block, err := aes.NewCipher(sealKey(password, salt))
	if err != nil {
		return "", errSession("unable to build seal cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", errSession("unable to build seal cipher", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", errSession("unable to generate seal nonce", err)
	}

	sealed := make([]byte, 0, sealSaltLen+len(nonce)+len(payload)+gcm.Overhead())
	sealed = append(sealed, salt...)
	sealed = append(sealed, nonce...)
	sealed = gcm.Seal(sealed, nonce, payload, nil)

	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// unseal reverses seal. A wrong password or tampered payload fails the GCM
// tag check.
func unseal(sealed, password string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return nil, errSession("sealed session is not valid base64", err)
	}
	if len(raw) < sealSaltLen {
		return nil, errSession("sealed session is truncated", nil)
	}

	salt, rest := raw[:sealSaltLen], raw[sealSaltLen:]

	block, err := aes.NewCipher(sealKey(password, salt))
	if err != nil {
		return nil, errSession("unable to build seal cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errSession("unable to build seal cipher", err)
	}
	if len(rest) < gcm.NonceSize() {
		return nil, errSession("sealed session is truncated", nil)
	}

	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]
	payload, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errSession("sealed session failed authentication", err)
	}
	return payload, nil
}
