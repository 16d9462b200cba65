package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"os"
)

// At-rest block encryption is optional: set CARECHAIN_DEK to a
// base64-encoded 32-byte key to enable AES-256-GCM. With the variable
// unset, blocks are stored as plaintext JSON.

func dataEncryptionKey() ([]byte, bool, error) {
	dekB64 := os.Getenv("CARECHAIN_DEK")
	if dekB64 == "" {
		return nil, false, nil
	}
	dek, err := base64.StdEncoding.DecodeString(dekB64)
	if err != nil {
		return nil, false, errors.New("CARECHAIN_DEK is not valid base64")
	}
	if len(dek) != 32 {
		return nil, false, errors.New("CARECHAIN_DEK must decode to 32 bytes")
	}
	return dek, true, nil
}

func maybeEncrypt(plaintext []byte) ([]byte, error) {
	dek, enabled, err := dataEncryptionKey()
	if err != nil {
		return nil, err
	}
	if !enabled {
		return plaintext, nil
	}
	blockCipher, err := aes.NewCipher(dek)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(blockCipher)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func maybeDecrypt(ciphertext []byte) ([]byte, error) {
	dek, enabled, err := dataEncryptionKey()
	if err != nil {
		return nil, err
	}
	if !enabled {
		return ciphertext, nil
	}
	blockCipher, err := aes.NewCipher(dek)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(blockCipher)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ct := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ct, nil)
}
