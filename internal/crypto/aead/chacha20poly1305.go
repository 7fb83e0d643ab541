package aead

import (
	"fmt"
	"santasleigh/internal/crypto"
	"santasleigh/internal/crypto/random"

	"golang.org/x/crypto/chacha20poly1305"
)

// Encrypts plaintext with chacha20poly1305. A nil, zero or repeating nonce is replaced with random bytes,
// so callers must store the nonce they passed in after the call.
// Zeroes key memory after encryption.
func Encrypt(plaintext, key []byte, nonce *[]byte, additional []byte) (ciphertext []byte, err error) {
	err = random.PopulateEmptySlice(nonce, chacha20poly1305.NonceSize)
	if err != nil {
		err = fmt.Errorf("failed to prepare nonce: %w", err)
		return
	}

	aead, err := chacha20poly1305.New(key)
	crypto.Memzero(key)
	if err != nil {
		err = fmt.Errorf("failed creation of AEAD: %w", err)
		return
	}

	ciphertext = aead.Seal(nil, *nonce, plaintext, additional)
	return
}

// Zeroes key memory after decryption
func Decrypt(ciphertext, key, nonce, additional []byte) (plaintext []byte, err error) {
	aead, err := chacha20poly1305.New(key)
	crypto.Memzero(key)
	if err != nil {
		err = fmt.Errorf("failed creation of AEAD: %w", err)
		return
	}
	if len(nonce) != aead.NonceSize() {
		err = fmt.Errorf("nonce is %d bytes, expected %d", len(nonce), aead.NonceSize())
		return
	}

	plaintext, err = aead.Open(nil, nonce, ciphertext, additional)
	if err != nil {
		err = fmt.Errorf("failed decryption of cipher text: %w", err)
		return
	}
	return
}
