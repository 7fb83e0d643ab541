package hkdf

import (
	"crypto/sha512"
	"fmt"
	"santasleigh/internal/crypto"

	"golang.org/x/crypto/hkdf"
)

// Derives a key of keySize bytes from a secret and salt, separated by namespace.
// Secret and salt are zeroed after derivation.
func DeriveKey(secret, salt []byte, namespace string, keySize int) (secureKey []byte, err error) {
	deriver := hkdf.New(sha512.New, secret, salt, []byte(namespace))

	secureKey = make([]byte, keySize)
	_, err = deriver.Read(secureKey)

	crypto.Memzero(salt)
	crypto.Memzero(secret)

	if err != nil {
		err = fmt.Errorf("failed to populate key with secure bytes: %w", err)
		return
	}
	return
}
