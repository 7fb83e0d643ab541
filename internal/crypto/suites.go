package crypto

import (
	"golang.org/x/crypto/chacha20poly1305"
)

type SuiteInfo struct {
	Name           string
	KeySize        int
	NonceSize      int
	CipherOverhead int
}

const (
	SuitePlain  uint8 = 0
	SuiteSealed uint8 = 1
)

// Read-only after init
var suites = map[uint8]SuiteInfo{
	SuitePlain: {
		Name: "plain",
	},
	SuiteSealed: {
		Name:           "hkdf-sha512-chacha20poly1305",
		KeySize:        chacha20poly1305.KeySize,
		NonceSize:      chacha20poly1305.NonceSize,
		CipherOverhead: chacha20poly1305.Overhead,
	},
}

func GetSuiteInfo(id uint8) (info SuiteInfo, validID bool) {
	info, validID = suites[id]
	return
}
