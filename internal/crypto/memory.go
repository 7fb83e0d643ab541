package crypto

import "runtime"

// Overwrites key material in place
func Memzero(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}
