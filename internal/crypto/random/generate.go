package random

import (
	"crypto/rand"
	"fmt"
)

// Replaces an empty, all-zero or single-valued slice with secure random bytes.
// Modifies the slice through the pointer so every reference sees the result.
func PopulateEmptySlice(slice *[]byte, size int) (err error) {
	if len(*slice) == 0 {
		*slice = make([]byte, size)
	}

	if isAllIdentical(*slice) {
		_, err = rand.Read(*slice)
		if err != nil {
			err = fmt.Errorf("failed to populate slice with random data: %w", err)
			return
		}
	}
	return
}

// Also true for all zero
func isAllIdentical(slice []byte) bool {
	if len(slice) == 0 {
		return true
	}
	first := slice[0]
	for _, b := range slice[1:] {
		if b != first {
			return false
		}
	}
	return true
}
