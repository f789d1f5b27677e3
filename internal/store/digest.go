package store

import (
	"encoding/hex"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Digest returns the hex BLAKE2b-256 of r and the number of bytes read.
func Digest(r io.Reader) (string, int64, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
