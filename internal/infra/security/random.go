package security

import (
	"crypto/rand"
	"io"
)

// KeyAlphabet is the character set of card keys and API keys.
const KeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString returns n characters drawn uniformly from KeyAlphabet using
// crypto/rand. Bytes that would bias the modulo are discarded.
func RandomString(n int) (string, error) {
	const limit = 256 - 256%len(KeyAlphabet)
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, KeyAlphabet[int(b)%len(KeyAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
