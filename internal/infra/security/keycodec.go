// File: internal/infra/security/keycodec.go
package security

import (
	"crypto/sha1"
	"encoding/hex"
)

// KeyCodec derives the stored lookup fingerprint of a plain card key:
// lowercase hex of SHA-1(plainKey + salt). The salt is shared by every card,
// so the result is a pure function of the key.
type KeyCodec struct {
	salt string
}

func NewKeyCodec(salt string) *KeyCodec {
	return &KeyCodec{salt: salt}
}

func (c *KeyCodec) Fingerprint(plainKey string) string {
	sum := sha1.Sum([]byte(plainKey + c.salt))
	return hex.EncodeToString(sum[:])
}
