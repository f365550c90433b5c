package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/AlibekovAA/member-chat/internal/common/constants"
)

// IDGenerator assigns account ids.
type IDGenerator interface {
	NewID() (string, error)
}

// KeyGenerator produces opaque bearer token keys.
type KeyGenerator interface {
	NewKey() (string, error)
}

// UUIDGenerator issues random (version 4) UUIDs, matching the accounts.id
// column type.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate account id: %w", err)
	}
	return id.String(), nil
}

// RandomKeyGenerator returns hex encoded keys read from crypto/rand.
// The default size gives 160 bits of entropy in 40 characters.
type RandomKeyGenerator struct {
	size int
}

func NewRandomKeyGenerator() *RandomKeyGenerator {
	return &RandomKeyGenerator{size: constants.TokenKeyBytes}
}

func (g *RandomKeyGenerator) NewKey() (string, error) {
	size := g.size
	if size <= 0 {
		size = constants.TokenKeyBytes
	}
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IsWellFormedKey reports whether key has the shape RandomKeyGenerator
// produces: lowercase hex of TokenKeyBytes bytes.
func IsWellFormedKey(key string) bool {
	if len(key) != hex.EncodedLen(constants.TokenKeyBytes) {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
