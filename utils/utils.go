package utils

import (
	"crypto/sha256"
	"strings"

	"github.com/gofrs/uuid"
)

// DeriveUuid maps one or more seed strings onto a stable UUID. The same
// seeds always yield the same id, which is how banks, positions and
// proposals get deterministic O(1) keys.
func DeriveUuid(seeds ...string) uuid.UUID {
	if len(seeds) == 0 {
		seeds = []string{uuid.Nil.String()}
	}

	sum := sha256.Sum256([]byte(strings.Join(seeds, "|")))

	var b [16]byte
	copy(b[:], sum[:16])
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return uuid.FromBytesOrNil(b[:])
}
