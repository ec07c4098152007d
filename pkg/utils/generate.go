package utils

import (
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/crypto/blake2b"
)

// GenerateOrderID builds the human-readable booking reference
// BOOK-YYYYMMDD-HHMMSS-NNNN from the booking's creation time.
func GenerateOrderID(createdAt time.Time) string {
	createdAt = createdAt.UTC()
	return fmt.Sprintf("BOOK-%s-%s-%04d",
		createdAt.Format("20060102"),
		createdAt.Format("150405"),
		rand.IntN(10000),
	)
}

// HashPayload returns the hex BLAKE2b-256 digest of a request body.
func HashPayload(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
