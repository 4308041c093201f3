// Package cuid2 generates prefixed public identifiers for API-facing
// resources. Row-level primary keys stay UUIDs; these IDs are what
// clients see and paste into support tickets.
//
// Format: "<prefix>_<6-char base62 timestamp><18-char base62 random>",
// e.g. "imp_1rK5iqkJ2mN4pQ6rS0tU3vW5". The timestamp head keeps B-tree
// indexes append-mostly, the random tail makes collisions negligible.
package cuid2

import (
	crypto_rand "crypto/rand"
	"strings"
	"time"
)

// Base62 alphabet: 0-9, A-Z, a-z (62 characters)
const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// randomTailLength is the number of random characters after the timestamp.
// 18 chars at ~5.95 bits each gives ~107 bits of entropy per second bucket.
const randomTailLength = 18

// EncodeTimestampBase62 encodes a Unix timestamp (seconds) as a 6-character
// base62 string. Lexicographic order matches numeric order.
//
// Range: 0 to ~56 billion seconds (~1800 years from Unix epoch)
func EncodeTimestampBase62(timestampSeconds int64) string {
	n := timestampSeconds
	result := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		remainder := n % 62
		result[i] = base62Alphabet[remainder]
		n = n / 62
	}
	return string(result)
}

// randomBase62 returns length base62 characters sourced from crypto/rand.
//
// Uses bit extraction with rejection sampling for uniform distribution:
// - Extracts 6 bits at a time (values 0-63)
// - Rejects values >= 62 to keep the distribution uniform
// - ~5.95 bits of entropy per character (log2(62))
func randomBase62(length int) string {
	// Request extra bytes to account for rejection sampling (~3% rejection rate)
	bytesNeeded := (length*6)/8 + 4
	bytes := make([]byte, bytesNeeded)
	_, err := crypto_rand.Read(bytes)
	if err != nil {
		panic("failed to read random bytes: " + err.Error())
	}

	var result strings.Builder
	bitBuffer := uint64(0)
	bitsInBuffer := uint(0)
	byteIndex := 0

	for result.Len() < length {
		// Refill buffer if needed
		for bitsInBuffer < 6 && byteIndex < len(bytes) {
			bitBuffer = (bitBuffer << 8) | uint64(bytes[byteIndex])
			bitsInBuffer += 8
			byteIndex++
		}

		// Extract 6 bits
		value := (bitBuffer >> (bitsInBuffer - 6)) & 0x3f
		bitsInBuffer -= 6

		// Rejection sampling: only accept values < 62
		if value < 62 {
			result.WriteByte(base62Alphabet[value])
		}

		// If we run out of bytes (unlikely), get more
		if byteIndex >= len(bytes) && result.Len() < length {
			_, err := crypto_rand.Read(bytes)
			if err != nil {
				panic("failed to read random bytes: " + err.Error())
			}
			byteIndex = 0
			bitBuffer = 0
			bitsInBuffer = 0
		}
	}

	return result.String()
}

// New generates a prefixed, time-sortable public identifier.
//
// Example:
//
//	New("imp") // "imp_1rK5iqkJ2mN4pQ6rS0tU3vW5"
func New(prefix string) string {
	return prefix + "_" + EncodeTimestampBase62(time.Now().Unix()) + randomBase62(randomTailLength)
}

// NewImportID returns a public identifier for an import run.
func NewImportID() string { return New("imp") }

// NewSnapshotID returns a public identifier for a project profitability snapshot.
func NewSnapshotID() string { return New("snap") }

// NewTaskID returns a public identifier for a queued background task.
func NewTaskID() string { return New("task") }
