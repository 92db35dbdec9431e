// Package record derives deterministic record identities and assembles the
// items persisted for each processed event.
package record

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/sh3r4rd/nyx/internal/model"
)

// DeriveID joins parts with "/" and returns the first RecordIDLength hex
// characters of their SHA-256 digest. Equal parts always yield equal ids.
func DeriveID(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "/")))
	return hex.EncodeToString(sum[:])[:model.RecordIDLength]
}
