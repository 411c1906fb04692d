package canonicaljson

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for locally computed fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainStateSnapshot = "roomstate/state/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DomainHash returns the hex SHA-256 of the canonical form of v,
// separated by domain.
func DomainHash(domain string, v Value) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("DomainHash: failed to marshal: %w", err)
	}
	return hashWithDomain(domain, data), nil
}

// ReferenceHash returns the unpadded URL-safe base64 SHA-256 of the
// canonical form of obj. No domain prefix: this is the format room
// versions 4 and later use for event identifiers.
func ReferenceHash(obj Object) (string, error) {
	data, err := Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("ReferenceHash: failed to marshal: %w", err)
	}
	sum := sha256.Sum256(data)
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}
