package sim

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"hash"
	"hash/crc32"
)

// IntegrityKind selects the checksum algorithm recorded in the container.
// Digests are computed over the original, uncompressed bytes; verification
// runs after decompression, on the bytes handed back to the caller.
type IntegrityKind string

const (
	IntegrityNone   IntegrityKind = "none"
	IntegrityCRC32  IntegrityKind = "crc32"
	IntegritySHA256 IntegrityKind = "sha256"
)

// Container ids. Wire format, never reorder.
var integrityIDs = map[IntegrityKind]uint8{
	IntegrityNone:   0,
	IntegrityCRC32:  1,
	IntegritySHA256: 2,
}

var integrityByID = map[uint8]IntegrityKind{}

func init() {
	for kind, id := range integrityIDs {
		integrityByID[id] = kind
	}
}

var digestSizes = map[IntegrityKind]int{
	IntegrityNone:   0,
	IntegrityCRC32:  crc32.Size,
	IntegritySHA256: sha256.Size,
}

// ParseIntegrity converts a user-supplied name to an IntegrityKind.
func ParseIntegrity(name string) (IntegrityKind, error) {
	kind := IntegrityKind(name)
	if _, ok := integrityIDs[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedIntegrity, name)
	}
	return kind, nil
}

// digestSize returns the serialized digest width for kind.
func digestSize(kind IntegrityKind) int {
	return digestSizes[kind]
}

// newDigest returns a fresh hash accumulating the original bytes, or nil
// for IntegrityNone.
func newDigest(kind IntegrityKind) hash.Hash {
	switch kind {
	case IntegrityCRC32:
		return crc32.NewIEEE()
	case IntegritySHA256:
		return sha256.New()
	default:
		return nil
	}
}

// verifyDigest reports whether got matches want under kind. IntegrityNone
// always verifies.
func verifyDigest(kind IntegrityKind, got, want []byte) bool {
	if kind == IntegrityNone {
		return true
	}
	return len(got) == digestSize(kind) && bytes.Equal(got, want)
}
