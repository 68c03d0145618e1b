// Package common holds the small value types shared by every layer of the
// chain core: content hashes and account addresses.
package common

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// HashLength is the size in bytes of a HashValue.
const HashLength = 32

// HashValue is a 32-byte cryptographic digest. It is the concrete type
// behind every "HashValue" field in the data model: block ids, state
// roots, accumulator roots, transaction hashes.
type HashValue [HashLength]byte

// ZeroHash is the all-zero digest, used as the parent hash of genesis.
var ZeroHash = HashValue{}

// PlaceholderHash is the digest representing an empty subtree. It is
// distinct from ZeroHash so that "no data" and "the zero leaf" never
// collide in the accumulator or the state trie.
var PlaceholderHash = HashOfData([]byte("STARGO::SPARSE_MERKLE_PLACEHOLDER_HASH"))

// HashOfData returns the SHA3-256 digest of data.
func HashOfData(data []byte) HashValue {
	var h HashValue
	d := sha3.Sum256(data)
	copy(h[:], d[:])
	return h
}

// HashFromBytes copies b into a HashValue, erroring if the length is wrong.
func HashFromBytes(b []byte) (HashValue, error) {
	var h HashValue
	if len(b) != HashLength {
		return h, fmt.Errorf("common: invalid hash length %d, want %d", len(b), HashLength)
	}
	copy(h[:], b)
	return h, nil
}

// MustHashFromBytes is HashFromBytes but panics on error; only safe for
// values already known to be well-formed (e.g. round-tripped from our own
// storage).
func MustHashFromBytes(b []byte) HashValue {
	h, err := HashFromBytes(b)
	if err != nil {
		panic(err)
	}
	return h
}

// HashFromHex parses a hex string (with or without 0x prefix) into a HashValue.
func HashFromHex(s string) (HashValue, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return HashValue{}, err
	}
	return HashFromBytes(b)
}

// Bytes returns a fresh copy of the hash bytes.
func (h HashValue) Bytes() []byte {
	out := make([]byte, HashLength)
	copy(out, h[:])
	return out
}

// IsZero reports whether h is the all-zero hash.
func (h HashValue) IsZero() bool {
	return h == ZeroHash
}

// Hex returns the "0x"-prefixed lower-case hex encoding of h.
func (h HashValue) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// String implements fmt.Stringer.
func (h HashValue) String() string {
	return h.Hex()
}

// MarshalText implements encoding.TextMarshaler.
func (h HashValue) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HashValue) UnmarshalText(text []byte) error {
	parsed, err := HashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Less gives HashValue a total order: byte-wise lexicographic comparison.
func (h HashValue) Less(other HashValue) bool {
	return bytes.Compare(h[:], other[:]) < 0
}

// Equal reports byte-for-byte equality.
func (h HashValue) Equal(other HashValue) bool {
	return h == other
}

// HashPair returns hash(left || right), the internal-node combination rule
// shared by the accumulator and the state trie.
func HashPair(left, right HashValue) HashValue {
	buf := make([]byte, 0, 2*HashLength)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return HashOfData(buf)
}
