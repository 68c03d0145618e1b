package common

import "encoding/hex"

// AddressLength is the size in bytes of a Move account address on Starcoin
// (16 bytes, unlike Ethereum's 20).
const AddressLength = 16

// Address is an account address: the key space of the state trie.
type Address [AddressLength]byte

// ZeroAddress is the all-zero address (the genesis/system account).
var ZeroAddress = Address{}

// AddressFromBytes copies b into an Address.
func AddressFromBytes(b []byte) Address {
	var a Address
	copy(a[:], b)
	return a
}

// Bytes returns a fresh copy of the address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// Hex returns the "0x"-prefixed hex encoding.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.Hex()
}
