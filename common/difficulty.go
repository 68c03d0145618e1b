package common

import "math/big"

// AddDifficulty adds two big-endian 256-bit difficulty values. Difficulty
// and TotalDifficulty are carried as HashValue (the same 32-byte shape as
// every other chain digest) rather than a new numeric type, so this is the
// one place that needs to treat the bytes as a big-endian integer instead
// of an opaque digest. No library in the example pack models a generic
// uint256; math/big is the standard library's own arbitrary-precision
// integer and is the natural fit for bookkeeping this rarely-hot sum.
func AddDifficulty(a, b HashValue) HashValue {
	sum := new(big.Int).Add(new(big.Int).SetBytes(a[:]), new(big.Int).SetBytes(b[:]))
	var out HashValue
	sum.FillBytes(out[:])
	return out
}
