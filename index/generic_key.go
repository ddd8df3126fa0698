// Package index implements the disk-resident B+ tree over fixed-width keys
// and RowId values, with ordered iteration over the leaf chain.
package index

import (
	"bytes"

	"xminidb/storage/pages"
)

// GenericKey is a fixed-width serialised key. Keys of one tree share a single
// width chosen at construction; the supported widths follow the fixed key
// sizes the record layer produces.
type GenericKey []byte

// Supported key widths.
const (
	KeySize4  = 4
	KeySize8  = 8
	KeySize16 = 16
	KeySize32 = 32
	KeySize64 = 64
)

// CompareBytes is the comparator for memcmp-ordered keys.
func CompareBytes(a, b []byte) int {
	return bytes.Compare(a, b)
}

// GenericComparator returns the comparator used for keys produced by
// Int64Key and StringKey: plain byte order.
func GenericComparator() pages.KeyComparator {
	return CompareBytes
}

// Int64Key encodes v order-preservingly into a keySize-wide key: big-endian
// two's complement with the sign bit flipped, so byte order equals numeric
// order. The value occupies the leading 8 bytes; the rest is zero padding.
func Int64Key(v int64, keySize int) GenericKey {
	key := make(GenericKey, keySize)
	u := uint64(v) ^ (1 << 63)
	for i := 0; i < 8 && i < keySize; i++ {
		key[i] = byte(u >> uint(56-8*i))
	}
	return key
}

// StringKey copies s into a keySize-wide key, truncating or zero-padding.
// Byte order equals lexicographic order for the padded prefix.
func StringKey(s string, keySize int) GenericKey {
	key := make(GenericKey, keySize)
	copy(key, s)
	return key
}

// copyKey detaches a key from the page bytes it aliases.
func copyKey(key []byte) GenericKey {
	out := make(GenericKey, len(key))
	copy(out, key)
	return out
}
