// Package hash provides the object-identity primitive shared by every
// protocol/ parser: a raw Git hash, hex-encoded for display and compared
// byte-wise everywhere else (spec.md §3 "Object", §4.4 delta base refs).
package hash

import (
	"encoding/hex"
	"hash"
	"slices"
)

// Hash is a raw Git object hash (20 bytes for SHA-1, 32 for SHA-256). It is
// intentionally not fixed-size: callers that only ever see one algorithm per
// repository don't need to thread a length parameter through everything
// that holds a Hash.
type Hash []byte

// Zero is the empty hash, returned by FromHex for an empty input and used
// as the sentinel value for "present but unverified" pack entries (see
// Packfile.Offsets in protocol/packfile.go).
var Zero Hash

// FromHex decodes a hex-encoded object hash. An empty string decodes to
// Zero rather than erroring, matching how Git itself treats an absent ref
// target.
func FromHex(hs string) (Hash, error) {
	if hs == "" {
		return Zero, nil
	}
	b, err := hex.DecodeString(hs)
	if err != nil {
		return Zero, err
	}
	return Hash(b), nil
}

// MustFromHex is FromHex for callers that already know the string is
// well-formed (test fixtures, compiled-in constants) and would rather panic
// than propagate an error that can't occur.
func MustFromHex(hs string) Hash {
	h, err := FromHex(hs)
	if err != nil {
		panic(err)
	}
	return h
}

func (h Hash) String() string {
	return hex.EncodeToString(h)
}

// Is reports whether h and other hold the same bytes.
func (h Hash) Is(other Hash) bool {
	return slices.Equal(h, other)
}

// Hasher adapts a stdlib hash.Hash so object.go's hashing helpers can stay
// agnostic to the specific algorithm (SHA-1 today, SHA-256 for repositories
// that opt into it).
type Hasher struct {
	hash.Hash
}
