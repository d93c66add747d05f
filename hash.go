package urkel

import "github.com/ethereum/go-ethereum/common/hexutil"

// RootHash is a tree root digest with a hex-based human-facing surface,
// the same 0x-prefixed convention used for hashes throughout the
// go-ethereum ecosystem. It carries no semantics of its own; Tree and
// Snapshot still hand out plain []byte for hashing and comparison.
type RootHash []byte

// String renders the hash as "0x"-prefixed hex, for log lines and error
// messages.
func (r RootHash) String() string { return hexutil.Encode(r) }

// MarshalJSON renders the hash the same way any other go-ethereum-style
// byte slice would: a quoted hex string.
func (r RootHash) MarshalJSON() ([]byte, error) { return hexutil.Bytes(r).MarshalJSON() }

// UnmarshalJSON accepts a quoted "0x"-prefixed hex string.
func (r *RootHash) UnmarshalJSON(data []byte) error {
	var b hexutil.Bytes
	if err := b.UnmarshalJSON(data); err != nil {
		return err
	}
	*r = RootHash(b)
	return nil
}

// Key is a fixed-width tree key with the same hex-based human-facing
// surface as RootHash, used in error messages (see errors.go).
type Key []byte

// String renders the key as "0x"-prefixed hex.
func (k Key) String() string { return hexutil.Encode(k) }

// MarshalJSON renders the key as a quoted hex string.
func (k Key) MarshalJSON() ([]byte, error) { return hexutil.Bytes(k).MarshalJSON() }

// UnmarshalJSON accepts a quoted "0x"-prefixed hex string.
func (k *Key) UnmarshalJSON(data []byte) error {
	var b hexutil.Bytes
	if err := b.UnmarshalJSON(data); err != nil {
		return err
	}
	*k = Key(b)
	return nil
}
