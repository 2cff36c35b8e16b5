package database

import (
	"encoding/hex"
	"errors"
	"strings"
)

// Hash is a 32 byte content hash used for blocks and transactions.
type Hash [32]byte

// ZeroHash represents a hash code of zeros.
var ZeroHash Hash

// ToHash converts a hex-encoded string with or without a 0x prefix.
func ToHash(s string) (Hash, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 64 || !isHex(s) {
		return ZeroHash, errors.New("invalid hash format")
	}

	var h Hash
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return ZeroHash, err
	}

	return h, nil
}

// IsZero reports if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// String implements the fmt.Stringer interface.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *Hash) UnmarshalText(data []byte) error {
	v, err := ToHash(string(data))
	if err != nil {
		return err
	}
	*h = v
	return nil
}
