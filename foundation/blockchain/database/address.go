package database

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressKind identifies what an address refers to.
type AddressKind byte

// Set of address kinds.
const (
	KindNull AddressKind = iota
	KindUser
	KindSystem
	KindInterop
)

// AddressLength is the size of a serialized address: one kind byte
// followed by 20 bytes of key material.
const AddressLength = 21

// prefixes are used in the text form of an address.
var prefixes = map[AddressKind]byte{
	KindUser:    'P',
	KindSystem:  'S',
	KindInterop: 'X',
}

// Address identifies users, contracts, organizations and chains.
type Address [AddressLength]byte

// NullAddress represents the absence of an address.
var NullAddress Address

// PublicKeyToAddress converts the public key to a user address.
func PublicKeyToAddress(pk ecdsa.PublicKey) Address {
	return FromCommon(crypto.PubkeyToAddress(pk))
}

// FromCommon converts the key address recovered from a signature into a
// user address.
func FromCommon(a common.Address) Address {
	var addr Address
	addr[0] = byte(KindUser)
	copy(addr[1:], a[:])
	return addr
}

// SystemAddress derives the address for a named system entity such as a
// contract, an organization or a chain.
func SystemAddress(name string) Address {
	var addr Address
	addr[0] = byte(KindSystem)
	copy(addr[1:], crypto.Keccak256([]byte(name))[12:])
	return addr
}

// ToAddress converts the text form of an address and validates it.
func ToAddress(s string) (Address, error) {
	if s == "" || s == "NULL" {
		return NullAddress, nil
	}

	const hexLength = 2 * (AddressLength - 1)
	if len(s) != hexLength+1 || !isHex(s[1:]) {
		return NullAddress, errors.New("invalid address format")
	}

	var kind AddressKind
	for k, p := range prefixes {
		if p == s[0] {
			kind = k
		}
	}
	if kind == KindNull {
		return NullAddress, fmt.Errorf("invalid address prefix %q", s[0])
	}

	var addr Address
	addr[0] = byte(kind)
	if _, err := hex.Decode(addr[1:], []byte(s[1:])); err != nil {
		return NullAddress, err
	}

	return addr, nil
}

// Kind returns the kind of the address.
func (a Address) Kind() AddressKind {
	return AddressKind(a[0])
}

// IsNull reports if the address is empty.
func (a Address) IsNull() bool {
	return a == NullAddress
}

// IsUser reports if the address belongs to a key pair.
func (a Address) IsUser() bool {
	return a.Kind() == KindUser
}

// IsSystem reports if the address belongs to a contract, organization or chain.
func (a Address) IsSystem() bool {
	return a.Kind() == KindSystem
}

// IsInterop reports if the address belongs to an external platform.
func (a Address) IsInterop() bool {
	return a.Kind() == KindInterop
}

// Common returns the key address for a user address.
func (a Address) Common() common.Address {
	return common.BytesToAddress(a[1:])
}

// String implements the fmt.Stringer interface.
func (a Address) String() string {
	p, exists := prefixes[a.Kind()]
	if !exists {
		return "NULL"
	}
	return string(p) + hex.EncodeToString(a[1:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (a *Address) UnmarshalText(data []byte) error {
	addr, err := ToAddress(string(data))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// =============================================================================

// isHex validates whether each byte is valid hexadecimal string.
func isHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}

	for _, c := range []byte(s) {
		if !isHexCharacter(c) {
			return false
		}
	}

	return true
}

// isHexCharacter returns bool of c being a valid hexadecimal.
func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
