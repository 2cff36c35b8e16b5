package vm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/nexuschain/chaincore/foundation/blockchain/database"
)

// Type identifies the kind of data held by a Value.
type Type byte

// Set of value types.
const (
	TypeNone Type = iota
	TypeBool
	TypeNumber
	TypeText
	TypeBytes
	TypeAddress
)

var typeNames = map[Type]string{
	TypeNone:    "none",
	TypeBool:    "bool",
	TypeNumber:  "number",
	TypeText:    "text",
	TypeBytes:   "bytes",
	TypeAddress: "address",
}

// String implements the fmt.Stringer interface.
func (t Type) String() string {
	if name, exists := typeNames[t]; exists {
		return name
	}
	return fmt.Sprintf("type(%d)", t)
}

// ErrType is returned when a value is used as the wrong type.
var ErrType = errors.New("value type mismatch")

// =============================================================================

// Value is the unit of data moved on the stack and across contract calls.
type Value struct {
	Type    Type             `json:"type"`
	Bool    bool             `json:"bool,omitempty"`
	Number  *big.Int         `json:"number,omitempty"`
	Text    string           `json:"text,omitempty"`
	Bytes   []byte           `json:"bytes,omitempty"`
	Address database.Address `json:"address,omitzero"`
}

// None returns an empty value.
func None() Value {
	return Value{Type: TypeNone}
}

// Bool constructs a boolean value.
func Bool(b bool) Value {
	return Value{Type: TypeBool, Bool: b}
}

// Number constructs a numeric value from a copy of n.
func Number(n *big.Int) Value {
	if n == nil {
		n = new(big.Int)
	}
	return Value{Type: TypeNumber, Number: new(big.Int).Set(n)}
}

// Int constructs a numeric value.
func Int(n int64) Value {
	return Value{Type: TypeNumber, Number: big.NewInt(n)}
}

// Uint constructs a numeric value.
func Uint(n uint64) Value {
	return Value{Type: TypeNumber, Number: new(big.Int).SetUint64(n)}
}

// Text constructs a string value.
func Text(s string) Value {
	return Value{Type: TypeText, Text: s}
}

// Bytes constructs a byte slice value.
func Bytes(b []byte) Value {
	return Value{Type: TypeBytes, Bytes: b}
}

// Address constructs an address value.
func Address(a database.Address) Value {
	return Value{Type: TypeAddress, Address: a}
}

// IsNone reports if the value is empty.
func (v Value) IsNone() bool {
	return v.Type == TypeNone
}

// AsBool returns the boolean held by the value. Numbers are true when they
// are not zero.
func (v Value) AsBool() (bool, error) {
	switch v.Type {
	case TypeBool:
		return v.Bool, nil
	case TypeNumber:
		if v.Number == nil {
			return false, fmt.Errorf("%w: number has no value", ErrType)
		}
		return v.Number.Sign() != 0, nil
	}
	return false, fmt.Errorf("%w: got %s, exp %s", ErrType, v.Type, TypeBool)
}

// AsNumber returns a copy of the number held by the value.
func (v Value) AsNumber() (*big.Int, error) {
	if v.Type != TypeNumber {
		return nil, fmt.Errorf("%w: got %s, exp %s", ErrType, v.Type, TypeNumber)
	}
	if v.Number == nil {
		return nil, fmt.Errorf("%w: number has no value", ErrType)
	}
	return new(big.Int).Set(v.Number), nil
}

// AsUint64 returns the number held by the value as an unsigned integer.
func (v Value) AsUint64() (uint64, error) {
	n, err := v.AsNumber()
	if err != nil {
		return 0, err
	}
	if n.Sign() < 0 || !n.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit an unsigned integer", ErrType, n)
	}
	return n.Uint64(), nil
}

// AsText returns the string held by the value.
func (v Value) AsText() (string, error) {
	switch v.Type {
	case TypeText:
		return v.Text, nil
	case TypeAddress:
		return v.Address.String(), nil
	case TypeNumber:
		if v.Number == nil {
			return "", fmt.Errorf("%w: number has no value", ErrType)
		}
		return v.Number.String(), nil
	}
	return "", fmt.Errorf("%w: got %s, exp %s", ErrType, v.Type, TypeText)
}

// AsBytes returns the byte slice held by the value.
func (v Value) AsBytes() ([]byte, error) {
	switch v.Type {
	case TypeBytes:
		return v.Bytes, nil
	case TypeText:
		return []byte(v.Text), nil
	case TypeNone:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: got %s, exp %s", ErrType, v.Type, TypeBytes)
}

// AsAddress returns the address held by the value. Text is parsed.
func (v Value) AsAddress() (database.Address, error) {
	switch v.Type {
	case TypeAddress:
		return v.Address, nil
	case TypeText:
		return database.ToAddress(v.Text)
	}
	return database.NullAddress, fmt.Errorf("%w: got %s, exp %s", ErrType, v.Type, TypeAddress)
}

// Equal reports if both values hold the same data.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}

	switch v.Type {
	case TypeNone:
		return true
	case TypeBool:
		return v.Bool == o.Bool
	case TypeNumber:
		if v.Number == nil || o.Number == nil {
			return v.Number == o.Number
		}
		return v.Number.Cmp(o.Number) == 0
	case TypeText:
		return v.Text == o.Text
	case TypeBytes:
		return string(v.Bytes) == string(o.Bytes)
	case TypeAddress:
		return v.Address == o.Address
	}

	return false
}

// String implements the fmt.Stringer interface.
func (v Value) String() string {
	switch v.Type {
	case TypeBool:
		return fmt.Sprintf("%t", v.Bool)
	case TypeNumber:
		return v.Number.String()
	case TypeText:
		return fmt.Sprintf("%q", v.Text)
	case TypeBytes:
		return fmt.Sprintf("0x%x", v.Bytes)
	case TypeAddress:
		return v.Address.String()
	}
	return "none"
}

// Encode returns the serialized form of the value stored in results.
func (v Value) Encode() []byte {
	if v.IsNone() {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// UnmarshalJSON implements the json.Unmarshaler interface. Values of an
// unknown type and numbers without a value are rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	type value Value

	var d value
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}

	if _, exists := typeNames[d.Type]; !exists {
		return fmt.Errorf("%w: unknown %s", ErrType, d.Type)
	}
	if d.Type == TypeNumber && d.Number == nil {
		return fmt.Errorf("%w: number has no value", ErrType)
	}

	*v = Value(d)
	return nil
}

// DecodeValue converts the serialized form back into a value.
func DecodeValue(data []byte) (Value, error) {
	if len(data) == 0 {
		return None(), nil
	}

	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return None(), fmt.Errorf("decoding value: %w", err)
	}
	return v, nil
}
