package vm

import (
	"encoding/json"
	"fmt"
)

// Parameter describes one argument of a method.
type Parameter struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Method describes an entry point of a contract. Offset is the instruction
// where a scripted method starts and is -1 for native methods.
type Method struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters,omitempty"`
	Returns    Type        `json:"returns"`
	Offset     int         `json:"offset"`
}

// ABI describes the methods a contract exposes.
type ABI struct {
	Methods []Method `json:"methods"`
}

// Method looks up a method by name.
func (a ABI) Method(name string) (Method, bool) {
	for _, m := range a.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

// HasMethod reports if the ABI exposes the method.
func (a ABI) HasMethod(name string) bool {
	_, exists := a.Method(name)
	return exists
}

// Validate checks the method offsets point inside a script of the
// specified length.
func (a ABI) Validate(scriptLength int) error {
	seen := make(map[string]bool, len(a.Methods))
	for _, m := range a.Methods {
		if seen[m.Name] {
			return fmt.Errorf("duplicate method %q", m.Name)
		}
		seen[m.Name] = true

		if m.Offset < 0 || m.Offset >= scriptLength {
			return fmt.Errorf("method %q offset %d outside script of %d", m.Name, m.Offset, scriptLength)
		}
	}
	return nil
}

// Encode serializes the ABI.
func (a ABI) Encode() ([]byte, error) {
	return json.Marshal(a)
}

// DecodeABI converts the serialized form back into an ABI.
func DecodeABI(data []byte) (ABI, error) {
	var a ABI
	if err := json.Unmarshal(data, &a); err != nil {
		return ABI{}, fmt.Errorf("decoding abi: %w", err)
	}
	return a, nil
}
