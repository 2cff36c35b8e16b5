// Package database defines the data that is persisted by a chain: addresses,
// hashes, transactions, blocks and the events they carry, along with the
// codec used to write them to storage.
package database

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
)

// Encode marshals the value to JSON and compresses the result.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	return snappy.Encode(nil, data), nil
}

// Decode decompresses the data and unmarshals it into the value.
func Decode(data []byte, v any) error {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	return nil
}
