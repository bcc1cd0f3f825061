// Package codec implements the EncodedValue wire contract for the L2 tier:
// deterministic, round-trip-stable, forward-compatible byte encoding of
// Product and the list-shaped values the catalog caches.
//
// It uses github.com/vmihailenco/msgpack/v5 rather than JSON, because
// msgpack's field-tag-addressed maps tolerate unknown future fields on
// decode (true forward compatibility), whereas positional JSON struct
// decoding of an evolved schema still round-trips but offers no structural
// guarantee beyond "same field names".
package codec

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode serializes v deterministically. The msgpack encoder emits map keys
// in struct-tag order for a given type, so repeated calls for equal values
// always produce identical bytes.
func Encode(v interface{}) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: encode failed: %w", err)
	}
	return data, nil
}

// Decode deserializes data into the value pointed to by out. Unknown
// trailing fields in data (written by a newer schema) are ignored rather
// than causing an error, satisfying the forward-compatibility requirement.
func Decode(data []byte, out interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("codec: cannot decode empty payload")
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return fmt.Errorf("codec: decode failed: %w", err)
	}
	return nil
}
