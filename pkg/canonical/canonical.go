// Package canonical implements the deterministic byte serialization that
// every signature in this module is computed over: keys sorted
// lexicographically at every level, so two semantically identical objects
// always produce identical bytes regardless of field order.
package canonical

import (
	"bytes"
	"encoding/json"
	"sort"
)

// DefaultOmitKeys are the top-level fields every envelope signer excludes
// from the signed bytes: the signature container fields and the
// domain-separation prefix, none of which are themselves signed.
var DefaultOmitKeys = []string{"signature", "signatures", "prefix"}

// MarshalJSON returns a canonical JSON encoding of v with sorted keys.
// This ensures that the same object always produces the same JSON string,
// regardless of the original key order in the map.
func MarshalJSON(v interface{}) ([]byte, error) {
	return marshalCanonical(v)
}

func marshalCanonical(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		// Sort keys alphabetically
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf := bytes.NewBufferString("{")
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(",")
			}
			// Marshal the key
			keyJSON, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(keyJSON)
			buf.WriteString(":")

			// Recursively marshal the value
			valJSON, err := marshalCanonical(val[k])
			if err != nil {
				return nil, err
			}
			buf.Write(valJSON)
		}
		buf.WriteString("}")
		return buf.Bytes(), nil

	case []interface{}:
		buf := bytes.NewBufferString("[")
		for i, item := range val {
			if i > 0 {
				buf.WriteString(",")
			}
			itemJSON, err := marshalCanonical(item)
			if err != nil {
				return nil, err
			}
			buf.Write(itemJSON)
		}
		buf.WriteString("]")
		return buf.Bytes(), nil

	default:
		// For primitives (string, number, bool, null), use standard JSON marshaling
		return json.Marshal(v)
	}
}

// Payload builds the canonical signed bytes for an envelope-shaped value:
// it marshals raw through a JSON round-trip into a map, strips omit keys
// and any key whose value is explicitly null, canonicalizes the remainder
// with sorted keys at every level, and prepends prefix as raw bytes ahead
// of the encoded JSON. Every signer in a multi-signature envelope signs
// the bytes this function returns.
func Payload(raw json.RawMessage, prefix string, omit ...string) ([]byte, error) {
	if len(omit) == 0 {
		omit = DefaultOmitKeys
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	omitSet := make(map[string]struct{}, len(omit))
	for _, k := range omit {
		omitSet[k] = struct{}{}
	}
	for k, v := range obj {
		if _, skip := omitSet[k]; skip {
			delete(obj, k)
			continue
		}
		if v == nil {
			delete(obj, k)
		}
	}
	body, err := marshalCanonical(obj)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		return body, nil
	}
	out := make([]byte, 0, len(prefix)+len(body))
	out = append(out, prefix...)
	out = append(out, body...)
	return out, nil
}
