package envelope

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// schemaDocument is the JSON Schema every inbound envelope is validated
// against before Parse attempts to interpret it, catching malformed shapes
// (wrong types, a signatures entry without a signature field) with a
// readable error instead of a silent zero-value Envelope.
const schemaDocument = `{
  "type": "object",
  "properties": {
    "signing": {"type": "string", "enum": ["ETH", "TON"]},
    "prefix": {"type": "string"},
    "uniqueKey": {"type": "string"},
    "signature": {"type": "string"},
    "signerAddress": {"type": "string"},
    "signatures": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "signature": {"type": "string"},
          "signerPublicKey": {"type": "string"},
          "signerAddress": {"type": "string"}
        },
        "required": ["signature"]
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(schemaDocument)

// Validate checks raw against the envelope JSON Schema. It is a shape
// check only; semantic rules (redundant signer fields, duplicate signers,
// conflicting top-level signature) are enforced later by the authenticator.
func Validate(raw []byte) error {
	docLoader := gojsonschema.NewBytesLoader(raw)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("validate envelope: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("envelope failed schema validation: %s", strings.Join(msgs, "; "))
}

// ParseValidated is Parse preceded by schema Validation, the entry point
// CLI/RPC wrappers outside the CORE should call on untrusted input.
func ParseValidated(raw []byte) (*Envelope, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	return Parse(raw)
}
