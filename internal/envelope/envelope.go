// Package envelope models the signed request envelope: an ordered list of
// signature entries over a scheme tag, an optional domain-separation
// prefix, and a replay-protecting uniqueKey, plus the operation-specific
// payload carried alongside them.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/stackdump/ledgersig/pkg/canonical"
)

// SigningScheme is the signature algorithm an envelope's signatures use.
type SigningScheme string

const (
	SchemeETH SigningScheme = "ETH"
	SchemeTON SigningScheme = "TON"
)

// UnmarshalJSON defaults an empty "signing" value to ETH; Parse applies the
// same default when the field is absent.
func (s *SigningScheme) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		*s = SchemeETH
		return nil
	}
	*s = SigningScheme(raw)
	return nil
}

// SignatureEntry is one signer's contribution to an envelope.
type SignatureEntry struct {
	Signature       string `json:"signature"`
	SignerPublicKey string `json:"signerPublicKey,omitempty"`
	SignerAddress   string `json:"signerAddress,omitempty"`
}

// Envelope is the signed request structure. Raw carries the whole document
// verbatim, operation-specific fields included, so CanonicalPayload can
// reconstruct exactly what was signed.
type Envelope struct {
	Signing    SigningScheme    `json:"signing"`
	Prefix     string           `json:"prefix,omitempty"`
	UniqueKey  string           `json:"uniqueKey,omitempty"`
	Signature  string           `json:"signature,omitempty"`
	Signatures []SignatureEntry `json:"signatures,omitempty"`
	// SignerAddress is only meaningful on the empty-signature path: a
	// "service|<name>" sender authenticating via the origin-chaincode
	// branch rather than a user signature.
	SignerAddress string          `json:"signerAddress,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

// Parse decodes raw into an Envelope, retaining the full document in Raw so
// CanonicalPayload can later strip exactly the fields spec §4.1 names.
func Parse(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope json: %w", err)
	}
	if env.Signing == "" {
		env.Signing = SchemeETH
	}
	env.Raw = json.RawMessage(append([]byte(nil), raw...))
	return &env, nil
}

// ResolvedSignatures implements the top-level-signature-is-sugar rule of
// spec §4.2: a lone top-level Signature becomes a one-entry list; a
// top-level Signature alongside a Signatures list is only accepted when the
// list has exactly one entry carrying the same signature, and is otherwise
// a hard error.
func (e *Envelope) ResolvedSignatures() ([]SignatureEntry, error) {
	switch {
	case e.Signature == "" && len(e.Signatures) == 0:
		return nil, nil
	case e.Signature == "":
		return e.Signatures, nil
	case len(e.Signatures) == 0:
		return []SignatureEntry{{Signature: e.Signature}}, nil
	default:
		if len(e.Signatures) == 1 && e.Signatures[0].Signature == e.Signature {
			return e.Signatures, nil
		}
		return nil, fmt.Errorf("envelope carries both a top-level signature and a conflicting signatures list")
	}
}

// CanonicalPayload returns the bytes every signer in this envelope signs:
// the envelope's JSON with signature/signatures/prefix fields and explicit
// nulls stripped, keys sorted at every level, with Prefix prepended as raw
// bytes ahead of the encoded JSON.
func (e *Envelope) CanonicalPayload() ([]byte, error) {
	if e.Raw == nil {
		return nil, fmt.Errorf("envelope has no backing document to canonicalize")
	}
	return canonical.Payload(e.Raw, e.Prefix)
}

// IsServiceSender reports whether signerAddress names an origin-chaincode
// sender ("service|<name>"), the only case an empty Signatures list is
// still an acceptable envelope.
func IsServiceSender(signerAddress string) bool {
	return bytes.HasPrefix([]byte(signerAddress), []byte("service|"))
}
