// Package ledgererr defines the typed failure kinds produced by the
// signature authenticator, authorization gate, and multisig wallet state
// machine. Every failure is one of a fixed set of kinds carrying stable
// fields a caller can dispatch on, rather than an opaque string.
package ledgererr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a ledger error.
type Kind string

const (
	KindMissingSignature        Kind = "MissingSignature"
	KindMissingSigner           Kind = "MissingSigner"
	KindPublicKeyMismatch       Kind = "PublicKeyMismatch"
	KindAddressMismatch         Kind = "AddressMismatch"
	KindRedundantSignerPubKey   Kind = "RedundantSignerPublicKey"
	KindRedundantSignerAddress  Kind = "RedundantSignerAddress"
	KindDuplicateSigner         Kind = "DuplicateSigner"
	KindPkInvalidSignature      Kind = "PkInvalidSignature"
	KindPkMissing               Kind = "PkMissing"
	KindUserNotRegistered       Kind = "UserNotRegistered"
	KindChaincodeAuthorization  Kind = "ChaincodeAuthorization"
	KindForbidden               Kind = "Forbidden"
	KindMissingRole             Kind = "MissingRole"
	KindNotFound                Kind = "NotFound"
	KindValidationFailed        Kind = "ValidationFailed"
)

// Error is the concrete type behind every ledgererr constructor. Fields
// carries the diagnostic payload named in spec §7 (e.g. "recovered",
// "provided", "alias") so a caller can inspect it without parsing Error().
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is(err, &ledgererr.Error{Kind: ledgererr.KindX}) style
// checks work by comparing Kind only; targets that are not *Error never match.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newErr(kind Kind, fields map[string]any, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Fields: fields}
}

func MissingSignature() *Error {
	return newErr(KindMissingSignature, nil, "no signatures present and sender is not a service chaincode")
}

func MissingSigner(signature string) *Error {
	return newErr(KindMissingSigner, map[string]any{"signature": signature},
		"signature entry has neither signerAddress nor signerPublicKey and is not recoverable")
}

func PublicKeyMismatch(recovered, provided string) *Error {
	return newErr(KindPublicKeyMismatch, map[string]any{"recovered": recovered, "provided": provided},
		"recovered public key %s does not match provided public key %s", recovered, provided)
}

func AddressMismatch(recovered, provided string) *Error {
	return newErr(KindAddressMismatch, map[string]any{"recovered": recovered, "provided": provided},
		"recovered address %s does not match provided address %s", recovered, provided)
}

func RedundantSignerPublicKey(recovered, inDto string) *Error {
	return newErr(KindRedundantSignerPubKey, map[string]any{"recovered": recovered, "inDto": inDto},
		"signerPublicKey %s is redundant; it matches the recoverable public key", inDto)
}

func RedundantSignerAddress(recovered, inDto string) *Error {
	return newErr(KindRedundantSignerAddress, map[string]any{"recovered": recovered, "inDto": inDto},
		"signerAddress %s is redundant; it matches the recoverable address", inDto)
}

func DuplicateSigner(address string) *Error {
	return newErr(KindDuplicateSigner, map[string]any{"address": address},
		"signer %s appears more than once in this envelope", address)
}

func PkInvalidSignature(alias string) *Error {
	return newErr(KindPkInvalidSignature, map[string]any{"alias": alias},
		"signature verification failed for %s", alias)
}

func PkMissing(alias string) *Error {
	return newErr(KindPkMissing, map[string]any{"alias": alias},
		"no public key record for %s", alias)
}

func UserNotRegistered(userID string) *Error {
	return newErr(KindUserNotRegistered, map[string]any{"userId": userID},
		"user %s is not registered", userID)
}

func ChaincodeAuthorization(message string) *Error {
	return newErr(KindChaincodeAuthorization, nil, "%s", message)
}

func Forbidden(required, received int) *Error {
	return newErr(KindForbidden, map[string]any{"required": required, "received": received},
		"requires at least %d signatures but got %d", required, received)
}

func MissingRole(alias string, required, has []string) *Error {
	return newErr(KindMissingRole, map[string]any{"alias": alias, "required": required, "has": has},
		"signer %s lacks required role(s) %v (has %v)", alias, required, has)
}

func NotFound(kind, id string) *Error {
	return newErr(KindNotFound, map[string]any{"id": id},
		"%s %s not found", kind, id)
}

func ValidationFailed(message string) *Error {
	return newErr(KindValidationFailed, nil, "%s", message)
}

// WithSigner annotates err with " (signer: <id>)" per the per-signature-loop
// rule: id is signerAddress, falling back to signerPublicKey, falling back
// to the entry index, in that order of preference.
func WithSigner(err error, address, publicKey string, index int) error {
	if err == nil {
		return nil
	}
	id := address
	if id == "" {
		id = publicKey
	}
	if id == "" {
		id = fmt.Sprintf("%d", index)
	}
	var led *Error
	if errors.As(err, &led) {
		wrapped := *led
		wrapped.Message = fmt.Sprintf("%s (signer: %s)", led.Message, id)
		wrapped.cause = err
		return &wrapped
	}
	return fmt.Errorf("%w (signer: %s)", err, id)
}

// Of reports whether err's Kind matches kind.
func Of(err error, kind Kind) bool {
	var led *Error
	if errors.As(err, &led) {
		return led.Kind == kind
	}
	return false
}
