// Package chainstub models the ledger peer's chaincode shim surface: the
// narrow slice of a Hyperledger Fabric ChaincodeStubInterface the
// authenticator's origin-chaincode branch (spec §4.4a) and event emission
// (§6) depend on. Grounded on the teacher's internal/seal package, which
// treats the signing/hashing pipeline as the trusted boundary between "what
// the peer attests" and "what this module computes" — here the stub plays
// that same trusted-boundary role for proposals and events instead of CIDs.
package chainstub

import "context"

// Stub is the chaincode shim surface this module depends on. A real
// deployment wires this to shim.ChaincodeStubInterface; FakeStub backs
// tests and the cmd/ledgerctl demo driver.
type Stub interface {
	GetState(ctx context.Context, key string) ([]byte, error)
	PutState(ctx context.Context, key string, value []byte) error
	SetEvent(name string, payload []byte) error
	GetTxID() string
	// GetSignedProposal returns the peer-signed proposal bytes for the
	// in-flight transaction, the origin-chaincode branch's sole source of
	// truth for which chaincode actually invoked this one.
	GetSignedProposal() ([]byte, error)
}
