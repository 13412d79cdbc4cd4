package chainstub

import (
	"context"
	"fmt"
	"sync"
)

// Event is one SetEvent call recorded by FakeStub, in call order.
type Event struct {
	Name    string
	Payload []byte
}

// FakeStub is an in-memory Stub for tests and cmd/ledgerctl's demo driver.
// Grounded on the teacher's preference for small, explicit in-memory fakes
// over mocking frameworks (internal/integration's fixture helpers).
type FakeStub struct {
	mu sync.Mutex

	txID string
	state map[string][]byte
	events []Event

	// proposalKey and callerChaincode drive GetSignedProposal: when
	// callerChaincode is set, GetSignedProposal signs a proposal token
	// asserting that chaincode made the call.
	proposalKey     []byte
	callerChaincode string
}

// NewFakeStub returns an empty FakeStub with the given transaction id.
func NewFakeStub(txID string) *FakeStub {
	return &FakeStub{
		txID:        txID,
		state:       make(map[string][]byte),
		proposalKey: []byte("fake-stub-proposal-key"),
	}
}

// SetCallerChaincode configures the chaincode name GetSignedProposal will
// assert as the caller, simulating an incoming chaincode-to-chaincode
// invocation for the origin-chaincode branch.
func (f *FakeStub) SetCallerChaincode(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callerChaincode = name
}

func (f *FakeStub) GetState(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.state[key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (f *FakeStub) PutState(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	f.state[key] = cp
	return nil
}

func (f *FakeStub) SetEvent(name string, payload []byte) error {
	if name == "" {
		return fmt.Errorf("event name cannot be empty")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.events = append(f.events, Event{Name: name, Payload: cp})
	return nil
}

func (f *FakeStub) GetTxID() string {
	return f.txID
}

// GetSignedProposal returns a signed proposal token asserting
// callerChaincode as the invoker, or an error if no caller chaincode was
// configured (the ordinary user-signed-envelope path never calls this).
func (f *FakeStub) GetSignedProposal() ([]byte, error) {
	f.mu.Lock()
	caller := f.callerChaincode
	key := f.proposalKey
	f.mu.Unlock()
	if caller == "" {
		return nil, fmt.Errorf("no signed proposal available: not a chaincode-to-chaincode invocation")
	}
	return SignProposal(caller, key)
}

// ProposalKey exposes the key FakeStub signs proposals with, so tests and
// cmd/ledgerctl can verify decoded proposals against the same key.
func (f *FakeStub) ProposalKey() []byte {
	return f.proposalKey
}

// Events returns the events recorded so far, in call order.
func (f *FakeStub) Events() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}
