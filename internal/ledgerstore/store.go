package ledgerstore

import "context"

// Store is the authenticator's dependency on the ledger key-value store:
// three reads and two writes for public keys and user profiles, plus
// invalidation.
type Store interface {
	GetPublicKey(ctx context.Context, alias string) (*PublicKey, error)
	GetUserProfile(ctx context.Context, address string) (*UserProfile, error)
	GetUserProfiles(ctx context.Context, addresses []string) ([]*UserProfile, error)
	PutPublicKey(ctx context.Context, alias string, key *PublicKey) error
	PutUserProfile(ctx context.Context, address string, profile *UserProfile) error
	InvalidateUserProfile(ctx context.Context, address string) error
}

// MultisigStore is the wallet state machine's dependency on the ledger
// store: load and persist one wallet's full state per transaction.
type MultisigStore interface {
	GetMultisig(ctx context.Context, walletID string) (*MultisigState, error)
	PutMultisig(ctx context.Context, state *MultisigState) error
}

// ReplayStore tracks consumed uniqueKey values for SUBMIT-class operations,
// the store-backed set spec §5 describes as living outside the
// authenticator's hot path.
type ReplayStore interface {
	IsConsumed(ctx context.Context, uniqueKey string) (bool, error)
	MarkConsumed(ctx context.Context, uniqueKey string) error
}

// LedgerStore is the full surface the CLI/demo driver wires up: one
// backend implementing all three capabilities, the way a real chaincode's
// stub would.
type LedgerStore interface {
	Store
	MultisigStore
	ReplayStore
}
