package ledgerstore

import (
	"context"
	"sync"
)

// MemStore is a sync.RWMutex-guarded in-memory LedgerStore, the backend
// every unit test in this module runs against. Grounded on the teacher's
// use of a mutex to guard read-modify-write sequences in internal/store
// and internal/seal's cached-singleton pattern.
type MemStore struct {
	mu           sync.RWMutex
	publicKeys   map[string]*PublicKey
	profiles     map[string]*UserProfile
	wallets      map[string]*MultisigState
	consumedKeys map[string]struct{}
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		publicKeys:   make(map[string]*PublicKey),
		profiles:     make(map[string]*UserProfile),
		wallets:      make(map[string]*MultisigState),
		consumedKeys: make(map[string]struct{}),
	}
}

func (s *MemStore) GetPublicKey(_ context.Context, alias string) (*PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pk, ok := s.publicKeys[PublicKeyKey(alias)]
	if !ok {
		return nil, nil
	}
	cp := *pk
	return &cp, nil
}

func (s *MemStore) GetUserProfile(_ context.Context, address string) (*UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[UserProfileKey(address)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *MemStore) GetUserProfiles(_ context.Context, addresses []string) ([]*UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*UserProfile, 0, len(addresses))
	for _, addr := range addresses {
		if p, ok := s.profiles[UserProfileKey(addr)]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemStore) PutPublicKey(_ context.Context, alias string, key *PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *key
	s.publicKeys[PublicKeyKey(alias)] = &cp
	return nil
}

func (s *MemStore) PutUserProfile(_ context.Context, address string, profile *UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *profile
	s.profiles[UserProfileKey(address)] = &cp
	return nil
}

func (s *MemStore) InvalidateUserProfile(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[UserProfileKey(address)] = &UserProfile{Alias: TombstoneAlias, Roles: nil}
	return nil
}

func (s *MemStore) GetMultisig(_ context.Context, walletID string) (*MultisigState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.wallets[WalletKey(walletID)]
	if !ok {
		return nil, nil
	}
	return cloneMultisig(m), nil
}

func (s *MemStore) PutMultisig(_ context.Context, state *MultisigState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[WalletKey(state.WalletID)] = cloneMultisig(state)
	return nil
}

func (s *MemStore) IsConsumed(_ context.Context, uniqueKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.consumedKeys[uniqueKey]
	return ok, nil
}

func (s *MemStore) MarkConsumed(_ context.Context, uniqueKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumedKeys[uniqueKey] = struct{}{}
	return nil
}

func cloneMultisig(m *MultisigState) *MultisigState {
	cp := &MultisigState{
		WalletID:   m.WalletID,
		Owners:     append([]string(nil), m.Owners...),
		Threshold:  m.Threshold,
		Nonce:      m.Nonce,
		PendingTxs: make(map[int]*PendingTx, len(m.PendingTxs)),
	}
	for n, tx := range m.PendingTxs {
		cp.PendingTxs[n] = &PendingTx{
			To:            tx.To,
			Data:          tx.Data,
			Confirmations: append([]string(nil), tx.Confirmations...),
		}
	}
	return cp
}
