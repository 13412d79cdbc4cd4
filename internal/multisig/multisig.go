// Package multisig implements the M-of-N wallet state machine of
// spec.md §4.6: createMultisig, submitTx, confirmTx, getWallet. Every
// operation runs envelope → authenticator → authorization gate → state
// mutation, then emits its lifecycle event through the chaincode stub.
package multisig

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stackdump/ledgersig/internal/authenticator"
	"github.com/stackdump/ledgersig/internal/authz"
	"github.com/stackdump/ledgersig/internal/chainstub"
	"github.com/stackdump/ledgersig/internal/envelope"
	"github.com/stackdump/ledgersig/internal/ledgererr"
	"github.com/stackdump/ledgersig/internal/ledgerevents"
	"github.com/stackdump/ledgersig/internal/ledgerstore"
)

// Wallet is the multisig wallet state machine, wired to its store, stub,
// and the authenticator's dependencies.
type Wallet struct {
	Store    ledgerstore.MultisigStore
	Stub     chainstub.Stub
	AuthDeps authenticator.Deps
}

type createMultisigFields struct {
	WalletID  string   `json:"walletId"`
	Owners    []string `json:"owners"`
	Threshold int      `json:"threshold"`
}

type submitTxFields struct {
	WalletID string `json:"walletId"`
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value,omitempty"`
}

type confirmTxFields struct {
	WalletID string `json:"walletId"`
	Nonce    int    `json:"nonce"`
}

type getWalletFields struct {
	WalletID string `json:"walletId"`
}

func parseFields(env *envelope.Envelope, out any) error {
	if err := json.Unmarshal(env.Raw, out); err != nil {
		return fmt.Errorf("invalid request fields: %w", err)
	}
	return nil
}

// authenticateAndAuthorize runs the shared envelope → authenticator →
// authorization-gate pipeline every wallet operation starts with.
func (w *Wallet) authenticateAndAuthorize(ctx context.Context, env *envelope.Envelope, policy authz.OperationPolicy) (*authenticator.AuthResult, error) {
	result, err := authenticator.Authenticate(ctx, env, int(policy.MinSignatures), w.AuthDeps)
	if err != nil {
		return nil, err
	}
	if err := authz.Enforce(result.Users, policy); err != nil {
		return nil, err
	}
	return result, nil
}

func submitterAddress(users []authenticator.UserView) string {
	if len(users) == 0 {
		return ""
	}
	if users[0].EthAddress != "" {
		return users[0].EthAddress
	}
	return users[0].TonAddress
}

// CreateMultisig validates threshold and owner-count invariants, persists a
// new MultisigState at nonce 0 with an empty pending set, and emits
// MultisigCreated. Fails ValidationFailed if a wallet already exists at
// the requested id.
func (w *Wallet) CreateMultisig(ctx context.Context, env *envelope.Envelope, policy authz.OperationPolicy) error {
	if _, err := w.authenticateAndAuthorize(ctx, env, policy); err != nil {
		return err
	}
	var fields createMultisigFields
	if err := parseFields(env, &fields); err != nil {
		return ledgererr.ValidationFailed(err.Error())
	}
	if fields.Threshold <= 0 {
		return ledgererr.ValidationFailed("threshold must be greater than zero")
	}
	if len(fields.Owners) < fields.Threshold {
		return ledgererr.ValidationFailed("owners count must be at least threshold")
	}
	existing, err := w.Store.GetMultisig(ctx, fields.WalletID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ledgererr.ValidationFailed("wallet already exists")
	}
	state := &ledgerstore.MultisigState{
		WalletID:   fields.WalletID,
		Owners:     fields.Owners,
		Threshold:  fields.Threshold,
		Nonce:      0,
		PendingTxs: map[int]*ledgerstore.PendingTx{},
	}
	if err := w.Store.PutMultisig(ctx, state); err != nil {
		return err
	}
	return ledgerevents.Emit(w.Stub, "MultisigCreated", ledgerevents.MultisigCreated{
		WalletID: state.WalletID, Owners: state.Owners, Threshold: state.Threshold,
	})
}

// SubmitTx loads the wallet, verifies the authenticated submitter is an
// owner, assigns the next nonce, records the pending transaction with the
// submitter as its first confirmation, and auto-executes when the
// wallet's threshold is 1. Returns the assigned nonce and whether it
// executed immediately.
func (w *Wallet) SubmitTx(ctx context.Context, env *envelope.Envelope, policy authz.OperationPolicy) (int, bool, error) {
	auth, err := w.authenticateAndAuthorize(ctx, env, policy)
	if err != nil {
		return 0, false, err
	}
	var fields submitTxFields
	if err := parseFields(env, &fields); err != nil {
		return 0, false, ledgererr.ValidationFailed(err.Error())
	}
	state, err := w.Store.GetMultisig(ctx, fields.WalletID)
	if err != nil {
		return 0, false, err
	}
	if state == nil {
		return 0, false, ledgererr.NotFound("wallet", fields.WalletID)
	}
	submitter := submitterAddress(auth.Users)
	if !state.IsOwner(submitter) {
		return 0, false, ledgererr.ValidationFailed("not an owner")
	}

	nonce := state.Nonce
	state.PendingTxs[nonce] = &ledgerstore.PendingTx{
		To:            fields.To,
		Data:          fields.Data,
		Confirmations: []string{submitter},
	}
	state.Nonce++

	executed := state.Threshold == 1
	if executed {
		delete(state.PendingTxs, nonce)
	}
	if err := w.Store.PutMultisig(ctx, state); err != nil {
		return 0, false, err
	}
	digest, err := ledgerstore.TxDigest(fields.To, fields.Data, nonce)
	if err != nil {
		return 0, false, err
	}
	if err := ledgerevents.Emit(w.Stub, "TxSubmitted", ledgerevents.TxSubmitted{
		WalletID: state.WalletID, Nonce: nonce, To: fields.To, Value: fields.Value, Digest: digest,
	}); err != nil {
		return 0, false, err
	}
	if executed {
		if err := ledgerevents.Emit(w.Stub, "TxExecuted", ledgerevents.TxExecuted{
			WalletID: state.WalletID, Nonce: nonce, Digest: digest,
		}); err != nil {
			return 0, false, err
		}
	}
	return nonce, executed, nil
}

// ConfirmTx appends the authenticated confirmer's address to the pending
// transaction at the requested nonce, rejecting non-owners and duplicate
// confirmations, and executes (removing the entry, emitting TxExecuted)
// once confirmations reach the wallet's threshold.
func (w *Wallet) ConfirmTx(ctx context.Context, env *envelope.Envelope, policy authz.OperationPolicy) (bool, error) {
	auth, err := w.authenticateAndAuthorize(ctx, env, policy)
	if err != nil {
		return false, err
	}
	var fields confirmTxFields
	if err := parseFields(env, &fields); err != nil {
		return false, ledgererr.ValidationFailed(err.Error())
	}
	state, err := w.Store.GetMultisig(ctx, fields.WalletID)
	if err != nil {
		return false, err
	}
	if state == nil {
		return false, ledgererr.NotFound("wallet", fields.WalletID)
	}
	confirmer := submitterAddress(auth.Users)
	if !state.IsOwner(confirmer) {
		return false, ledgererr.ValidationFailed("not an owner")
	}
	pending, ok := state.PendingTxs[fields.Nonce]
	if !ok {
		return false, ledgererr.ValidationFailed("no pending transaction at that nonce")
	}
	if pending.HasConfirmed(confirmer) {
		return false, ledgererr.ValidationFailed("already confirmed")
	}
	pending.Confirmations = append(pending.Confirmations, confirmer)

	executed := len(pending.Confirmations) >= state.Threshold
	if executed {
		delete(state.PendingTxs, fields.Nonce)
	}
	if err := w.Store.PutMultisig(ctx, state); err != nil {
		return false, err
	}
	if executed {
		digest, err := ledgerstore.TxDigest(pending.To, pending.Data, fields.Nonce)
		if err != nil {
			return false, err
		}
		if err := ledgerevents.Emit(w.Stub, "TxExecuted", ledgerevents.TxExecuted{
			WalletID: state.WalletID, Nonce: fields.Nonce, Digest: digest,
		}); err != nil {
			return false, err
		}
	}
	return executed, nil
}

// GetWallet returns the wallet's current persisted state. No signer check
// beyond the envelope's own authentication is applied.
func (w *Wallet) GetWallet(ctx context.Context, env *envelope.Envelope, policy authz.OperationPolicy) (*ledgerstore.MultisigState, error) {
	if _, err := w.authenticateAndAuthorize(ctx, env, policy); err != nil {
		return nil, err
	}
	var fields getWalletFields
	if err := parseFields(env, &fields); err != nil {
		return nil, ledgererr.ValidationFailed(err.Error())
	}
	state, err := w.Store.GetMultisig(ctx, fields.WalletID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ledgererr.NotFound("wallet", fields.WalletID)
	}
	return state, nil
}
