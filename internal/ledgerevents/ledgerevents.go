// Package ledgerevents emits the multisig wallet's lifecycle notifications
// (MultisigCreated, TxSubmitted, TxExecuted) through the chaincode stub's
// event channel, per spec.md §6: a thin, non-reliable-in-process side
// channel observed only on commit, never an in-process callback.
package ledgerevents

import (
	"encoding/json"
	"fmt"

	"github.com/stackdump/ledgersig/internal/chainstub"
)

// Emit JSON-encodes payload and calls stub.SetEvent(name, bytes).
func Emit(stub chainstub.Stub, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	return stub.SetEvent(name, data)
}

// MultisigCreated is the payload emitted when a new wallet is created.
type MultisigCreated struct {
	WalletID  string   `json:"walletId"`
	Owners    []string `json:"owners"`
	Threshold int      `json:"threshold"`
}

// TxSubmitted is the payload emitted when a transaction is queued.
type TxSubmitted struct {
	WalletID string `json:"walletId"`
	Nonce    int    `json:"nonce"`
	To       string `json:"to"`
	Value    string `json:"value,omitempty"`
	Digest   string `json:"digest"`
}

// TxExecuted is the payload emitted when a transaction reaches its
// confirmation threshold and is removed from the pending set.
type TxExecuted struct {
	WalletID string `json:"walletId"`
	Nonce    int    `json:"nonce"`
	Digest   string `json:"digest"`
}
