package multisig

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"testing"

	"github.com/stackdump/ledgersig/internal/authenticator"
	"github.com/stackdump/ledgersig/internal/authz"
	"github.com/stackdump/ledgersig/internal/chainstub"
	"github.com/stackdump/ledgersig/internal/cryptosig"
	"github.com/stackdump/ledgersig/internal/envelope"
	"github.com/stackdump/ledgersig/internal/ledgererr"
	"github.com/stackdump/ledgersig/internal/ledgerstore"
)

func buildEnvelope(t *testing.T, priv *ecdsa.PrivateKey, fields map[string]any) *envelope.Envelope {
	t.Helper()
	body := map[string]any{"uniqueKey": "u1"}
	for k, v := range fields {
		body[k] = v
	}
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	env, err := envelope.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	payload, err := env.CanonicalPayload()
	if err != nil {
		t.Fatalf("canonical payload: %v", err)
	}
	sig, err := cryptosig.Sign(payload, priv)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	env.Signatures = []envelope.SignatureEntry{{Signature: sig}}
	return env
}

func newTestWallet(t *testing.T) (*Wallet, *ledgerstore.MemStore, *chainstub.FakeStub) {
	t.Helper()
	store := ledgerstore.NewMemStore()
	stub := chainstub.NewFakeStub("tx1")
	wallet := &Wallet{
		Store: store,
		Stub:  stub,
		AuthDeps: authenticator.Deps{
			Store: store,
			Bootstrap: authenticator.BootstrapConfig{
				AllowNonRegisteredUsers: true,
				DefaultRoles:            []string{"MEMBER"},
			},
		},
	}
	return wallet, store, stub
}

var defaultPolicy = authz.OperationPolicy{MinSignatures: 1, Type: authz.SUBMIT}

func TestCreateMultisigPersistsAndEmits(t *testing.T) {
	ctx := context.Background()
	wallet, store, stub := newTestWallet(t)
	priv, _ := cryptosig.GenerateKey()
	owner := cryptosig.AddressFromPrivateKey(priv)

	env := buildEnvelope(t, priv, map[string]any{
		"walletId": "W1", "owners": []string{owner, "0xbbb"}, "threshold": 2,
	})
	if err := wallet.CreateMultisig(ctx, env, defaultPolicy); err != nil {
		t.Fatalf("CreateMultisig failed: %v", err)
	}

	state, err := store.GetMultisig(ctx, "W1")
	if err != nil || state == nil {
		t.Fatalf("expected persisted wallet, got %+v err=%v", state, err)
	}
	if state.Threshold != 2 || state.Nonce != 0 {
		t.Errorf("unexpected state: %+v", state)
	}
	events := stub.Events()
	if len(events) != 1 || events[0].Name != "MultisigCreated" {
		t.Fatalf("expected MultisigCreated event, got %+v", events)
	}
}

func TestCreateMultisigRejectsExisting(t *testing.T) {
	ctx := context.Background()
	wallet, _, _ := newTestWallet(t)
	priv, _ := cryptosig.GenerateKey()
	owner := cryptosig.AddressFromPrivateKey(priv)

	env := buildEnvelope(t, priv, map[string]any{"walletId": "W1", "owners": []string{owner}, "threshold": 1})
	if err := wallet.CreateMultisig(ctx, env, defaultPolicy); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	env2 := buildEnvelope(t, priv, map[string]any{"walletId": "W1", "owners": []string{owner}, "threshold": 1})
	err := wallet.CreateMultisig(ctx, env2, defaultPolicy)
	if !ledgererr.Of(err, ledgererr.KindValidationFailed) {
		t.Fatalf("expected ValidationFailed for duplicate wallet, got %v", err)
	}
}

func TestCreateMultisigRejectsInvalidThreshold(t *testing.T) {
	ctx := context.Background()
	wallet, _, _ := newTestWallet(t)
	priv, _ := cryptosig.GenerateKey()
	owner := cryptosig.AddressFromPrivateKey(priv)

	env := buildEnvelope(t, priv, map[string]any{"walletId": "W2", "owners": []string{owner}, "threshold": 0})
	err := wallet.CreateMultisig(ctx, env, defaultPolicy)
	if !ledgererr.Of(err, ledgererr.KindValidationFailed) {
		t.Fatalf("expected ValidationFailed for zero threshold, got %v", err)
	}
}

func TestSubmitTxAssignsNonceAndRequiresOwner(t *testing.T) {
	ctx := context.Background()
	wallet, _, stub := newTestWallet(t)
	priv, _ := cryptosig.GenerateKey()
	owner := cryptosig.AddressFromPrivateKey(priv)

	createEnv := buildEnvelope(t, priv, map[string]any{"walletId": "W3", "owners": []string{owner, "0xbbb"}, "threshold": 2})
	if err := wallet.CreateMultisig(ctx, createEnv, defaultPolicy); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	submitEnv := buildEnvelope(t, priv, map[string]any{"walletId": "W3", "to": "0xdest", "data": "0xdeadbeef"})
	nonce, executed, err := wallet.SubmitTx(ctx, submitEnv, defaultPolicy)
	if err != nil {
		t.Fatalf("SubmitTx failed: %v", err)
	}
	if nonce != 0 || executed {
		t.Errorf("expected nonce 0, not executed (threshold 2), got nonce=%d executed=%v", nonce, executed)
	}
	found := false
	for _, e := range stub.Events() {
		if e.Name == "TxSubmitted" {
			found = true
		}
	}
	if !found {
		t.Error("expected a TxSubmitted event")
	}
}

func TestSubmitTxRejectsNonOwner(t *testing.T) {
	ctx := context.Background()
	wallet, _, _ := newTestWallet(t)
	owner1Priv, _ := cryptosig.GenerateKey()
	owner1 := cryptosig.AddressFromPrivateKey(owner1Priv)
	outsiderPriv, _ := cryptosig.GenerateKey()

	createEnv := buildEnvelope(t, owner1Priv, map[string]any{"walletId": "W4", "owners": []string{owner1}, "threshold": 1})
	_ = wallet.CreateMultisig(ctx, createEnv, defaultPolicy)

	submitEnv := buildEnvelope(t, outsiderPriv, map[string]any{"walletId": "W4", "to": "0xdest", "data": "0x"})
	_, _, err := wallet.SubmitTx(ctx, submitEnv, defaultPolicy)
	if !ledgererr.Of(err, ledgererr.KindValidationFailed) {
		t.Fatalf("expected ValidationFailed for non-owner submit, got %v", err)
	}
}

func TestSubmitTxAutoExecutesAtThresholdOne(t *testing.T) {
	ctx := context.Background()
	wallet, _, stub := newTestWallet(t)
	priv, _ := cryptosig.GenerateKey()
	owner := cryptosig.AddressFromPrivateKey(priv)

	createEnv := buildEnvelope(t, priv, map[string]any{"walletId": "W5", "owners": []string{owner}, "threshold": 1})
	_ = wallet.CreateMultisig(ctx, createEnv, defaultPolicy)

	submitEnv := buildEnvelope(t, priv, map[string]any{"walletId": "W5", "to": "0xdest", "data": "0x"})
	nonce, executed, err := wallet.SubmitTx(ctx, submitEnv, defaultPolicy)
	if err != nil {
		t.Fatalf("SubmitTx failed: %v", err)
	}
	if nonce != 0 || !executed {
		t.Fatalf("expected auto-execute at threshold 1, got nonce=%d executed=%v", nonce, executed)
	}
	var sawExecuted bool
	for _, e := range stub.Events() {
		if e.Name == "TxExecuted" {
			sawExecuted = true
		}
	}
	if !sawExecuted {
		t.Error("expected a TxExecuted event on auto-execute")
	}
}

func TestConfirmTxExecutesAtThreshold(t *testing.T) {
	ctx := context.Background()
	wallet, store, stub := newTestWallet(t)
	priv1, _ := cryptosig.GenerateKey()
	priv2, _ := cryptosig.GenerateKey()
	owner1 := cryptosig.AddressFromPrivateKey(priv1)
	owner2 := cryptosig.AddressFromPrivateKey(priv2)

	createEnv := buildEnvelope(t, priv1, map[string]any{"walletId": "W6", "owners": []string{owner1, owner2}, "threshold": 2})
	_ = wallet.CreateMultisig(ctx, createEnv, defaultPolicy)

	submitEnv := buildEnvelope(t, priv1, map[string]any{"walletId": "W6", "to": "0xdest", "data": "0x"})
	nonce, executed, err := wallet.SubmitTx(ctx, submitEnv, defaultPolicy)
	if err != nil || executed {
		t.Fatalf("unexpected submit result: nonce=%d executed=%v err=%v", nonce, executed, err)
	}

	confirmEnv := buildEnvelope(t, priv2, map[string]any{"walletId": "W6", "nonce": nonce})
	executed, err = wallet.ConfirmTx(ctx, confirmEnv, defaultPolicy)
	if err != nil {
		t.Fatalf("ConfirmTx failed: %v", err)
	}
	if !executed {
		t.Fatal("expected execution once threshold reached")
	}
	state, _ := store.GetMultisig(ctx, "W6")
	if _, ok := state.PendingTxs[nonce]; ok {
		t.Error("expected pending tx removed after execution")
	}
	var sawExecuted bool
	for _, e := range stub.Events() {
		if e.Name == "TxExecuted" {
			sawExecuted = true
		}
	}
	if !sawExecuted {
		t.Error("expected a TxExecuted event")
	}
}

func TestConfirmTxRejectsDuplicateConfirmation(t *testing.T) {
	ctx := context.Background()
	wallet, _, _ := newTestWallet(t)
	priv1, _ := cryptosig.GenerateKey()
	owner1 := cryptosig.AddressFromPrivateKey(priv1)
	priv2, _ := cryptosig.GenerateKey()
	owner2 := cryptosig.AddressFromPrivateKey(priv2)

	createEnv := buildEnvelope(t, priv1, map[string]any{"walletId": "W7", "owners": []string{owner1, owner2}, "threshold": 2})
	_ = wallet.CreateMultisig(ctx, createEnv, defaultPolicy)
	submitEnv := buildEnvelope(t, priv1, map[string]any{"walletId": "W7", "to": "0xdest", "data": "0x"})
	nonce, _, _ := wallet.SubmitTx(ctx, submitEnv, defaultPolicy)

	dupEnv := buildEnvelope(t, priv1, map[string]any{"walletId": "W7", "nonce": nonce})
	_, err := wallet.ConfirmTx(ctx, dupEnv, defaultPolicy)
	if !ledgererr.Of(err, ledgererr.KindValidationFailed) {
		t.Fatalf("expected ValidationFailed for duplicate confirmation, got %v", err)
	}
}

func TestGetWalletReturnsCurrentState(t *testing.T) {
	ctx := context.Background()
	wallet, _, _ := newTestWallet(t)
	priv, _ := cryptosig.GenerateKey()
	owner := cryptosig.AddressFromPrivateKey(priv)

	createEnv := buildEnvelope(t, priv, map[string]any{"walletId": "W8", "owners": []string{owner}, "threshold": 1})
	_ = wallet.CreateMultisig(ctx, createEnv, defaultPolicy)

	getEnv := buildEnvelope(t, priv, map[string]any{"walletId": "W8"})
	state, err := wallet.GetWallet(ctx, getEnv, authz.OperationPolicy{MinSignatures: 1, Type: authz.EVALUATE})
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	if state.WalletID != "W8" {
		t.Errorf("unexpected wallet id: %s", state.WalletID)
	}
}

func TestGetWalletNotFound(t *testing.T) {
	ctx := context.Background()
	wallet, _, _ := newTestWallet(t)
	priv, _ := cryptosig.GenerateKey()

	getEnv := buildEnvelope(t, priv, map[string]any{"walletId": "missing"})
	_, err := wallet.GetWallet(ctx, getEnv, authz.OperationPolicy{MinSignatures: 1, Type: authz.EVALUATE})
	if !ledgererr.Of(err, ledgererr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
