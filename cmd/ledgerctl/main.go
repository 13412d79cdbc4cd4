// Command ledgerctl is a standalone demo driver for the multisig wallet
// chaincode: it wires a FileStore-backed ledger, a FakeStub event sink, and
// the authenticator/authz/replay pipeline behind a set of subcommands,
// standing in for the peer a real chaincode would run inside.
//
// Adapted from the teacher's cmd/seal and cmd/keygen flag-subcommand style.
package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/stackdump/ledgersig/internal/authenticator"
	"github.com/stackdump/ledgersig/internal/authz"
	"github.com/stackdump/ledgersig/internal/chainstub"
	"github.com/stackdump/ledgersig/internal/config"
	"github.com/stackdump/ledgersig/internal/cryptosig"
	"github.com/stackdump/ledgersig/internal/envelope"
	"github.com/stackdump/ledgersig/internal/ledgererr"
	"github.com/stackdump/ledgersig/internal/ledgerstore"
	"github.com/stackdump/ledgersig/internal/logger"
	"github.com/stackdump/ledgersig/internal/multisig"
	"github.com/stackdump/ledgersig/internal/replay"
	"github.com/stackdump/ledgersig/internal/tonsig"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "register-key":
		err = runRegisterKey(args)
	case "register-profile":
		err = runRegisterProfile(args)
	case "create-multisig":
		err = runCreateMultisig(args)
	case "submit-tx":
		err = runSubmitTx(args)
	case "confirm-tx":
		err = runConfirmTx(args)
	case "get-wallet":
		err = runGetWallet(args)
	case "sign":
		err = runSign(args)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledgerctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: ledgerctl <command> [flags]

commands:
  register-key      write a PublicKey record for an alias
  register-profile  write a UserProfile record for an address
  create-multisig   submit a createMultisig envelope
  submit-tx         submit a submitTx envelope
  confirm-tx        submit a confirmTx envelope
  get-wallet        read back a wallet's current state
  sign              sign a JSON payload file with an ETH or TON key, printing an envelope`)
}

// demoLedger bundles the store, stub, and auth dependencies every
// subcommand but "sign" wires before dispatching into the multisig package.
type demoLedger struct {
	store ledgerstore.LedgerStore
	stub  *chainstub.FakeStub
	deps  authenticator.Deps
	log   logger.Logger
}

func newDemoLedger(storeDir string) (*demoLedger, error) {
	bootstrap, err := config.LoadBootstrap()
	if err != nil {
		return nil, fmt.Errorf("load bootstrap config: %w", err)
	}
	adminAddress := ""
	if bootstrap.AdminPublicKey != "" {
		adminAddress, err = cryptosig.Address(bootstrap.AdminPublicKey)
		if err != nil {
			return nil, fmt.Errorf("derive admin address from DEV_ADMIN_PUBLIC_KEY: %w", err)
		}
	}
	store := ledgerstore.NewFileStore(storeDir)
	stub := chainstub.NewFakeStub("ledgerctl-demo-tx")
	return &demoLedger{
		store: store,
		stub:  stub,
		deps: authenticator.Deps{
			Store:       store,
			Stub:        stub,
			ProposalKey: stub.ProposalKey(),
			Bootstrap: authenticator.BootstrapConfig{
				AdminAddress:            adminAddress,
				AdminAlias:              bootstrap.AdminUserID,
				AdminRoles:              bootstrap.AdminRoles,
				AllowNonRegisteredUsers: bootstrap.AllowNonRegisteredUsers,
				DefaultRoles:            config.DefaultRoles,
			},
		},
		log: logger.NewTextLogger(),
	}, nil
}

// dispatchSubmit wraps a SUBMIT-class operation with the replay guard,
// consuming env's uniqueKey before running fn, matching spec.md §4.8's
// "replay guard wraps the dispatch" wiring.
func (d *demoLedger) dispatchSubmit(ctx context.Context, env *envelope.Envelope, op string, fn func() error) error {
	guard := replay.Guard{Store: d.store}
	if err := guard.Consume(ctx, env.UniqueKey, authz.SUBMIT); err != nil {
		d.log.LogError(op, err)
		return err
	}
	if err := fn(); err != nil {
		d.log.LogError(op, err)
		return err
	}
	d.log.LogOperation(op, env.SignerAddress, map[string]any{"uniqueKey": env.UniqueKey})
	return nil
}

func readEnvelopeFile(path string) (*envelope.Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading envelope file %s: %w", path, err)
	}
	return envelope.ParseValidated(data)
}

func policyFromFlags(minSigs uint, roles string, opType authz.OperationType) authz.OperationPolicy {
	var required []string
	if roles != "" {
		required = append(required, roles)
	}
	return authz.OperationPolicy{MinSignatures: minSigs, RequiredRolesPerSigner: required, Type: opType}
}

// resolvePolicy looks opName up in the YAML file at policiesPath when one is
// given, otherwise falls back to the -min-signatures/-roles flag values.
func resolvePolicy(policiesPath, opName string, minSigs uint, roles string, opType authz.OperationType) (authz.OperationPolicy, error) {
	if policiesPath == "" {
		return policyFromFlags(minSigs, roles, opType), nil
	}
	docs, err := config.LoadOperationPolicyDocs(policiesPath)
	if err != nil {
		return authz.OperationPolicy{}, err
	}
	doc, ok := docs[opName]
	if !ok {
		return authz.OperationPolicy{}, fmt.Errorf("no policy entry for operation %q in %s", opName, policiesPath)
	}
	return doc.ToPolicy()
}

func runRegisterKey(args []string) error {
	fs := flag.NewFlagSet("register-key", flag.ExitOnError)
	storeDir := fs.String("store", "data", "ledger store directory")
	alias := fs.String("alias", "", "alias to register the key under, e.g. eth|0xabc...")
	pubKey := fs.String("pubkey", "", "public key (hex for eth, base64 for ton)")
	scheme := fs.String("scheme", "ETH", "signing scheme: ETH or TON")
	fs.Parse(args)

	if *alias == "" || *pubKey == "" {
		return fmt.Errorf("-alias and -pubkey are required")
	}
	ledger, err := newDemoLedger(*storeDir)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := ledger.store.PutPublicKey(ctx, *alias, &ledgerstore.PublicKey{PublicKey: *pubKey, Signing: *scheme}); err != nil {
		return err
	}
	fmt.Printf("registered public key for %s\n", *alias)
	return nil
}

func runRegisterProfile(args []string) error {
	fs := flag.NewFlagSet("register-profile", flag.ExitOnError)
	storeDir := fs.String("store", "data", "ledger store directory")
	alias := fs.String("alias", "", "user alias")
	ethAddr := fs.String("eth-address", "", "eth address, if any")
	tonAddr := fs.String("ton-address", "", "ton address, if any")
	roles := fs.String("roles", "MEMBER", "comma-separated role list")
	fs.Parse(args)

	if *alias == "" || (*ethAddr == "" && *tonAddr == "") {
		return fmt.Errorf("-alias and at least one of -eth-address/-ton-address are required")
	}
	ledger, err := newDemoLedger(*storeDir)
	if err != nil {
		return err
	}
	profile := &ledgerstore.UserProfile{Alias: *alias, EthAddress: *ethAddr, TonAddress: *tonAddr, Roles: splitRoles(*roles)}
	address := *ethAddr
	if address == "" {
		address = *tonAddr
	}
	if err := ledger.store.PutUserProfile(context.Background(), address, profile); err != nil {
		return err
	}
	fmt.Printf("registered profile for %s at %s\n", *alias, address)
	return nil
}

func splitRoles(raw string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			if i > start {
				out = append(out, raw[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func runCreateMultisig(args []string) error {
	fs := flag.NewFlagSet("create-multisig", flag.ExitOnError)
	storeDir := fs.String("store", "data", "ledger store directory")
	envPath := fs.String("envelope", "", "path to the signed envelope JSON file")
	minSigs := fs.Uint("min-signatures", 1, "minimum signature policy for this call")
	policiesPath := fs.String("policies", "", "optional path to a YAML operation-policy file")
	fs.Parse(args)

	ledger, err := newDemoLedger(*storeDir)
	if err != nil {
		return err
	}
	env, err := readEnvelopeFile(*envPath)
	if err != nil {
		return err
	}
	wallet := &multisig.Wallet{Store: ledger.store, Stub: ledger.stub, AuthDeps: ledger.deps}
	policy, err := resolvePolicy(*policiesPath, "createMultisig", *minSigs, "", authz.SUBMIT)
	if err != nil {
		return err
	}

	ctx := context.Background()
	err = ledger.dispatchSubmit(ctx, env, "createMultisig", func() error {
		return wallet.CreateMultisig(ctx, env, policy)
	})
	if err != nil {
		return err
	}
	fmt.Println("multisig wallet created")
	printEvents(ledger.stub)
	return nil
}

func runSubmitTx(args []string) error {
	fs := flag.NewFlagSet("submit-tx", flag.ExitOnError)
	storeDir := fs.String("store", "data", "ledger store directory")
	envPath := fs.String("envelope", "", "path to the signed envelope JSON file")
	minSigs := fs.Uint("min-signatures", 1, "minimum signature policy for this call")
	policiesPath := fs.String("policies", "", "optional path to a YAML operation-policy file")
	fs.Parse(args)

	ledger, err := newDemoLedger(*storeDir)
	if err != nil {
		return err
	}
	env, err := readEnvelopeFile(*envPath)
	if err != nil {
		return err
	}
	wallet := &multisig.Wallet{Store: ledger.store, Stub: ledger.stub, AuthDeps: ledger.deps}
	policy, err := resolvePolicy(*policiesPath, "submitTx", *minSigs, "", authz.SUBMIT)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var nonce int
	var executed bool
	err = ledger.dispatchSubmit(ctx, env, "submitTx", func() error {
		var submitErr error
		nonce, executed, submitErr = wallet.SubmitTx(ctx, env, policy)
		return submitErr
	})
	if err != nil {
		return err
	}
	fmt.Printf("submitted tx at nonce %d (executed=%t)\n", nonce, executed)
	printEvents(ledger.stub)
	return nil
}

func runConfirmTx(args []string) error {
	fs := flag.NewFlagSet("confirm-tx", flag.ExitOnError)
	storeDir := fs.String("store", "data", "ledger store directory")
	envPath := fs.String("envelope", "", "path to the signed envelope JSON file")
	minSigs := fs.Uint("min-signatures", 1, "minimum signature policy for this call")
	policiesPath := fs.String("policies", "", "optional path to a YAML operation-policy file")
	fs.Parse(args)

	ledger, err := newDemoLedger(*storeDir)
	if err != nil {
		return err
	}
	env, err := readEnvelopeFile(*envPath)
	if err != nil {
		return err
	}
	wallet := &multisig.Wallet{Store: ledger.store, Stub: ledger.stub, AuthDeps: ledger.deps}
	policy, err := resolvePolicy(*policiesPath, "confirmTx", *minSigs, "", authz.SUBMIT)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var executed bool
	err = ledger.dispatchSubmit(ctx, env, "confirmTx", func() error {
		var confirmErr error
		executed, confirmErr = wallet.ConfirmTx(ctx, env, policy)
		return confirmErr
	})
	if err != nil {
		return err
	}
	fmt.Printf("confirmed tx (executed=%t)\n", executed)
	printEvents(ledger.stub)
	return nil
}

// runGetWallet is an EVALUATE-class call: it runs outside the replay guard
// entirely, per replay.Guard.Consume's no-op-for-EVALUATE rule.
func runGetWallet(args []string) error {
	fs := flag.NewFlagSet("get-wallet", flag.ExitOnError)
	storeDir := fs.String("store", "data", "ledger store directory")
	envPath := fs.String("envelope", "", "path to the signed envelope JSON file")
	minSigs := fs.Uint("min-signatures", 1, "minimum signature policy for this call")
	fs.Parse(args)

	ledger, err := newDemoLedger(*storeDir)
	if err != nil {
		return err
	}
	env, err := readEnvelopeFile(*envPath)
	if err != nil {
		return err
	}
	wallet := &multisig.Wallet{Store: ledger.store, Stub: ledger.stub, AuthDeps: ledger.deps}
	policy := policyFromFlags(*minSigs, "", authz.EVALUATE)

	state, err := wallet.GetWallet(context.Background(), env, policy)
	if err != nil {
		if ledgererr.Of(err, ledgererr.KindNotFound) {
			fmt.Println("wallet not found")
			return nil
		}
		return err
	}
	out, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printEvents(stub *chainstub.FakeStub) {
	for _, ev := range stub.Events() {
		fmt.Printf("event %s: %s\n", ev.Name, ev.Payload)
	}
}

// runSign signs a JSON request document with an ETH or TON key and writes
// the resulting envelope (document plus a top-level signature field, which
// the envelope package reads as a one-entry signatures list) to stdout, the counterpart to cmd/keygen for producing the envelopes the
// other subcommands consume.
func runSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	inPath := fs.String("in", "", "path to the unsigned JSON request document")
	scheme := fs.String("scheme", "eth", "signing scheme: eth or ton")
	privkeyHex := fs.String("privkey", "", "hex-encoded eth private key (eth only)")
	keystorePath := fs.String("keystore", "", "path to an eth keystore file (eth only)")
	tonPrivkeyHex := fs.String("ton-privkey", "", "hex-encoded ton private key (ton only)")
	fs.Parse(args)

	if *inPath == "" {
		return fmt.Errorf("-in is required")
	}
	raw, err := os.ReadFile(*inPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *inPath, err)
	}
	env, err := envelope.ParseValidated(raw)
	if err != nil {
		return err
	}
	payload, err := env.CanonicalPayload()
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid request json: %w", err)
	}

	switch *scheme {
	case "eth":
		priv, err := loadEthSigningKey(*privkeyHex, *keystorePath)
		if err != nil {
			return err
		}
		sig, err := cryptosig.Sign(payload, priv)
		if err != nil {
			return err
		}
		doc["signing"] = "ETH"
		doc["signature"] = sig
	case "ton":
		if *tonPrivkeyHex == "" {
			return fmt.Errorf("-ton-privkey is required for -scheme ton")
		}
		sig, err := signTon(payload, *tonPrivkeyHex)
		if err != nil {
			return err
		}
		doc["signing"] = "TON"
		doc["signature"] = sig
	default:
		return fmt.Errorf("unknown -scheme %q (expected eth or ton)", *scheme)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func loadEthSigningKey(privkeyHex, keystorePath string) (*ecdsa.PrivateKey, error) {
	if privkeyHex != "" {
		return cryptosig.LoadPrivateKeyFromHex(privkeyHex)
	}
	if keystorePath != "" {
		pass, err := promptPassphrase()
		if err != nil {
			return nil, err
		}
		return cryptosig.LoadPrivateKeyFromKeystore(keystorePath, pass)
	}
	return nil, fmt.Errorf("-privkey or -keystore is required for -scheme eth")
}

// signTon signs payload with a raw hex-encoded ed25519 seed or private key
// (32 or 64 bytes) and returns the signature as 0x-prefixed hex, matching
// decodeTonSignature's accepted encodings in the authenticator.
func signTon(payload []byte, privkeyHex string) (string, error) {
	raw, err := hex.DecodeString(privkeyHex)
	if err != nil {
		return "", fmt.Errorf("invalid ton private key hex: %w", err)
	}
	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
	default:
		return "", fmt.Errorf("ton private key must be %d (seed) or %d (expanded) bytes", ed25519.SeedSize, ed25519.PrivateKeySize)
	}
	sig := tonsig.Sign(payload, priv)
	return "0x" + hex.EncodeToString(sig), nil
}

func promptPassphrase() (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
