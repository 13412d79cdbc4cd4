// Package authenticator implements spec.md §4.4's signature-resolution
// algorithm: given a signed envelope, it resolves each signature entry to
// an address and public key, verifies it, loads or synthesizes the
// corresponding UserProfile, and shapes the result into the ordered,
// deduplicated caller list the authorization gate consumes.
//
// Grounded on the teacher's internal/ethsig recover/verify split and
// internal/store's batched-lookup style, generalized from a single
// personal_sign check to the full per-signature resolution table.
package authenticator

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/stackdump/ledgersig/internal/chainstub"
	"github.com/stackdump/ledgersig/internal/cryptosig"
	"github.com/stackdump/ledgersig/internal/envelope"
	"github.com/stackdump/ledgersig/internal/ledgererr"
	"github.com/stackdump/ledgersig/internal/ledgerstore"
	"github.com/stackdump/ledgersig/internal/tonsig"
)

// UserView is the resolved identity of one signer, the shape AuthResult's
// FirstUserView and Users expose.
type UserView struct {
	Alias      string
	EthAddress string
	TonAddress string
	RolesList  []string
}

// AuthResult is authenticate's public contract: the full resolved caller
// list, the first entry surfaced for convenience, and the minimum-signature
// threshold the call was evaluated against.
type AuthResult struct {
	FirstUserView UserView
	Users         []UserView
	MinSignatures int
}

// BootstrapConfig carries the admin-recovery and registration-synthesis
// toggles spec.md §6 describes, independent of internal/config so this
// package has no dependency on environment parsing.
type BootstrapConfig struct {
	AdminAddress            string
	AdminAlias              string
	AdminRoles              []string
	AllowNonRegisteredUsers bool
	DefaultRoles            []string
}

// Deps bundles authenticate's external collaborators: the ledger store,
// the chaincode stub for the origin-chaincode branch, a proposal signing
// key, and the bootstrap configuration.
type Deps struct {
	Store        ledgerstore.Store
	Stub         chainstub.Stub
	ProposalKey  []byte
	Bootstrap    BootstrapConfig
}

type resolvedSigner struct {
	index     int
	entry     envelope.SignatureEntry
	address   string
	publicKey string // non-compact hex (ETH) or base64 (TON); "" if unresolved until profile lookup
	scheme    envelope.SigningScheme
}

// Authenticate implements spec.md §4.4's seven-step algorithm, including the
// §4.4a origin-chaincode branch.
func Authenticate(ctx context.Context, env *envelope.Envelope, minSignatures int, deps Deps) (*AuthResult, error) {
	sigs, err := env.ResolvedSignatures()
	if err != nil {
		return nil, ledgererr.ValidationFailed(err.Error())
	}

	// Step 1: empty-signature path.
	if len(sigs) == 0 {
		if envelope.IsServiceSender(env.SignerAddress) {
			return authenticateOriginChaincode(env.SignerAddress, deps)
		}
		return nil, ledgererr.MissingSignature()
	}

	payload, err := env.CanonicalPayload()
	if err != nil {
		return nil, ledgererr.ValidationFailed(err.Error())
	}

	// Steps 2-3: per-signature resolution and uniqueness.
	resolved := make([]resolvedSigner, 0, len(sigs))
	seen := make(map[string]struct{}, len(sigs))
	for i, entry := range sigs {
		rs, err := resolveSigner(payload, env.Signing, i, entry)
		if err != nil {
			return nil, ledgererr.WithSigner(err, entry.SignerAddress, entry.SignerPublicKey, i)
		}
		if _, dup := seen[rs.address]; dup {
			return nil, ledgererr.WithSigner(ledgererr.DuplicateSigner(rs.address), entry.SignerAddress, entry.SignerPublicKey, i)
		}
		seen[rs.address] = struct{}{}
		resolved = append(resolved, rs)
	}

	// Step 4: batched profile resolution.
	addresses := make([]string, len(resolved))
	for i, rs := range resolved {
		addresses[i] = rs.address
	}
	profiles, err := deps.Store.GetUserProfiles(ctx, addresses)
	if err != nil {
		return nil, fmt.Errorf("load user profiles: %w", err)
	}
	byAddress := make(map[string]*ledgerstore.UserProfile, len(profiles))
	for _, p := range profiles {
		if p.EthAddress != "" {
			byAddress[p.EthAddress] = p
		}
		if p.TonAddress != "" {
			byAddress[p.TonAddress] = p
		}
	}

	users := make([]UserView, 0, len(resolved))
	seenAlias := make(map[string]struct{}, len(resolved))
	for _, rs := range resolved {
		entry := rs.entry
		profile := byAddress[rs.address]
		if profile == nil {
			if admin := adminProfile(rs.address, deps.Bootstrap); admin != nil {
				profile = admin
			}
		}
		if profile == nil {
			if deps.Bootstrap.AllowNonRegisteredUsers && rs.publicKey != "" {
				profile = synthesizeDefaultProfile(rs.scheme, rs.address, deps.Bootstrap.DefaultRoles)
			} else {
				return nil, ledgererr.WithSigner(ledgererr.UserNotRegistered(rs.address), entry.SignerAddress, entry.SignerPublicKey, rs.index)
			}
		}

		// Step 5: key resolution for verification, when only an address
		// was given: the key is looked up by the profile's alias.
		pubKey := rs.publicKey
		if pubKey == "" {
			rec, err := deps.Store.GetPublicKey(ctx, profile.Alias)
			if err != nil {
				return nil, fmt.Errorf("load public key: %w", err)
			}
			if rec == nil {
				return nil, ledgererr.WithSigner(ledgererr.PkMissing(profile.Alias), entry.SignerAddress, entry.SignerPublicKey, rs.index)
			}
			pubKey = rec.PublicKey
		}

		// Step 6: signature verification.
		ok, err := verifyEntry(payload, rs.scheme, entry.Signature, pubKey)
		if err != nil || !ok {
			return nil, ledgererr.WithSigner(ledgererr.PkInvalidSignature(profile.Alias), entry.SignerAddress, entry.SignerPublicKey, rs.index)
		}

		if _, dup := seenAlias[profile.Alias]; dup {
			continue // step 7: dedup by alias, first occurrence wins
		}
		seenAlias[profile.Alias] = struct{}{}
		users = append(users, UserView{
			Alias:      profile.Alias,
			EthAddress: profile.EthAddress,
			TonAddress: profile.TonAddress,
			RolesList:  profile.Roles,
		})
	}

	result := &AuthResult{Users: users, MinSignatures: minSignatures}
	if len(users) > 0 {
		result.FirstUserView = users[0]
	}
	return result, nil
}

// resolveSigner implements the per-signature-entry resolution table of
// spec.md §4.4 step 2.
func resolveSigner(payload []byte, scheme envelope.SigningScheme, index int, entry envelope.SignatureEntry) (resolvedSigner, error) {
	if scheme == envelope.SchemeTON {
		return resolveTonSigner(index, entry)
	}
	return resolveEthSigner(payload, index, entry)
}

func resolveEthSigner(payload []byte, index int, entry envelope.SignatureEntry) (resolvedSigner, error) {
	recoveredPub, recoverErr := cryptosig.Recover(payload, entry.Signature)
	recoverable := recoverErr == nil

	switch {
	case entry.SignerPublicKey != "" && entry.SignerAddress != "":
		return resolvedSigner{}, ledgererr.RedundantSignerPublicKey(recoveredPub, entry.SignerPublicKey)

	case entry.SignerPublicKey == "" && entry.SignerAddress == "":
		if !recoverable {
			return resolvedSigner{}, ledgererr.MissingSigner(entry.Signature)
		}
		addr, err := cryptosig.Address(recoveredPub)
		if err != nil {
			return resolvedSigner{}, fmt.Errorf("derive address: %w", err)
		}
		return resolvedSigner{index: index, entry: entry, address: addr, publicKey: recoveredPub, scheme: envelope.SchemeETH}, nil

	case entry.SignerPublicKey != "":
		provided := cryptosig.NormalizePublicKey(entry.SignerPublicKey)
		if recoverable {
			if recoveredPub == provided {
				return resolvedSigner{}, ledgererr.RedundantSignerPublicKey(recoveredPub, entry.SignerPublicKey)
			}
			return resolvedSigner{}, ledgererr.PublicKeyMismatch(recoveredPub, entry.SignerPublicKey)
		}
		addr, err := cryptosig.Address(provided)
		if err != nil {
			return resolvedSigner{}, fmt.Errorf("derive address: %w", err)
		}
		return resolvedSigner{index: index, entry: entry, address: addr, publicKey: provided, scheme: envelope.SchemeETH}, nil

	default: // SignerAddress only
		provided := strings.ToLower(entry.SignerAddress)
		if recoverable {
			recoveredAddr, err := cryptosig.Address(recoveredPub)
			if err != nil {
				return resolvedSigner{}, fmt.Errorf("derive address: %w", err)
			}
			if recoveredAddr == provided {
				return resolvedSigner{}, ledgererr.RedundantSignerAddress(recoveredAddr, entry.SignerAddress)
			}
			return resolvedSigner{}, ledgererr.AddressMismatch(recoveredAddr, entry.SignerAddress)
		}
		return resolvedSigner{index: index, entry: entry, address: provided, publicKey: "", scheme: envelope.SchemeETH}, nil
	}
}

// resolveTonSigner implements step 2 for TON, which has no recovery path:
// the entry MUST carry signerAddress or signerPublicKey.
func resolveTonSigner(index int, entry envelope.SignatureEntry) (resolvedSigner, error) {
	switch {
	case entry.SignerPublicKey != "" && entry.SignerAddress != "":
		return resolvedSigner{}, ledgererr.RedundantSignerPublicKey("", entry.SignerPublicKey)
	case entry.SignerPublicKey != "":
		pub, err := tonsig.DecodePublicKey(entry.SignerPublicKey)
		if err != nil {
			return resolvedSigner{}, fmt.Errorf("invalid ton public key: %w", err)
		}
		addr, err := tonsig.Address(pub)
		if err != nil {
			return resolvedSigner{}, fmt.Errorf("derive ton address: %w", err)
		}
		return resolvedSigner{index: index, entry: entry, address: addr, publicKey: entry.SignerPublicKey, scheme: envelope.SchemeTON}, nil
	case entry.SignerAddress != "":
		return resolvedSigner{index: index, entry: entry, address: entry.SignerAddress, publicKey: "", scheme: envelope.SchemeTON}, nil
	default:
		return resolvedSigner{}, ledgererr.MissingSigner(entry.Signature)
	}
}

func verifyEntry(payload []byte, scheme envelope.SigningScheme, sigRaw, pubKey string) (bool, error) {
	if scheme == envelope.SchemeTON {
		pub, err := tonsig.DecodePublicKey(pubKey)
		if err != nil {
			return false, err
		}
		sig, err := decodeTonSignature(sigRaw)
		if err != nil {
			return false, err
		}
		return tonsig.Verify(payload, sig, pub)
	}
	return cryptosig.Verify(payload, sigRaw, pubKey)
}

func adminProfile(address string, b BootstrapConfig) *ledgerstore.UserProfile {
	if b.AdminAddress == "" || !strings.EqualFold(address, b.AdminAddress) {
		return nil
	}
	alias := b.AdminAlias
	if alias == "" {
		alias = "eth|" + strings.ToLower(address)
	}
	return &ledgerstore.UserProfile{Alias: alias, EthAddress: address, Roles: b.AdminRoles}
}

func synthesizeDefaultProfile(scheme envelope.SigningScheme, address string, roles []string) *ledgerstore.UserProfile {
	prefix := "eth"
	if scheme == envelope.SchemeTON {
		prefix = "ton"
	}
	p := &ledgerstore.UserProfile{Alias: prefix + "|" + address, Roles: roles}
	if scheme == envelope.SchemeTON {
		p.TonAddress = address
	} else {
		p.EthAddress = address
	}
	return p
}

// authenticateOriginChaincode implements spec.md §4.4a: a chaincode-to-
// chaincode call authenticated by the peer's signed proposal rather than a
// user signature.
func authenticateOriginChaincode(signerAddress string, deps Deps) (*AuthResult, error) {
	name := strings.TrimPrefix(signerAddress, "service|")
	if name == "" {
		return nil, ledgererr.ChaincodeAuthorization("service sender has no chaincode name")
	}
	proposal, err := deps.Stub.GetSignedProposal()
	if err != nil {
		return nil, ledgererr.ChaincodeAuthorization(fmt.Sprintf("unable to fetch signed proposal: %v", err))
	}
	spec, err := chainstub.DecodeInvocationSpec(proposal, deps.ProposalKey)
	if err != nil {
		return nil, ledgererr.ChaincodeAuthorization(fmt.Sprintf("unable to decode invocation spec: %v", err))
	}
	if spec.ChaincodeName == "" || spec.ChaincodeName != name {
		return nil, ledgererr.ChaincodeAuthorization(fmt.Sprintf("proposal chaincode %q does not match sender %q", spec.ChaincodeName, name))
	}
	view := UserView{Alias: signerAddress, RolesList: nil}
	return &AuthResult{FirstUserView: view, Users: nil, MinSignatures: 0}, nil
}

// decodeTonSignature accepts a TON signature encoded as base64 (the
// convention tonsig.PublicKeyBase64 mirrors) or, with a 0x prefix, hex.
// ETH signatures, decoded by cryptosig.decodeSig, are hex only (with or
// without the 0x prefix).
func decodeTonSignature(sigRaw string) ([]byte, error) {
	if strings.HasPrefix(sigRaw, "0x") {
		return hex.DecodeString(strings.TrimPrefix(sigRaw, "0x"))
	}
	return base64.StdEncoding.DecodeString(sigRaw)
}
