// Package cryptosig provides the ETH signing primitives the authenticator
// relies on: recoverable secp256k1 ECDSA signatures over keccak256 of the
// canonical payload, address derivation, and public-key normalization.
//
// Grounded on the teacher's internal/ethsig package: same 65-byte r||s||v
// signature convention, same "normalize v to 0/1 for SigToPub, 27/28 for the
// wire format" discipline, generalized from a single personal_sign path to
// the full recover/verify/mismatch branch table the authenticator needs.
package cryptosig

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNotRecoverable is returned by Recover whenever no public key can be
// recovered from the signature: it is not valid hex, or its bytes do not
// permit public-key recovery (wrong length, invalid recovery id).
var ErrNotRecoverable = errors.New("signature is not recoverable")

// ErrInvalidSignatureLength is returned when a decoded signature is not the
// expected 65 bytes (r||s||v).
var ErrInvalidSignatureLength = errors.New("signature must be 65 bytes (r||s||v)")

// Hash computes keccak256 of data, the hash every ETH signature in this
// module is computed over.
func Hash(data []byte) []byte {
	return crypto.Keccak256(data)
}

// Sign signs payload with priv and returns a 0x-prefixed 65-byte hex
// signature with v normalized to 27/28.
func Sign(payload []byte, priv *ecdsa.PrivateKey) (string, error) {
	hash := Hash(payload)
	sig, err := crypto.Sign(hash, priv)
	if err != nil {
		return "", fmt.Errorf("sign failed: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// normalize returns a copy of sig with v coerced to 0/1 as go-ethereum's
// SigToPub expects. Accepts v in {0,1,27,28}.
func normalize(sig []byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, ErrInvalidSignatureLength
	}
	out := make([]byte, 65)
	copy(out, sig)
	switch v := out[64]; {
	case v == 27 || v == 28:
		out[64] = v - 27
	case v == 0 || v == 1:
		// already normalized
	default:
		return nil, fmt.Errorf("unsupported v value in signature: %d", v)
	}
	return out, nil
}

func decodeSig(sigHex string) ([]byte, error) {
	sigHex = strings.TrimPrefix(sigHex, "0x")
	return hex.DecodeString(sigHex)
}

// Recover recovers the non-compact hex-encoded public key that produced
// sigHex over payload. It returns ErrNotRecoverable (rather than a generic
// error) when sigHex does not decode to a well-formed recoverable
// signature, per spec: recoverability failure is distinct from other
// verification failures.
func Recover(payload []byte, sigHex string) (string, error) {
	sigBytes, err := decodeSig(sigHex)
	if err != nil {
		return "", ErrNotRecoverable
	}
	normSig, err := normalize(sigBytes)
	if err != nil {
		return "", ErrNotRecoverable
	}
	hash := Hash(payload)
	pub, err := crypto.SigToPub(hash, normSig)
	if err != nil {
		return "", ErrNotRecoverable
	}
	return NormalizePublicKey(hex.EncodeToString(crypto.FromECDSAPub(pub))), nil
}

// Verify reports whether sigHex is a valid signature over payload by the
// holder of pubHex (hex-encoded, compressed or uncompressed).
func Verify(payload []byte, sigHex, pubHex string) (bool, error) {
	recovered, err := Recover(payload, sigHex)
	if err != nil {
		return false, err
	}
	return recovered == NormalizePublicKey(pubHex), nil
}

// Address derives the 0x-prefixed lowercase ETH address for a non-compact
// hex public key: the last 20 bytes of keccak256(pub[1:]).
func Address(pubHex string) (string, error) {
	pubHex = NormalizePublicKey(pubHex)
	pubBytes, err := hex.DecodeString(strings.TrimPrefix(pubHex, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid public key hex: %w", err)
	}
	pub, err := crypto.UnmarshalPubkey(pubBytes)
	if err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}

// NormalizePublicKey accepts a compressed (33-byte) or uncompressed
// (65-byte) hex public key, with or without 0x prefix, and returns the
// canonical non-compact hex form (0x04 || X || Y).
func NormalizePublicKey(pubHex string) string {
	trimmed := strings.TrimPrefix(pubHex, "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return pubHex
	}
	switch len(raw) {
	case 65:
		return "0x" + hex.EncodeToString(raw)
	case 33:
		pub, err := crypto.DecompressPubkey(raw)
		if err != nil {
			return pubHex
		}
		return "0x" + hex.EncodeToString(crypto.FromECDSAPub(pub))
	default:
		return pubHex
	}
}

// CompactBase64 returns the compressed public key (33 bytes) of a
// non-compact hex-encoded ETH public key, base64-encoded, so recovered
// keys can be stored/looked-up in the same compact form registration uses.
func CompactBase64(pubHex string) (string, error) {
	trimmed := strings.TrimPrefix(NormalizePublicKey(pubHex), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid public key hex: %w", err)
	}
	pub, err := crypto.UnmarshalPubkey(raw)
	if err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	}
	return compactBase64FromBytes(crypto.CompressPubkey(pub)), nil
}

// GenerateKey creates a new secp256k1 keypair.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// PrivateKeyToHex returns the hex encoding (no 0x prefix) of priv's D value.
func PrivateKeyToHex(priv *ecdsa.PrivateKey) string {
	return hex.EncodeToString(crypto.FromECDSA(priv))
}

// LoadPrivateKeyFromHex loads a private key from hex, with or without a 0x
// prefix.
func LoadPrivateKeyFromHex(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")
	priv, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return priv, nil
}

// AddressFromPrivateKey returns the 0x-prefixed address for priv.
func AddressFromPrivateKey(priv *ecdsa.PrivateKey) string {
	return strings.ToLower(crypto.PubkeyToAddress(priv.PublicKey).Hex())
}

// PublicKeyHex returns the non-compact hex public key for priv.
func PublicKeyHex(priv *ecdsa.PrivateKey) string {
	return "0x" + hex.EncodeToString(crypto.FromECDSAPub(&priv.PublicKey))
}

// CreateKeystore encrypts priv with passphrase using go-ethereum's
// scrypt-based key-file format and writes it to path with 0600 permissions.
func CreateKeystore(priv *ecdsa.PrivateKey, passphrase, path string) error {
	id, err := newKeystoreID()
	if err != nil {
		return fmt.Errorf("generate keystore id: %w", err)
	}
	key := &keystore.Key{
		Id:         id,
		Address:    crypto.PubkeyToAddress(priv.PublicKey),
		PrivateKey: priv,
	}
	data, err := keystore.EncryptKey(key, passphrase, keystore.StandardScryptN, keystore.StandardScryptP)
	if err != nil {
		return fmt.Errorf("encrypt keystore: %w", err)
	}
	return writeKeystoreFile(path, data)
}

// LoadPrivateKeyFromKeystore decrypts the keystore file at path with
// passphrase and returns the private key.
func LoadPrivateKeyFromKeystore(path, passphrase string) (*ecdsa.PrivateKey, error) {
	data, err := readKeystoreFile(path)
	if err != nil {
		return nil, err
	}
	key, err := keystore.DecryptKey(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	return key.PrivateKey, nil
}

// AddressFromKeystore reads the address field from a keystore file without
// decrypting it.
func AddressFromKeystore(path string) (string, error) {
	data, err := readKeystoreFile(path)
	if err != nil {
		return "", err
	}
	var meta struct {
		Address string `json:"address"`
	}
	if err := unmarshalKeystoreMeta(data, &meta); err != nil {
		return "", fmt.Errorf("parse keystore: %w", err)
	}
	if meta.Address == "" {
		return "", fmt.Errorf("keystore file missing address field")
	}
	return "0x" + strings.ToLower(strings.TrimPrefix(meta.Address, "0x")), nil
}
