// Package tonsig provides the TON signing primitives: plain ed25519 over
// the canonical payload. Unlike cryptosig's secp256k1 scheme, a TON
// signature carries no recovery information — the signing public key
// cannot be computed from the signature alone, so every caller site must
// branch on scheme rather than assume recoverability (spec's "represent as
// a method that is simply not implemented for that variant" guidance).
//
// No pack example derives TON addresses; the bounceable-address scheme
// below (tag || workchain || sha256(pubkey) || crc16) follows the public
// TON address format, built from primitives already in this module's
// dependency graph (stdlib crypto/ed25519 + crypto/sha256, matching the
// crypto-library family cryptosig already draws from go-ethereum).
package tonsig

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidPublicKeyLength is returned when a supplied TON public key is
// not the required 32 raw bytes.
var ErrInvalidPublicKeyLength = errors.New("ton public key must be 32 bytes")

// tagBounceable and workchain match the conventional TON "basechain,
// bounceable" address flavor used for ordinary user wallets.
const (
	tagBounceable = byte(0x11)
	workchain     = byte(0x00)
)

// GenerateKey creates a new ed25519 keypair.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// Sign signs payload with priv and returns the raw 64-byte signature.
func Sign(payload []byte, priv ed25519.PrivateKey) []byte {
	return ed25519.Sign(priv, payload)
}

// Verify reports whether sig is a valid ed25519 signature over payload by
// pub. TON has no recover operation: callers must already know pub, either
// from the signature entry or from a previously registered PublicKey
// record, before calling Verify.
func Verify(payload, sig []byte, pub ed25519.PublicKey) (bool, error) {
	if len(pub) != ed25519.PublicKeySize {
		return false, ErrInvalidPublicKeyLength
	}
	return ed25519.Verify(pub, payload, sig), nil
}

// PublicKeyBase64 encodes a raw 32-byte TON public key as base64, the
// storage/wire form spec §3 specifies for TON keys.
func PublicKeyBase64(pub ed25519.PublicKey) string {
	return base64.StdEncoding.EncodeToString(pub)
}

// DecodePublicKey decodes a base64-encoded TON public key back to raw bytes.
func DecodePublicKey(b64 string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("invalid ton public key base64: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, ErrInvalidPublicKeyLength
	}
	return ed25519.PublicKey(raw), nil
}

// Address derives the bounceable base64 TON address for pub:
// tag || workchain || sha256(pub) || crc16(tag||workchain||sha256(pub)),
// URL-safe base64 encoded.
func Address(pub ed25519.PublicKey) (string, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", ErrInvalidPublicKeyLength
	}
	hash := sha256.Sum256(pub)

	body := make([]byte, 0, 34)
	body = append(body, tagBounceable, workchain)
	body = append(body, hash[:]...)

	checksum := crc16CCITT(body)
	full := append(body, byte(checksum>>8), byte(checksum))

	return base64.URLEncoding.EncodeToString(full), nil
}

// crc16CCITT computes the CRC-16/XMODEM checksum TON addresses use to
// detect transcription errors.
func crc16CCITT(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
