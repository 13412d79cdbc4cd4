package ledgerstore

import (
	"fmt"

	cid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	mh "github.com/multiformats/go-multihash"
)

// TxDigest computes a deterministic, content-addressed reference for a
// PendingTx's (to, data, nonce) triple, the same way the teacher's
// internal/seal.SealJSONLD derives a CID from canonical bytes: a
// sha2-256 multihash wrapped in a CIDv1 (here the "raw" codec, since the
// input is our own canonical bytes rather than JSON-LD N-Quads), encoded
// with multibase base32. internal/multisig calls this on TxSubmitted and
// TxExecuted, an auxiliary collision-resistant identifier alongside the
// wallet's own (walletId, nonce) key.
func TxDigest(to, data string, nonce int) (string, error) {
	body := []byte(fmt.Sprintf("%s|%s|%d", to, data, nonce))

	hash, err := mh.Sum(body, mh.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("multihash: %w", err)
	}

	c := cid.NewCidV1(cid.Raw, hash)

	encoded, err := c.StringOfBase(multibase.Base32)
	if err != nil {
		return "", fmt.Errorf("encode cid: %w", err)
	}
	return encoded, nil
}
