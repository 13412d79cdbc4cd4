// Package replay guards SUBMIT-class operations against a signed
// envelope's uniqueKey being consumed twice, the hot-path rule spec.md §5
// carves out as living in "the ledger wrapper" rather than the
// authenticator itself.
package replay

import (
	"context"

	"github.com/stackdump/ledgersig/internal/authz"
	"github.com/stackdump/ledgersig/internal/ledgererr"
	"github.com/stackdump/ledgersig/internal/ledgerstore"
)

// Guard enforces uniqueKey replay protection against a ReplayStore.
type Guard struct {
	Store ledgerstore.ReplayStore
}

// Consume is a no-op for EVALUATE-class operations. For SUBMIT-class
// operations it fails ValidationFailed if uniqueKey was already consumed,
// otherwise marks it consumed.
func (g Guard) Consume(ctx context.Context, uniqueKey string, class authz.OperationType) error {
	if class != authz.SUBMIT {
		return nil
	}
	if uniqueKey == "" {
		return ledgererr.ValidationFailed("uniqueKey is required for SUBMIT-class operations")
	}
	consumed, err := g.Store.IsConsumed(ctx, uniqueKey)
	if err != nil {
		return err
	}
	if consumed {
		return ledgererr.ValidationFailed("uniqueKey already consumed")
	}
	return g.Store.MarkConsumed(ctx, uniqueKey)
}
