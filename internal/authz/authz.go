// Package authz is the authorization gate that wraps every multisig
// operation: minimum-signature counts and per-signer role requirements,
// exactly as spec.md §4.5 describes. It consumes the authenticator's
// resolved caller list and never re-touches signature verification.
package authz

import (
	"github.com/stackdump/ledgersig/internal/authenticator"
	"github.com/stackdump/ledgersig/internal/ledgererr"
)

// OperationType distinguishes read-write SUBMIT operations, which must be
// replay-guarded and run against a writable store view, from read-only
// EVALUATE operations, which need neither.
type OperationType string

const (
	SUBMIT   OperationType = "SUBMIT"
	EVALUATE OperationType = "EVALUATE"
)

// OperationPolicy is the per-operation configuration the gate enforces.
type OperationPolicy struct {
	MinSignatures          uint
	RequiredRolesPerSigner []string
	Type                   OperationType
}

// Enforce checks callingUsers against policy: first the minimum-signature
// count, then each signer's role set in order, failing on the first signer
// missing a required role. Type does not affect this check — it only tells
// the caller which store view (read-only vs read-write) to run against.
func Enforce(callingUsers []authenticator.UserView, policy OperationPolicy) error {
	if uint(len(callingUsers)) < policy.MinSignatures {
		return ledgererr.Forbidden(int(policy.MinSignatures), len(callingUsers))
	}
	if len(policy.RequiredRolesPerSigner) == 0 {
		return nil
	}
	for _, u := range callingUsers {
		if !hasAllRoles(u.RolesList, policy.RequiredRolesPerSigner) {
			return ledgererr.MissingRole(u.Alias, policy.RequiredRolesPerSigner, u.RolesList)
		}
	}
	return nil
}

func hasAllRoles(has, required []string) bool {
	set := make(map[string]struct{}, len(has))
	for _, r := range has {
		set[r] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
