// Package config loads the environment bootstrap and operation-policy
// configuration the authenticator and authorization gate consult: the
// DEV_ADMIN_* debug-recovery variables of spec.md §6, and per-operation
// OperationPolicy documents loaded from YAML, grounded on the teacher's
// internal/markdown frontmatter handling (same gopkg.in/yaml.v3 struct-tag
// style, generalized from document metadata to operation policy).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stackdump/ledgersig/internal/authz"
)

// DefaultRoles is applied to a synthesized default profile when
// allow_non_registered_users permits one and no roles are otherwise known.
var DefaultRoles = []string{"MEMBER"}

// Bootstrap is the environment-derived configuration spec §6 names: a
// debug-mode admin-recovery public key, its alias override, and the
// synthesis toggle for unregistered callers.
type Bootstrap struct {
	AdminPublicKey          string
	AdminUserID             string
	AllowNonRegisteredUsers bool
	AdminRoles              []string
}

// LoadBootstrap reads DEV_ADMIN_PUBLIC_KEY, DEV_ADMIN_USER_ID,
// ALLOW_NON_REGISTERED_USERS, and ADMIN_ROLES from the process environment.
// DEV_ADMIN_USER_ID, if set, must begin with "eth|" or "client|"; any other
// prefix is a configuration error the caller should refuse to start with,
// per spec.md §6's "else fail Unauthorized" note.
func LoadBootstrap() (*Bootstrap, error) {
	b := &Bootstrap{
		AdminPublicKey: os.Getenv("DEV_ADMIN_PUBLIC_KEY"),
		AdminUserID:    os.Getenv("DEV_ADMIN_USER_ID"),
	}
	if b.AdminUserID != "" && !strings.HasPrefix(b.AdminUserID, "eth|") && !strings.HasPrefix(b.AdminUserID, "client|") {
		return nil, fmt.Errorf("DEV_ADMIN_USER_ID must begin with eth| or client|, got %q", b.AdminUserID)
	}
	if raw := os.Getenv("ALLOW_NON_REGISTERED_USERS"); raw != "" {
		allow, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid ALLOW_NON_REGISTERED_USERS: %w", err)
		}
		b.AllowNonRegisteredUsers = allow
	}
	if raw := os.Getenv("ADMIN_ROLES"); raw != "" {
		for _, r := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(r); trimmed != "" {
				b.AdminRoles = append(b.AdminRoles, trimmed)
			}
		}
	}
	if len(b.AdminRoles) == 0 {
		b.AdminRoles = []string{"ADMIN"}
	}
	return b, nil
}

// OperationPolicyDoc is the YAML shape one policy entry is loaded from,
// mirroring authz.OperationPolicy's fields with yaml tags the way the
// teacher's Frontmatter struct pairs yaml and json tags on the same fields.
type OperationPolicyDoc struct {
	MinSignatures          uint     `yaml:"minSignatures" json:"minSignatures"`
	RequiredRolesPerSigner []string `yaml:"requiredRolesPerSigner,omitempty" json:"requiredRolesPerSigner,omitempty"`
	Type                   string   `yaml:"type" json:"type"`
}

// LoadOperationPolicyDocs reads a YAML file mapping operation name to its
// OperationPolicyDoc, the on-disk shape cmd/ledgerctl and chaincode
// deployment tooling configure per-operation min-signature and role
// requirements from.
func LoadOperationPolicyDocs(path string) (map[string]OperationPolicyDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read operation policy file %s: %w", path, err)
	}
	var docs map[string]OperationPolicyDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse operation policy file %s: %w", path, err)
	}
	return docs, nil
}

// ToPolicy converts a loaded document to the authz.OperationPolicy the
// gate consumes, defaulting MinSignatures to 1 when unset.
func (d OperationPolicyDoc) ToPolicy() (authz.OperationPolicy, error) {
	min := d.MinSignatures
	if min == 0 {
		min = 1
	}
	var opType authz.OperationType
	switch strings.ToUpper(d.Type) {
	case "SUBMIT":
		opType = authz.SUBMIT
	case "EVALUATE":
		opType = authz.EVALUATE
	default:
		return authz.OperationPolicy{}, fmt.Errorf("unknown operation policy type: %q", d.Type)
	}
	return authz.OperationPolicy{
		MinSignatures:          min,
		RequiredRolesPerSigner: d.RequiredRolesPerSigner,
		Type:                   opType,
	}, nil
}
