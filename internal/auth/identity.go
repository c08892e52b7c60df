// Package auth derives the caller identity from a bearer token and gates
// operations on its permissions and role.
package auth

import (
	"slices"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
)

const (
	PermReadValidators = "read:validators"
	PermAdminSystem    = "admin:system"

	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Identity is the caller as seen by request handlers. The zero value is anonymous.
type Identity struct {
	UserID          string
	Role            string
	Permissions     []string
	IsAuthenticated bool
}

func Anonymous() Identity {
	return Identity{}
}

func (i Identity) HasPermission(perm string) bool {
	return i.IsAuthenticated && slices.Contains(i.Permissions, perm)
}

func (i Identity) HasRole(role string) bool {
	return i.IsAuthenticated && i.Role == role
}

// RequirePermission returns a NotAuthenticated fault for anonymous callers and a
// NotAuthorized fault when perm is missing.
func RequirePermission(id Identity, perm string) error {
	if !id.IsAuthenticated {
		return fault.New(fault.KindNotAuthenticated, "auth.require_permission", nil)
	}
	if !id.HasPermission(perm) {
		return fault.Newf(fault.KindNotAuthorized, "auth.require_permission", "missing permission %q", perm)
	}
	return nil
}

func RequireRole(id Identity, role string) error {
	if !id.IsAuthenticated {
		return fault.New(fault.KindNotAuthenticated, "auth.require_role", nil)
	}
	if id.Role != role {
		return fault.Newf(fault.KindNotAuthorized, "auth.require_role", "role %q required", role)
	}
	return nil
}
