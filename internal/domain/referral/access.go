package referral

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
	RoleMC      Role = "mc"
	RoleAgent   Role = "agent"
)

func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleAdmin, RoleManager, RoleViewer, RoleMC, RoleAgent:
		return role, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}

// Actor is the authenticated identity behind a request.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) Authenticated() bool {
	return strings.TrimSpace(a.ID) != "" && a.Role != ""
}

func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}

// CanViewReferral grants read access to staff and viewers, and to the
// agent or mortgage consultant linked to the referral.
func CanViewReferral(actor Actor, r Referral) bool {
	if !actor.Authenticated() {
		return false
	}
	if actor.Role == RoleViewer {
		return true
	}
	return canActOn(actor, r)
}

// CanManageReferral is CanViewReferral without the viewer exemption.
func CanManageReferral(actor Actor, r Referral) bool {
	if !actor.Authenticated() {
		return false
	}
	return canActOn(actor, r)
}

// Authorize turns the gate outcome into the error taxonomy.
func Authorize(actor Actor, r Referral, manage bool) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	allowed := CanViewReferral(actor, r)
	if manage {
		allowed = CanManageReferral(actor, r)
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

func canActOn(actor Actor, r Referral) bool {
	switch actor.Role {
	case RoleAdmin, RoleManager:
		return true
	case RoleMC:
		return ownsReference(actor, r.Lender)
	case RoleAgent:
		return ownsReference(actor, r.AssignedAgent)
	default:
		return false
	}
}

func ownsReference(actor Actor, ref Reference[Party]) bool {
	linked := ref.LinkedIdentity()
	return linked != "" && linked == strings.TrimSpace(actor.ID)
}
