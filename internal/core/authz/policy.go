// Package authz decides whether a principal may act on an order. Policies are
// interchangeable and selected by name at startup.
package authz

import (
	"fmt"

	"github.com/orderdesk/orderdesk/internal/core/domain"
)

// Action is an operation on an existing order.
type Action string

const (
	ActionView       Action = "view"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionAddItem    Action = "add_item"
	ActionRemoveItem Action = "remove_item"
)

const (
	PolicyStrict        = "strict"
	PolicyOwner         = "owner"
	PolicyAuthenticated = "authenticated"
)

// Policy authorizes an action on an order owned by ownerID. It returns an
// error wrapping domain.ErrAuthenticationRequired for a nil principal and
// domain.ErrForbidden when the principal lacks the right.
type Policy interface {
	Name() string
	Authorize(p *domain.Principal, action Action, ownerID string) error
}

// RoleGate is implemented by policies whose decision for some actions does
// not depend on the order's owner. AuthorizeRole returns nil when the
// ownership check still has to run.
type RoleGate interface {
	AuthorizeRole(p *domain.Principal, action Action) error
}

// AuthorizeRole runs the role-only part of policy for action, if it has one.
// Callers use it before loading the order so that a denied caller learns
// nothing about whether the order exists.
func AuthorizeRole(policy Policy, p *domain.Principal, action Action) error {
	if err := RequireIdentity(p); err != nil {
		return err
	}
	if g, ok := policy.(RoleGate); ok {
		return g.AuthorizeRole(p, action)
	}
	return nil
}

// NewPolicy returns the policy registered under name.
func NewPolicy(name string) (Policy, error) {
	switch name {
	case PolicyStrict, "":
		return StrictPolicy{}, nil
	case PolicyOwner:
		return OwnerPolicy{}, nil
	case PolicyAuthenticated:
		return AuthenticatedPolicy{}, nil
	default:
		return nil, fmt.Errorf("authz: unknown policy %q", name)
	}
}

// RequireIdentity fails for anonymous callers.
func RequireIdentity(p *domain.Principal) error {
	if p == nil || p.UserID == "" {
		return domain.Unauthenticated("Authentication required")
	}
	return nil
}

// ListScope returns the owner filter for listing orders: empty for admins,
// the caller's own id otherwise.
func ListScope(p *domain.Principal) (string, error) {
	if err := RequireIdentity(p); err != nil {
		return "", err
	}
	if p.IsAdmin() {
		return "", nil
	}
	return p.UserID, nil
}

// StrictPolicy allows owners and admins, except for deletion which is
// reserved to admins.
type StrictPolicy struct{}

func (StrictPolicy) Name() string { return PolicyStrict }

func (s StrictPolicy) Authorize(p *domain.Principal, action Action, ownerID string) error {
	if err := RequireIdentity(p); err != nil {
		return err
	}
	if action == ActionDelete {
		return s.AuthorizeRole(p, action)
	}
	return ownerOrAdmin(p, action, ownerID)
}

func (StrictPolicy) AuthorizeRole(p *domain.Principal, action Action) error {
	if action == ActionDelete && !p.IsAdmin() {
		return domain.Forbidden("Only administrators can delete orders")
	}
	return nil
}

// OwnerPolicy allows owners and admins for every action, deletion included.
type OwnerPolicy struct{}

func (OwnerPolicy) Name() string { return PolicyOwner }

func (OwnerPolicy) Authorize(p *domain.Principal, action Action, ownerID string) error {
	if err := RequireIdentity(p); err != nil {
		return err
	}
	return ownerOrAdmin(p, action, ownerID)
}

// AuthenticatedPolicy lets any authenticated caller mutate any order. Reading
// a single order stays restricted to its owner and admins.
type AuthenticatedPolicy struct{}

func (AuthenticatedPolicy) Name() string { return PolicyAuthenticated }

func (AuthenticatedPolicy) Authorize(p *domain.Principal, action Action, ownerID string) error {
	if err := RequireIdentity(p); err != nil {
		return err
	}
	if action == ActionView {
		return ownerOrAdmin(p, action, ownerID)
	}
	return nil
}

func ownerOrAdmin(p *domain.Principal, action Action, ownerID string) error {
	if p.IsAdmin() || p.Owns(ownerID) {
		return nil
	}
	return domain.Forbidden(deniedMessage(action))
}

func deniedMessage(action Action) string {
	switch action {
	case ActionUpdate:
		return "You can only update your own orders"
	case ActionDelete:
		return "You can only delete your own orders"
	case ActionAddItem:
		return "You can only add items to your own orders"
	case ActionRemoveItem:
		return "You can only remove items from your own orders"
	default:
		return "You can only view your own orders"
	}
}
