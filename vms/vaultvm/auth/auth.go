// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package auth gates the privileged vault operations.
//
// Two policies are available. SingleOwner grants every privilege to one
// address. RoleBased keeps separate admin and rebalancer memberships, with
// admins managing both. Either policy is a Gate, so the accounting engine
// never depends on which one a deployment picked.
package auth

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUnknownRole    = errors.New("unknown role")
	ErrUnknownPolicy  = errors.New("unknown authorization policy")
	ErrZeroAddress    = errors.New("zero address")
	ErrNotSupported   = errors.New("not supported by authorization policy")
	ErrLastAdmin      = errors.New("cannot remove the last admin")
	ErrNotInitialized = errors.New("authorization gate not initialized")
)

// Role is a privilege tier.
type Role uint8

const (
	// RoleAdmin may manage roles and redirect fees.
	RoleAdmin Role = iota + 1
	// RoleRebalancer may move assets between ledgers.
	RoleRebalancer
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleRebalancer:
		return "rebalancer"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Verify returns ErrUnknownRole for values outside the defined tiers.
func (r Role) Verify() error {
	switch r {
	case RoleAdmin, RoleRebalancer:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
}

// ParseRole parses the String form of a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "admin", "owner":
		return RoleAdmin, nil
	case "rebalancer":
		return RoleRebalancer, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Store persists gate membership. Writes made through a Store take part in
// whatever transaction the store belongs to, so a rejected vault call leaves
// membership untouched.
type Store interface {
	Owner() (ids.ShortID, error)
	SetOwner(ids.ShortID) error
	HasRole(role Role, account ids.ShortID) (bool, error)
	SetRole(role Role, account ids.ShortID, member bool) error
	RoleMembers(role Role) ([]ids.ShortID, error)
}

// Gate authorizes privileged calls.
type Gate interface {
	// Policy names the variant, as used in configuration.
	Policy() Policy
	// Initialize installs the initial privileged identities if the store is
	// empty. It is a no-op on a store that already has an owner.
	Initialize(owner ids.ShortID, rebalancers []ids.ShortID) error
	// Authorize returns ErrUnauthorized unless [caller] holds [role].
	Authorize(caller ids.ShortID, role Role) error
	Grant(caller ids.ShortID, role Role, account ids.ShortID) error
	Revoke(caller ids.ShortID, role Role, account ids.ShortID) error
	TransferOwnership(caller, newOwner ids.ShortID) error
	// Owner returns the primary admin.
	Owner() (ids.ShortID, error)
	Members(role Role) ([]ids.ShortID, error)
}

// Policy selects a Gate implementation.
type Policy string

const (
	PolicySingleOwner Policy = "single-owner"
	PolicyRoleBased   Policy = "role-based"
)

// New returns the Gate for [policy] backed by [store].
func New(policy Policy, store Store) (Gate, error) {
	switch policy {
	case PolicySingleOwner:
		return &SingleOwner{store: store}, nil
	case PolicyRoleBased:
		return &RoleBased{store: store}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
}

func unauthorized(caller ids.ShortID, role Role) error {
	return fmt.Errorf("%w: %s lacks %s", ErrUnauthorized, caller, role)
}
