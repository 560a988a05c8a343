// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auth

import (
	"fmt"

	"github.com/luxfi/ids"
)

var _ Gate = (*RoleBased)(nil)

// RoleBased keeps admin and rebalancer memberships. The owner is the admin
// installed at initialization; it can only hand its seat over with
// TransferOwnership.
type RoleBased struct {
	store Store
}

func (*RoleBased) Policy() Policy {
	return PolicyRoleBased
}

func (g *RoleBased) Initialize(owner ids.ShortID, rebalancers []ids.ShortID) error {
	current, err := g.store.Owner()
	if err != nil {
		return err
	}
	if current != ids.ShortEmpty {
		return nil
	}
	if owner == ids.ShortEmpty {
		return ErrZeroAddress
	}
	if err := g.store.SetOwner(owner); err != nil {
		return err
	}
	if err := g.store.SetRole(RoleAdmin, owner, true); err != nil {
		return err
	}
	for _, rebalancer := range rebalancers {
		if rebalancer == ids.ShortEmpty {
			return ErrZeroAddress
		}
		if err := g.store.SetRole(RoleRebalancer, rebalancer, true); err != nil {
			return err
		}
	}
	return nil
}

func (g *RoleBased) Authorize(caller ids.ShortID, role Role) error {
	if err := role.Verify(); err != nil {
		return err
	}
	ok, err := g.store.HasRole(role, caller)
	if err != nil {
		return err
	}
	if !ok {
		return unauthorized(caller, role)
	}
	return nil
}

func (g *RoleBased) Grant(caller ids.ShortID, role Role, account ids.ShortID) error {
	if err := role.Verify(); err != nil {
		return err
	}
	if err := g.Authorize(caller, RoleAdmin); err != nil {
		return err
	}
	if account == ids.ShortEmpty {
		return ErrZeroAddress
	}
	return g.store.SetRole(role, account, true)
}

func (g *RoleBased) Revoke(caller ids.ShortID, role Role, account ids.ShortID) error {
	if err := role.Verify(); err != nil {
		return err
	}
	if err := g.Authorize(caller, RoleAdmin); err != nil {
		return err
	}
	if role == RoleAdmin {
		owner, err := g.store.Owner()
		if err != nil {
			return err
		}
		if account == owner {
			return fmt.Errorf("%w: revoking the owner's admin role, use TransferOwnership", ErrLastAdmin)
		}
	}
	return g.store.SetRole(role, account, false)
}

func (g *RoleBased) TransferOwnership(caller, newOwner ids.ShortID) error {
	owner, err := g.store.Owner()
	if err != nil {
		return err
	}
	if caller != owner {
		return unauthorized(caller, RoleAdmin)
	}
	if newOwner == ids.ShortEmpty {
		return ErrZeroAddress
	}
	if err := g.store.SetRole(RoleAdmin, newOwner, true); err != nil {
		return err
	}
	if newOwner != owner {
		if err := g.store.SetRole(RoleAdmin, owner, false); err != nil {
			return err
		}
	}
	return g.store.SetOwner(newOwner)
}

func (g *RoleBased) Owner() (ids.ShortID, error) {
	return g.store.Owner()
}

func (g *RoleBased) Members(role Role) ([]ids.ShortID, error) {
	if err := role.Verify(); err != nil {
		return nil, err
	}
	return g.store.RoleMembers(role)
}
