// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auth

import (
	"github.com/luxfi/ids"
)

var _ Gate = (*SingleOwner)(nil)

// SingleOwner grants every role to the owner and nobody else.
type SingleOwner struct {
	store Store
}

func (*SingleOwner) Policy() Policy {
	return PolicySingleOwner
}

func (g *SingleOwner) Initialize(owner ids.ShortID, _ []ids.ShortID) error {
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
	return g.store.SetOwner(owner)
}

func (g *SingleOwner) Authorize(caller ids.ShortID, role Role) error {
	if err := role.Verify(); err != nil {
		return err
	}
	owner, err := g.store.Owner()
	if err != nil {
		return err
	}
	if owner == ids.ShortEmpty {
		return ErrNotInitialized
	}
	if caller != owner {
		return unauthorized(caller, role)
	}
	return nil
}

func (*SingleOwner) Grant(ids.ShortID, Role, ids.ShortID) error {
	return ErrNotSupported
}

func (*SingleOwner) Revoke(ids.ShortID, Role, ids.ShortID) error {
	return ErrNotSupported
}

func (g *SingleOwner) TransferOwnership(caller, newOwner ids.ShortID) error {
	if err := g.Authorize(caller, RoleAdmin); err != nil {
		return err
	}
	if newOwner == ids.ShortEmpty {
		return ErrZeroAddress
	}
	return g.store.SetOwner(newOwner)
}

func (g *SingleOwner) Owner() (ids.ShortID, error) {
	return g.store.Owner()
}

func (g *SingleOwner) Members(role Role) ([]ids.ShortID, error) {
	if err := role.Verify(); err != nil {
		return nil, err
	}
	owner, err := g.store.Owner()
	if err != nil || owner == ids.ShortEmpty {
		return nil, err
	}
	return []ids.ShortID{owner}, nil
}
