// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vaultvm

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/vault/vms/vaultvm/auth"
	"github.com/luxfi/vault/vms/vaultvm/events"
)

// UpdateTreasury redirects withdrawal fees. Admin only.
func (v *Vault) UpdateTreasury(ctx context.Context, caller, treasury ids.ShortID) (err error) {
	_, finish, err := v.startOp(ctx, "updateTreasury", attribute.Stringer("caller", caller))
	if err != nil {
		return err
	}
	defer finish(&err)

	if err := v.gate.Authorize(caller, auth.RoleAdmin); err != nil {
		v.log.Warn("rejected treasury update",
			log.Stringer("caller", caller),
			log.Err(err),
		)
		return err
	}
	if treasury == ids.ShortEmpty {
		return ErrZeroAddress
	}
	previous, err := v.state.Treasury()
	if err != nil {
		return err
	}
	if err := v.state.SetTreasury(treasury); err != nil {
		return err
	}
	err = v.emit(&events.Event{
		Kind:     events.TreasuryUpdated,
		Caller:   caller,
		Previous: previous,
		Account:  treasury,
	})
	if err != nil {
		return err
	}
	if err := v.state.Commit(); err != nil {
		return err
	}

	v.log.Info("treasury updated",
		log.Stringer("previous", previous),
		log.Stringer("treasury", treasury),
	)
	return nil
}

func (v *Vault) GrantRole(ctx context.Context, caller ids.ShortID, role auth.Role, account ids.ShortID) error {
	return v.changeRole(ctx, "grantRole", events.RoleGranted, caller, role, account, v.gate.Grant)
}

func (v *Vault) RevokeRole(ctx context.Context, caller ids.ShortID, role auth.Role, account ids.ShortID) error {
	return v.changeRole(ctx, "revokeRole", events.RoleRevoked, caller, role, account, v.gate.Revoke)
}

func (v *Vault) changeRole(
	ctx context.Context,
	op string,
	kind events.Kind,
	caller ids.ShortID,
	role auth.Role,
	account ids.ShortID,
	apply func(caller ids.ShortID, role auth.Role, account ids.ShortID) error,
) (err error) {
	_, finish, err := v.startOp(ctx, op,
		attribute.Stringer("caller", caller),
		attribute.String("role", role.String()),
	)
	if err != nil {
		return err
	}
	defer finish(&err)

	if err := apply(caller, role, account); err != nil {
		v.log.Warn("rejected role change",
			log.String("op", op),
			log.Stringer("caller", caller),
			log.Err(err),
		)
		return err
	}
	err = v.emit(&events.Event{
		Kind:    kind,
		Caller:  caller,
		Account: account,
		Role:    role.String(),
	})
	if err != nil {
		return err
	}
	if err := v.state.Commit(); err != nil {
		return err
	}

	v.log.Info("role changed",
		log.String("op", op),
		log.String("role", role.String()),
		log.Stringer("account", account),
	)
	return nil
}

// TransferOwnership hands the owner seat to newOwner. Owner only.
func (v *Vault) TransferOwnership(ctx context.Context, caller, newOwner ids.ShortID) (err error) {
	_, finish, err := v.startOp(ctx, "transferOwnership", attribute.Stringer("caller", caller))
	if err != nil {
		return err
	}
	defer finish(&err)

	if err := v.gate.TransferOwnership(caller, newOwner); err != nil {
		v.log.Warn("rejected ownership transfer",
			log.Stringer("caller", caller),
			log.Err(err),
		)
		return err
	}
	err = v.emit(&events.Event{
		Kind:    events.OwnershipTransferred,
		Caller:  caller,
		Account: newOwner,
	})
	if err != nil {
		return err
	}
	if err := v.state.Commit(); err != nil {
		return err
	}

	v.log.Info("ownership transferred",
		log.Stringer("previous", caller),
		log.Stringer("owner", newOwner),
	)
	return nil
}
