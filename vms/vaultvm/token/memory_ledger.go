// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

var (
	balancePrefix   = []byte("balance")
	allowancePrefix = []byte("allowance")
	supplyKey       = []byte("supply")

	_ Ledger = (*MemoryLedger)(nil)
	_ Issuer = (*MemoryLedger)(nil)
)

// MemoryLedger is a single-asset ledger stored in a luxfi database. Every
// movement is applied through a versioned layer, so a movement either lands
// fully or not at all.
type MemoryLedger struct {
	asset ids.ID
	log   log.Logger

	mu          sync.Mutex
	vdb         *versiondb.Database
	balanceDB   database.Database
	allowanceDB database.Database

	hookLock sync.RWMutex
	hooks    []Hook
}

func NewMemoryLedger(asset ids.ID, db database.Database, logger log.Logger) *MemoryLedger {
	vdb := versiondb.New(db)
	return &MemoryLedger{
		asset:       asset,
		log:         logger,
		vdb:         vdb,
		balanceDB:   prefixdb.New(balancePrefix, vdb),
		allowanceDB: prefixdb.New(allowancePrefix, vdb),
	}
}

func (l *MemoryLedger) Asset() ids.ID {
	return l.asset
}

// AddHook registers h to run before every subsequent movement.
func (l *MemoryLedger) AddHook(h Hook) {
	l.hookLock.Lock()
	defer l.hookLock.Unlock()
	l.hooks = append(l.hooks, h)
}

func (l *MemoryLedger) runHooks(ctx context.Context, from, to ids.ShortID, amount *uint256.Int) error {
	l.hookLock.RLock()
	hooks := append([]Hook(nil), l.hooks...)
	l.hookLock.RUnlock()

	for _, h := range hooks {
		if err := h(ctx, from, to, amount.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func readAmount(db database.KeyValueReader, key []byte) (*uint256.Int, error) {
	b, err := db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(b), nil
}

func writeAmount(db database.KeyValueWriterDeleter, key []byte, v *uint256.Int) error {
	if v.IsZero() {
		return db.Delete(key)
	}
	return db.Put(key, v.Bytes())
}

func pairKey(owner, spender ids.ShortID) []byte {
	key := make([]byte, 0, 2*ids.ShortIDLen)
	key = append(key, owner[:]...)
	return append(key, spender[:]...)
}

func (l *MemoryLedger) BalanceOf(_ context.Context, holder ids.ShortID) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return readAmount(l.balanceDB, holder[:])
}

func (l *MemoryLedger) TotalSupply(context.Context) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return readAmount(l.vdb, supplyKey)
}

func (l *MemoryLedger) Allowance(_ context.Context, owner, spender ids.ShortID) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return readAmount(l.allowanceDB, pairKey(owner, spender))
}

func (l *MemoryLedger) Approve(_ context.Context, owner, spender ids.ShortID, amount *uint256.Int) error {
	if owner == ids.ShortEmpty || spender == ids.ShortEmpty {
		return ErrZeroAddress
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := writeAmount(l.allowanceDB, pairKey(owner, spender), amount); err != nil {
		l.vdb.Abort()
		return err
	}
	return l.vdb.Commit()
}

func (l *MemoryLedger) Transfer(ctx context.Context, from, to ids.ShortID, amount *uint256.Int) error {
	if from == ids.ShortEmpty || to == ids.ShortEmpty {
		return ErrZeroAddress
	}
	if err := l.runHooks(ctx, from, to, amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.vdb.Abort()

	if err := l.move(from, to, amount); err != nil {
		return err
	}
	if err := l.vdb.Commit(); err != nil {
		return err
	}
	l.log.Debug("token transfer",
		log.Stringer("from", from),
		log.Stringer("to", to),
		log.String("amount", amount.Dec()),
	)
	return nil
}

func (l *MemoryLedger) TransferFrom(ctx context.Context, spender, from, to ids.ShortID, amount *uint256.Int) error {
	if spender == ids.ShortEmpty || from == ids.ShortEmpty || to == ids.ShortEmpty {
		return ErrZeroAddress
	}
	if err := l.runHooks(ctx, from, to, amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.vdb.Abort()

	key := pairKey(from, spender)
	allowance, err := readAmount(l.allowanceDB, key)
	if err != nil {
		return err
	}
	remaining, underflow := new(uint256.Int).SubOverflow(allowance, amount)
	if underflow {
		return fmt.Errorf("%w: spender %s has %s, needs %s", ErrInsufficientAllowance, spender, allowance.Dec(), amount.Dec())
	}
	if err := writeAmount(l.allowanceDB, key, remaining); err != nil {
		return err
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	if err := l.vdb.Commit(); err != nil {
		return err
	}
	l.log.Debug("token transferFrom",
		log.Stringer("spender", spender),
		log.Stringer("from", from),
		log.Stringer("to", to),
		log.String("amount", amount.Dec()),
	)
	return nil
}

// move must be called with mu held.
func (l *MemoryLedger) move(from, to ids.ShortID, amount *uint256.Int) error {
	fromBalance, err := readAmount(l.balanceDB, from[:])
	if err != nil {
		return err
	}
	newFrom, underflow := new(uint256.Int).SubOverflow(fromBalance, amount)
	if underflow {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, fromBalance.Dec(), amount.Dec())
	}
	if err := writeAmount(l.balanceDB, from[:], newFrom); err != nil {
		return err
	}
	toBalance, err := readAmount(l.balanceDB, to[:])
	if err != nil {
		return err
	}
	// Cannot overflow: the sum of balances is bounded by the supply.
	return writeAmount(l.balanceDB, to[:], new(uint256.Int).Add(toBalance, amount))
}

func (l *MemoryLedger) Mint(ctx context.Context, to ids.ShortID, amount *uint256.Int) error {
	if to == ids.ShortEmpty {
		return ErrZeroAddress
	}
	if err := l.runHooks(ctx, ids.ShortEmpty, to, amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.vdb.Abort()

	supply, err := readAmount(l.vdb, supplyKey)
	if err != nil {
		return err
	}
	newSupply, overflow := new(uint256.Int).AddOverflow(supply, amount)
	if overflow {
		return ErrSupplyOverflow
	}
	if err := writeAmount(l.vdb, supplyKey, newSupply); err != nil {
		return err
	}
	balance, err := readAmount(l.balanceDB, to[:])
	if err != nil {
		return err
	}
	if err := writeAmount(l.balanceDB, to[:], new(uint256.Int).Add(balance, amount)); err != nil {
		return err
	}
	return l.vdb.Commit()
}

func (l *MemoryLedger) Burn(ctx context.Context, from ids.ShortID, amount *uint256.Int) error {
	if from == ids.ShortEmpty {
		return ErrZeroAddress
	}
	if err := l.runHooks(ctx, from, ids.ShortEmpty, amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.vdb.Abort()

	balance, err := readAmount(l.balanceDB, from[:])
	if err != nil {
		return err
	}
	newBalance, underflow := new(uint256.Int).SubOverflow(balance, amount)
	if underflow {
		return fmt.Errorf("%w: %s has %s, burning %s", ErrInsufficientBalance, from, balance.Dec(), amount.Dec())
	}
	if err := writeAmount(l.balanceDB, from[:], newBalance); err != nil {
		return err
	}
	supply, err := readAmount(l.vdb, supplyKey)
	if err != nil {
		return err
	}
	if err := writeAmount(l.vdb, supplyKey, new(uint256.Int).Sub(supply, amount)); err != nil {
		return err
	}
	return l.vdb.Commit()
}
