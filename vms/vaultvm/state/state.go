// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state persists one vault instance's accounting state.
//
// Every write lands in a versioned layer over the base database. The owning
// vault commits the layer once an operation has fully succeeded and aborts it
// otherwise, which makes each operation all-or-nothing.
package state

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/ids"
	"github.com/luxfi/vault/vms/vaultvm/auth"
	"github.com/luxfi/vault/vms/vaultvm/events"
	"github.com/luxfi/vault/vms/vaultvm/intent"
)

var (
	sharePrefix     = []byte("share")
	allowancePrefix = []byte("allowance")
	metaPrefix      = []byte("meta")
	rolePrefix      = []byte("role")
	consumedPrefix  = []byte("consumed")
	intentPrefix    = []byte("intent")
	eventPrefix     = []byte("event")

	totalSharesKey = []byte("totalShares")
	movedAssetsKey = []byte("movedAssets")
	treasuryKey    = []byte("treasury")
	ownerKey       = []byte("owner")
	nonceKey       = []byte("nonce")
	eventSeqKey    = []byte("eventSeq")

	present = []byte{1}

	_ auth.Store = (*State)(nil)

	ErrCorrupted = errors.New("corrupted vault state")
)

type State struct {
	vdb *versiondb.Database

	shareDB     database.Database
	allowanceDB database.Database
	metaDB      database.Database
	roleDB      database.Database
	consumedDB  database.Database
	intentDB    database.Database
	eventDB     database.Database
}

func New(db database.Database) *State {
	vdb := versiondb.New(db)
	return &State{
		vdb:         vdb,
		shareDB:     prefixdb.New(sharePrefix, vdb),
		allowanceDB: prefixdb.New(allowancePrefix, vdb),
		metaDB:      prefixdb.New(metaPrefix, vdb),
		roleDB:      prefixdb.New(rolePrefix, vdb),
		consumedDB:  prefixdb.New(consumedPrefix, vdb),
		intentDB:    prefixdb.New(intentPrefix, vdb),
		eventDB:     prefixdb.New(eventPrefix, vdb),
	}
}

// Commit writes every pending change to the base database.
func (s *State) Commit() error {
	return s.vdb.Commit()
}

// Abort drops every pending change.
func (s *State) Abort() {
	s.vdb.Abort()
}

func (s *State) Close() error {
	return s.vdb.Close()
}

func getAmount(db database.KeyValueReader, key []byte) (*uint256.Int, error) {
	b, err := db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: amount has %d bytes", ErrCorrupted, len(b))
	}
	return new(uint256.Int).SetBytes32(b), nil
}

func putAmount(db database.KeyValueWriterDeleter, key []byte, v *uint256.Int) error {
	if v.IsZero() {
		return db.Delete(key)
	}
	b := v.Bytes32()
	return db.Put(key, b[:])
}

func getShortID(db database.KeyValueReader, key []byte) (ids.ShortID, error) {
	b, err := db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return ids.ShortEmpty, nil
	}
	if err != nil {
		return ids.ShortEmpty, err
	}
	id, err := ids.ToShortID(b)
	if err != nil {
		return ids.ShortEmpty, fmt.Errorf("%w: %w", ErrCorrupted, err)
	}
	return id, nil
}

func (s *State) TotalShares() (*uint256.Int, error) {
	return getAmount(s.metaDB, totalSharesKey)
}

func (s *State) SetTotalShares(v *uint256.Int) error {
	return putAmount(s.metaDB, totalSharesKey, v)
}

func (s *State) ShareBalance(account ids.ShortID) (*uint256.Int, error) {
	return getAmount(s.shareDB, account[:])
}

func (s *State) SetShareBalance(account ids.ShortID, v *uint256.Int) error {
	return putAmount(s.shareDB, account[:], v)
}

func allowanceKey(owner, spender ids.ShortID) []byte {
	key := make([]byte, 0, 2*ids.ShortIDLen)
	key = append(key, owner[:]...)
	return append(key, spender[:]...)
}

func (s *State) ShareAllowance(owner, spender ids.ShortID) (*uint256.Int, error) {
	return getAmount(s.allowanceDB, allowanceKey(owner, spender))
}

func (s *State) SetShareAllowance(owner, spender ids.ShortID, v *uint256.Int) error {
	return putAmount(s.allowanceDB, allowanceKey(owner, spender), v)
}

// MovedAssets is the advisory net of assets imported minus assets exported.
func (s *State) MovedAssets() (*uint256.Int, error) {
	return getAmount(s.metaDB, movedAssetsKey)
}

func (s *State) SetMovedAssets(v *uint256.Int) error {
	return putAmount(s.metaDB, movedAssetsKey, v)
}

func (s *State) Treasury() (ids.ShortID, error) {
	return getShortID(s.metaDB, treasuryKey)
}

func (s *State) SetTreasury(treasury ids.ShortID) error {
	return s.metaDB.Put(treasuryKey, treasury[:])
}

// NextNonce returns the next unused outbound intent nonce, starting at 1.
func (s *State) NextNonce() (uint64, error) {
	nonce, err := database.GetUInt64(s.metaDB, nonceKey)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return 0, err
	}
	nonce++
	return nonce, database.PutUInt64(s.metaDB, nonceKey, nonce)
}

func (s *State) Owner() (ids.ShortID, error) {
	return getShortID(s.metaDB, ownerKey)
}

func (s *State) SetOwner(owner ids.ShortID) error {
	return s.metaDB.Put(ownerKey, owner[:])
}

func roleKey(role auth.Role, account ids.ShortID) []byte {
	key := make([]byte, 0, 1+ids.ShortIDLen)
	key = append(key, byte(role))
	return append(key, account[:]...)
}

func (s *State) HasRole(role auth.Role, account ids.ShortID) (bool, error) {
	return s.roleDB.Has(roleKey(role, account))
}

func (s *State) SetRole(role auth.Role, account ids.ShortID, member bool) error {
	key := roleKey(role, account)
	if member {
		return s.roleDB.Put(key, present)
	}
	return s.roleDB.Delete(key)
}

func (s *State) RoleMembers(role auth.Role) ([]ids.ShortID, error) {
	it := s.roleDB.NewIteratorWithPrefix([]byte{byte(role)})
	defer it.Release()

	var members []ids.ShortID
	for it.Next() {
		id, err := ids.ToShortID(it.Key()[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupted, err)
		}
		members = append(members, id)
	}
	return members, it.Error()
}

func (s *State) IsConsumed(intentID ids.ID) (bool, error) {
	return s.consumedDB.Has(intentID[:])
}

func (s *State) MarkConsumed(intentID ids.ID) error {
	return s.consumedDB.Put(intentID[:], present)
}

func (s *State) GetIntent(intentID ids.ID) (*intent.Record, error) {
	b, err := s.intentDB.Get(intentID[:])
	if err != nil {
		return nil, err
	}
	return intent.ParseRecord(b)
}

func (s *State) PutIntent(r *intent.Record) error {
	b, err := r.Bytes()
	if err != nil {
		return err
	}
	id := r.Intent.ID()
	return s.intentDB.Put(id[:], b)
}

// Intents returns every record in the given status, or all records when
// status is StatusUnknown.
func (s *State) Intents(status intent.Status) ([]*intent.Record, error) {
	it := s.intentDB.NewIterator()
	defer it.Release()

	var records []*intent.Record
	for it.Next() {
		r, err := intent.ParseRecord(it.Value())
		if err != nil {
			return nil, err
		}
		if status == intent.StatusUnknown || r.Status == status {
			records = append(records, r)
		}
	}
	return records, it.Error()
}

// AppendEvent assigns the next sequence number to e and stores it.
func (s *State) AppendEvent(e *events.Event) error {
	seq, err := database.GetUInt64(s.metaDB, eventSeqKey)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}
	seq++
	e.Seq = seq
	b, err := e.Bytes()
	if err != nil {
		return err
	}
	if err := s.eventDB.Put(database.PackUInt64(seq), b); err != nil {
		return err
	}
	return database.PutUInt64(s.metaDB, eventSeqKey, seq)
}

// Events returns up to limit events with sequence number >= from.
// A zero limit means no limit.
func (s *State) Events(from uint64, limit int) ([]*events.Event, error) {
	it := s.eventDB.NewIteratorWithStart(database.PackUInt64(from))
	defer it.Release()

	var out []*events.Event
	for it.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		e, err := events.Parse(it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, it.Error()
}
