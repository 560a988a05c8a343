// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auth

import (
	"sync"

	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a non-transactional Store, useful for tooling and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	owner   ids.ShortID
	members map[Role]set.Set[ids.ShortID]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		members: make(map[Role]set.Set[ids.ShortID]),
	}
}

func (s *MemoryStore) Owner() (ids.ShortID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner, nil
}

func (s *MemoryStore) SetOwner(owner ids.ShortID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
	return nil
}

func (s *MemoryStore) HasRole(role Role, account ids.ShortID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members[role].Contains(account), nil
}

func (s *MemoryStore) SetRole(role Role, account ids.ShortID, member bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.members[role]
	if !ok {
		members = set.NewSet[ids.ShortID](1)
	}
	if member {
		members.Add(account)
	} else {
		members.Remove(account)
	}
	s.members[role] = members
	return nil
}

func (s *MemoryStore) RoleMembers(role Role) ([]ids.ShortID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.members[role].List(), nil
}
