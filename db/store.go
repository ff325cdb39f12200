package db

import (
	"database/sql"
	"errors"
	"sort"
	"time"
)

// AddressStore gives the address table get/set/commit semantics: Set only
// stages a value, Commit writes everything staged in one transaction.
type AddressStore struct {
	db      *sql.DB
	pending map[string]uint32
	now     func() time.Time
}

func NewAddressStore(db *sql.DB) *AddressStore {
	return &AddressStore{
		db:      db,
		pending: make(map[string]uint32),
		now:     time.Now,
	}
}

// Get reports the committed value for key. A missing key is (0, false, nil).
func (s *AddressStore) Get(key string) (uint32, bool, error) {
	ip, err := GetAddress(s.db, key)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return ip, true, nil
}

func (s *AddressStore) Set(key string, value uint32) {
	s.pending[key] = value
}

func (s *AddressStore) Commit() error {
	if len(s.pending) == 0 {
		return nil
	}

	tx, err := StartTransaction(s.db)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := s.now()
	for _, k := range keys {
		if err := SetAddressWithTx(tx, k, s.pending[k], now); err != nil {
			RollbackTransaction(tx)
			return err
		}
	}

	if err := CommitTransaction(tx); err != nil {
		return err
	}
	s.pending = make(map[string]uint32)
	return nil
}
