package db

import (
	"database/sql"
	"fmt"
	"time"
)

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

// SetAddressWithTx overwrites the record for a slot.
func SetAddressWithTx(tx *sql.Tx, slot string, ip uint32, now time.Time) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO addresses (slot, ip, updated_at) VALUES (?, ?, ?)`,
		slot, int64(ip), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set address for %s: %w", slot, err)
	}
	return nil
}

func DeleteAddress(db *sql.DB, slot string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	_, err = tx.Exec(`DELETE FROM addresses WHERE slot = ?`, slot)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("delete address for %s: %w", slot, err)
	}
	return tx.Commit()
}
