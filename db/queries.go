package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/thatsimonsguy/plug-remote/internal/model"
)

// GetAddress retrieves the packed address stored for a slot key.
func GetAddress(db *sql.DB, slot string) (uint32, error) {
	var ip int64
	err := db.QueryRow(`SELECT ip FROM addresses WHERE slot = ?`, slot).Scan(&ip)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get address for %s: %w", slot, err)
	}
	return uint32(ip), nil
}

// GetAllAddresses retrieves every stored address record, ordered by slot.
func GetAllAddresses(db *sql.DB) ([]model.AddressRecord, error) {
	rows, err := db.Query(`SELECT slot, ip, updated_at FROM addresses ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var records []model.AddressRecord
	for rows.Next() {
		var r model.AddressRecord
		var slot string
		var ip int64
		var updatedAt sql.NullString
		if err := rows.Scan(&slot, &ip, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		r.Slot = model.Slot(slot)
		r.Address = model.IPv4(uint32(ip))
		if updatedAt.Valid {
			r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt.String)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
