package db

import (
	"fmt"

	"github.com/thatsimonsguy/plug-remote/internal/model"
)

func ListAddressesCLI(dbPath string) ([]model.AddressRecord, error) {
	dbConn, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer dbConn.Close()
	return GetAllAddresses(dbConn)
}

// ForgetAddressesCLI removes cached slots so the next boot resolves them again.
func ForgetAddressesCLI(dbPath string, slots ...model.Slot) error {
	dbConn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	for _, slot := range slots {
		if err := DeleteAddress(dbConn, string(slot)); err != nil {
			return fmt.Errorf("forget %s: %w", slot.Label(), err)
		}
	}
	return nil
}

// StoreAddressCLI pins a slot to a known address, skipping discovery.
func StoreAddressCLI(dbPath string, slot model.Slot, ip model.IPv4) error {
	dbConn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	store := NewAddressStore(dbConn)
	store.Set(string(slot), uint32(ip))
	return store.Commit()
}
