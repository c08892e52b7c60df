package service

import (
	"errors"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
	"github.com/SeunOnTech/sol-stake-backend/internal/store"
)

// storeFault tags a store error so handlers can tell a missing row from a broken database.
func storeFault(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return fault.New(fault.KindNotFound, op, err)
	}
	if fault.KindOf(err) != fault.KindUnknown {
		return err
	}
	return fault.New(fault.KindPersistenceUnavailable, op, err)
}
