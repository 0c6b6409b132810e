package domain

import (
	"errors"
	"fmt"
)

var (
	ErrLockAcquisition = errors.New("lock acquisition failed")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

func StockKey(productID int64) string {
	return fmt.Sprintf("inventory:product:%d:stock", productID)
}

func LockKey(productID int64) string {
	return fmt.Sprintf("inventory:product:%d:lock", productID)
}

type LockAcquisitionError struct {
	ProductID int64
	Attempts  int
}

func (e *LockAcquisitionError) Error() string {
	return fmt.Sprintf("could not acquire lock for product %d after %d attempts", e.ProductID, e.Attempts)
}

func (e *LockAcquisitionError) Is(target error) bool { return target == ErrLockAcquisition }
