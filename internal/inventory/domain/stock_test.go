package domain

import (
	"errors"
	"testing"
)

func TestKeys(t *testing.T) {
	if got := StockKey(12); got != "inventory:product:12:stock" {
		t.Fatalf("unexpected stock key %q", got)
	}
	if got := LockKey(12); got != "inventory:product:12:lock" {
		t.Fatalf("unexpected lock key %q", got)
	}
}

func TestLockAcquisitionError(t *testing.T) {
	var err error = &LockAcquisitionError{ProductID: 3, Attempts: 3}
	if !errors.Is(err, ErrLockAcquisition) {
		t.Fatalf("expected ErrLockAcquisition match")
	}
	if err.Error() != "could not acquire lock for product 3 after 3 attempts" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
