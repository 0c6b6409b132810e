package domain

import (
	"errors"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	all := []OrderStatus{
		StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusFailed,
	}
	allowed := map[OrderStatus]map[OrderStatus]bool{
		StatusPending:    {StatusConfirmed: true, StatusCancelled: true, StatusFailed: true},
		StatusConfirmed:  {StatusProcessing: true, StatusCancelled: true},
		StatusProcessing: {StatusShipped: true, StatusCancelled: true},
		StatusShipped:    {StatusDelivered: true},
	}

	for _, from := range all {
		for _, to := range all {
			got, err := Transition(from, to)
			if allowed[from][to] {
				if err != nil || got != to {
					t.Fatalf("%s -> %s: expected allowed, got %s (%v)", from, to, got, err)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s -> %s: expected ErrInvalidTransition, got %v", from, to, err)
			}
			if got != from {
				t.Fatalf("%s -> %s: status changed on rejection to %s", from, to, got)
			}
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []OrderStatus{StatusDelivered, StatusCancelled, StatusFailed} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []OrderStatus{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
	if OrderStatus("bogus").Terminal() {
		t.Fatalf("unknown status reported terminal")
	}
}
