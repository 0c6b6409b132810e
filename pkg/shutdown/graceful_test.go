package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestDrainRunsEveryStepInOrder(t *testing.T) {
	var order []string
	step := func(name string, err error) Step {
		return Step{Name: name, Stop: func(context.Context) error {
			order = append(order, name)
			return err
		}}
	}

	err := Drain(slog.New(slog.DiscardHandler), time.Second,
		step("http", nil),
		step("relay", errors.New("boom")),
		step("postgres", nil),
	)

	if got := strings.Join(order, ","); got != "http,relay,postgres" {
		t.Fatalf("unexpected order %s", got)
	}
	if err == nil || !strings.Contains(err.Error(), "relay: boom") {
		t.Fatalf("expected joined relay error, got %v", err)
	}
}

func TestDrainSharesDeadline(t *testing.T) {
	var deadline time.Time
	err := Drain(slog.New(slog.DiscardHandler), 50*time.Millisecond, Step{
		Name: "slow",
		Stop: func(ctx context.Context) error {
			deadline, _ = ctx.Deadline()
			<-ctx.Done()
			return ctx.Err()
		},
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if deadline.IsZero() {
		t.Fatalf("expected step context to carry a deadline")
	}
}
