package clock

import "time"

// Clock is injected wherever a timestamp ends up in an order or event.
type Clock interface {
	Now() time.Time
}

type system struct{}

func NewSystem() Clock { return system{} }

func (system) Now() time.Time { return time.Now().UTC() }

type fixed struct {
	at time.Time
}

func NewFixed(at time.Time) Clock { return fixed{at: at.UTC()} }

func (f fixed) Now() time.Time { return f.at }
