package client

import "time"

// Clock abstracts timer creation so the poller's backoff can run against a
// virtual clock in tests.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
