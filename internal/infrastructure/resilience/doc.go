/*
Package resilience provides a circuit breaker and a keyed breaker group.

# Overview

The relay can guard each device address with its own breaker so that an
unplugged player fails fast instead of tying up a request for the full
device timeout on every key press. Breakers are opt-in; with none configured
the relay makes exactly one device call per request.

# Usage

	group := resilience.NewGroup(resilience.Settings{
		Timeout:     30 * time.Second,
		ReadyToTrip: resilience.ConsecutiveFailures(5),
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Info("breaker", zap.String("device", name), zap.Stringer("to", to))
		},
	}).WithIdleTTL(10 * time.Minute).OnEvict(func(addr string) {
		metrics.SetBreakerOpen(addr, false)
	})

	done, err := group.Get(addr).Allow()
	if err != nil {
		return err // ErrCircuitOpen or ErrTooManyRequests
	}
	resp, err := call()
	done(err == nil)

Keys unused for the idle TTL are dropped on a later Get, so a stream of
distinct addresses cannot grow the group without bound.

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                          Open
*/
package resilience
