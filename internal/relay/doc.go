/*
Package relay forwards remote-control commands to a media player's local
control port (8060).

A forward is a pure function of (operation, address, operand): it issues
exactly one HTTP request to the device and returns an Outcome. Any HTTP
response from the device is passed back verbatim (KindSuccess for 2xx,
KindRejected otherwise); network failures become KindUnreachable with an
error wrapping ErrUnreachable. Nothing is retried, cached or coalesced.

	r := relay.New(relay.Config{Timeout: 4 * time.Second}).
		WithLogger(logger).
		WithMetrics(metrics)

	outcome, err := r.Keypress(ctx, "192.168.1.20", "Home")

The outbound transport is injectable with WithTransport, which is how tests
stand in for a device.
*/
package relay
