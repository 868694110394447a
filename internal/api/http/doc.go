/*
Package http holds the relay's gin handlers.

Forwarding routes:

	POST /api/relay/:address/keypress/*key
	POST /api/relay/:address/launch/*appId
	GET  /api/relay/:address/query/*queryPath
	GET  /api/relay/:address/device

Device responses are written back with the device's status, body and
Content-Type, plus an X-Relay-Outcome header of success, rejected or
unreachable. Invalid parameters get 400 with a JSON error; unreachable
devices get 502 with a plain-text description.
*/
package http
