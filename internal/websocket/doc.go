// Package websocket pushes analysis progress to browser clients.
//
// A Hub owns the set of connected clients and fans out messages from a
// single goroutine. Clients may subscribe to one run ID; messages tagged
// with another run are not delivered to them. The Hub satisfies
// operations.WebSocketHub, so a StatusBroadcaster can publish run
// snapshots directly.
package websocket
