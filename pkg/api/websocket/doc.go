// Package websocket provides real-time worker pool snapshots via WebSocket.
//
// Clients can connect to /pool/stream to receive a JSON snapshot of the
// pool counters on a fixed interval.
package websocket
