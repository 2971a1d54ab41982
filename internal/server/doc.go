// Package server implements the HTTP and WebSocket transport for the chat
// relay.
//
// A Hub owns the live connections: it opens a relay session when a client
// registers and closes it when the client's read pump ends. Each Client runs
// a read pump feeding the session and a write pump draining its bounded send
// queue, one JSON document per text frame.
package server
