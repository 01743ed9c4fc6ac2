// Package websocket pushes dataset lifecycle events to connected
// dashboard clients.
//
// The Hub tracks the active clients and fans broadcast events out to
// them; each Client runs a read pump and a write pump over a gorilla
// websocket connection. Events are JSON envelopes with a type, a
// uuid event id, and a payload.
package websocket
