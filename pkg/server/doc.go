// Package server hosts the hallway wire protocol over WebSocket and raw TCP
// transports. It owns the connection lifecycle, decodes inbound frames, and
// dispatches each message against the state registry one at a time. An HTTP
// mux exposes the WebSocket endpoint next to Prometheus metrics and a health
// check.
package server
