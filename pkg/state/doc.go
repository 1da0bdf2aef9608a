// Package state implements the entity model at the heart of the hallway
// server: Sessions divide the server into isolated namespaces, Rooms are
// capacity-bounded channels inside a session, Users are joined clients, and
// DataObjects are synchronized key/value records shared by a room's members.
//
// # Locking discipline
//
// All entities hang off a single Registry. The registry owns one mutex and
// every operation below (protocol handling, periodic sweeps, and server-side
// API calls alike) runs while holding it: one protocol message is handled
// completely before the next begins. Unless documented otherwise, exported
// methods in this package REQUIRE the caller to hold the registry lock
// (Registry.Lock/Unlock). Room hooks and observers are invoked synchronously
// under the same lock, so hook code may use this package's API freely but
// must not block or call Registry.Lock itself.
//
// Outbound sends never block under the lock: a Conn enqueues frames and a
// transport goroutine drains them.
package state
