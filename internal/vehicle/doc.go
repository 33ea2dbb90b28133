// Package vehicle tracks the live vehicle sessions seen by the ground
// station and designates one of them as active.
//
// All state is owned by a single event loop. Removal and activation are
// two-phase: the first phase runs in the caller's turn and notifies
// observers, the second phase is posted to the loop and runs in a later
// turn. This guarantees that a vehicle is never finalized while a reaction
// to its removal is still running, and that the active slot only ever
// points at a live vehicle once the loop is idle.
package vehicle
