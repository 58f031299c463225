// Package blogstore holds the paginated list of posts and the operations
// that load and mutate it.
//
// All state changes happen on one goroutine, the Run loop. An operation
// runs in the caller's goroutine in three steps:
//
//  1. enqueue a pending event and wait for the loop to apply it
//  2. perform the network call
//  3. enqueue a fulfilled or rejected event and wait for it to be applied
//
// List fetches share a single in-flight slot. A first-page fetch takes the
// slot from a running next-page fetch, whose completion is then dropped. A
// next-page fetch never waits: if the slot is taken it fails with
// ErrRequestInFlight before any request is sent.
//
// Every applied phase is stamped with a monotonic sequence number and, when
// a Journal is configured, written to it.
package blogstore
