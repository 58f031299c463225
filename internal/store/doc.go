// Package store provides SQLite-backed local state for blogdesk.
//
// Two tables live in one database file:
//   - kv: the persisted client state (session user, token, registration
//     records), the local equivalent of browser storage
//   - operations: an append-only journal of blog store operations, one row
//     per phase (pending, fulfilled, rejected, dropped)
//
// # Ordering
//
// Journal rows carry the seq stamped by the blog store's logical clock. All
// journal queries ORDER BY seq ASC, id ASC so traces read back in the order
// the store applied them, independent of wall time.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - a single open connection, SQLite has one writer anyway
package store
