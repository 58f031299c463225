// Package session owns the signed-in user and the token that goes with it.
//
// A Manager reads persisted state once at Init, keeps the live Session in
// memory, and writes through to a Storage on every login, logout, and
// registration. Storage drivers exist for memory, the local SQLite
// database, and Redis.
//
// Login is a mock: any email is accepted and a token of the form
// "mock-<uuid>" is issued. Registration records are appended to a list
// that login never reads.
package session
