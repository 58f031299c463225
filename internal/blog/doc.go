// Package blog defines the post model shared by the HTTP adapter, the blog
// store and the CLI, together with client-side draft validation.
//
// Validation happens before any network call. A draft that fails validation
// never reaches the backend.
package blog
