// Package harness runs YAML scenarios against a blog store wired to an
// in-process fake backend, then checks assertions and golden traces.
//
// # Scenario Format
//
//	name: paginate_25
//	description: "Three pages over a 25-post collection"
//	backend:
//	  posts: 25
//	steps:
//	  - op: fetch_first
//	  - op: fetch_next
//	  - op: create
//	    draft: { title: "ab", body: "long enough body" }
//	    expect: { error: validation, message: "Title must be at least 3 characters" }
//	assertions:
//	  - type: state
//	    expect: { posts: 20, current_page: 2, has_more: true }
//	  - type: requests
//	    method: POST
//	    count: 0
//
// # Step Ops
//
//   - fetch_first, fetch_next, fetch_page (cursor): list fetches
//   - create (draft), update (post), delete (id): mutations
//   - fail (method, status): make the backend answer status; 0 clears it
//   - next_id (id): fix the id assigned to the next created post
//   - register (email, password), login (email), logout: session
//
// A step without expect must succeed. expect.error names the failure
// class: validation, rejected, in_flight, superseded, stopped.
//
// # Assertion Types
//
//   - state: subset match on posts, current_page, has_more, error,
//     mutation_error, loading, loading_more, mutations
//   - post_ids: exact id order of the list
//   - post: fields of one post in the list
//   - journal_count: number of journal rows with kind and phase
//   - journal_order: "kind/phase" entries appear in this relative order
//   - requests: number of backend requests with method
//   - session: authenticated, email, token_prefix, users
//
// # Determinism
//
// Request ids come from a fixed sequence (req-1, req-2, ...), sequence
// numbers start at 1 for every scenario, and the backend URL is replaced
// by http://backend in recorded errors, so traces compare byte for byte.
package harness
