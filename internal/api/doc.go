// Package api is the HTTP adapter for the posts collection resource.
//
// Every call is a single JSON request/response against
// <base>/posts or <base>/posts/{id}:
//
//	list    GET    /posts        -> []Post
//	create  POST   /posts        -> Post (server-assigned id)
//	update  PUT    /posts/{id}   -> Post
//	delete  DELETE /posts/{id}   -> body ignored
//
// Any transport failure or non-2xx status is returned as *Error. There is no
// retry policy; a failed request is reported once.
package api
