// Package wiki is a minimal MediaWiki API client for creating pages.
//
// A Client holds one authenticated session: a cookie jar, the login token
// and the session state. The session moves through a small state machine:
//
//	Unauthenticated -> Authenticated -> LoggedOut
//	Unauthenticated -> Failed
//
// Login resubmits the credentials exactly once when the server answers
// NeedToken. Page creation is two calls: Query fetches a single-use edit
// token and start timestamp for one title, and Create submits a create-only
// edit carrying them together with the MD5 of the page text. The server
// decides conflicts; a create-only edit that loses a race comes back as a
// PageConflict.
//
// A Client is not safe for concurrent use. All calls are made from the
// goroutine that owns the session.
package wiki
