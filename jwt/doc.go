// Package jwt issues and parses the short-lived HS256 access tokens bound to a session id.
//
// Every parse failure collapses to [ErrInvalidToken] so callers cannot tell a bad signature
// from an expired token.
package jwt
