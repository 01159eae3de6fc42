// Package auth guards the verbose health endpoints.
//
// A Guard wraps an http.Handler and admits only requests an Authenticator
// accepts: a bearer JWT (JWTAuthenticator) or a static API key
// (APIKeyAuthenticator), optionally combined with CompositeAuthenticator.
// Rejected requests get 401 without reaching the health handler.
package auth
