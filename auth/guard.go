package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Guard returns HTTP middleware that admits only requests a accepts.
// The authenticated identity is attached to the request context.
// Rejected requests get 401; authenticator errors get 500.
func Guard(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := RequestFromHTTP(r)

			if !a.Supports(r.Context(), req) {
				reject(w, ErrMissingCredentials)
				return
			}

			result, err := a.Authenticate(r.Context(), req)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication unavailable"})
				return
			}
			if !result.Authenticated {
				reject(w, result.Error)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), result.Identity)))
		})
	}
}

func reject(w http.ResponseWriter, err error) {
	if err == nil {
		err = ErrInvalidCredentials
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="health"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// BearerGuard guards a handler with HMAC-signed bearer JWTs.
func BearerGuard(secret []byte, cfg JWTConfig) func(http.Handler) http.Handler {
	return Guard(NewJWTAuthenticator(cfg, NewStaticKeyProvider(secret)))
}

// GuardConfig selects the credentials accepted on guarded endpoints.
type GuardConfig struct {
	// JWTSecret enables bearer JWT authentication with an HMAC key.
	JWTSecret string    `mapstructure:"jwt_secret"`
	JWT       JWTConfig `mapstructure:"jwt"`

	// APIKeys enables API key authentication with these plaintext keys.
	APIKeys []string     `mapstructure:"api_keys"`
	APIKey  APIKeyConfig `mapstructure:"api_key"`
}

// Enabled reports whether any credential type is configured.
func (c GuardConfig) Enabled() bool {
	return c.JWTSecret != "" || len(c.APIKeys) > 0
}

// Build returns the configured middleware, or nil when no credential type
// is configured.
func (c GuardConfig) Build() (func(http.Handler) http.Handler, error) {
	if !c.Enabled() {
		return nil, nil
	}

	var auths []Authenticator
	if c.JWTSecret != "" {
		auths = append(auths, NewJWTAuthenticator(c.JWT, NewStaticKeyProvider([]byte(c.JWTSecret))))
	}
	if len(c.APIKeys) > 0 {
		store := NewMemoryAPIKeyStore()
		for i, key := range c.APIKeys {
			if err := store.AddKey(fmt.Sprintf("key-%d", i), fmt.Sprintf("api-key-%d", i), key); err != nil {
				return nil, errors.Join(ErrInvalidCredentials, err)
			}
		}
		auths = append(auths, NewAPIKeyAuthenticator(c.APIKey, store))
	}

	if len(auths) == 1 {
		return Guard(auths[0]), nil
	}
	return Guard(NewCompositeAuthenticator(auths...)), nil
}
