package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func protected() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(PrincipalFromContext(r.Context())))
	})
}

func serve(h http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBearerGuard(t *testing.T) {
	h := BearerGuard(testSecret, JWTConfig{Audience: "health"})(protected())
	token := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"sub": "probe-runner",
		"aud": "health",
		"exp": time.Now().Add(time.Minute).Unix(),
	})

	rec := serve(h, "Authorization", "Bearer "+token)
	if rec.Code != http.StatusOK || rec.Body.String() != "probe-runner" {
		t.Errorf("valid token: code=%d body=%q", rec.Code, rec.Body.String())
	}

	rec = serve(h, "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: code=%d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("401 without WWW-Authenticate")
	}

	rec = serve(h, "Authorization", "Bearer not.a.jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: code=%d, want 401", rec.Code)
	}
}

func TestGuard_InternalError(t *testing.T) {
	h := BearerGuard(nil, JWTConfig{})(protected())
	token := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "x"})

	if rec := serve(h, "Authorization", "Bearer "+token); rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
}

func TestGuardConfig_Build(t *testing.T) {
	guard, err := GuardConfig{}.Build()
	if err != nil || guard != nil {
		t.Fatalf("Build() of empty config = %p, %v, want nil, nil", guard, err)
	}

	guard, err = GuardConfig{JWTSecret: string(testSecret), APIKeys: []string{"k3y"}}.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	h := guard(protected())

	if rec := serve(h, "X-API-Key", "k3y"); rec.Code != http.StatusOK || rec.Body.String() != "api-key-0" {
		t.Errorf("api key: code=%d body=%q", rec.Code, rec.Body.String())
	}
	token := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "ci"})
	if rec := serve(h, "Authorization", "Bearer "+token); rec.Code != http.StatusOK || rec.Body.String() != "ci" {
		t.Errorf("jwt: code=%d body=%q", rec.Code, rec.Body.String())
	}
	if rec := serve(h, "X-API-Key", "nope"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: code=%d, want 401", rec.Code)
	}

	if _, err := (GuardConfig{APIKeys: []string{" "}}).Build(); err == nil {
		t.Error("Build() with a blank api key should fail")
	}
}

func TestIdentity(t *testing.T) {
	anon := AnonymousIdentity()
	if !anon.IsAnonymous() || anon.IsExpired() {
		t.Errorf("AnonymousIdentity() = %+v", anon)
	}

	expired := &Identity{Principal: "p", ExpiresAt: time.Now().Add(-time.Second)}
	if !expired.IsExpired() || expired.IsAnonymous() {
		t.Errorf("identity = %+v, want expired and not anonymous", expired)
	}
}
