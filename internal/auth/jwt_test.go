package auth_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariefcatur/holycat-orders/internal/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "testsecret"

func echoPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "no principal", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "%d:%s", p.UserID, p.Role)
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_Bearer(t *testing.T) {
	tok, err := auth.NewToken(secret, 42, "USER", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := serve(auth.Middleware(secret, "token")(echoPrincipal()), req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "42:USER", rr.Body.String())
}

func TestMiddleware_Cookie(t *testing.T) {
	tok, err := auth.NewToken(secret, 7, auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: tok})
	rr := serve(auth.Middleware(secret, "token")(echoPrincipal()), req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "7:ADMIN", rr.Body.String())
}

func TestMiddleware_Rejects(t *testing.T) {
	expired, err := auth.NewToken(secret, 1, "USER", -time.Minute)
	require.NoError(t, err)
	foreign, err := auth.NewToken("other", 1, "USER", time.Hour)
	require.NoError(t, err)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	badSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "cat"}).SignedString([]byte(secret))
	require.NoError(t, err)

	cases := map[string]string{
		"missing":      "",
		"bad format":   "Token abc",
		"garbage":      "Bearer invalid.token.value",
		"expired":      "Bearer " + expired,
		"wrong secret": "Bearer " + foreign,
		"alg none":     "Bearer " + unsigned,
		"non numeric":  "Bearer " + badSub,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rr := serve(auth.Middleware(secret, "token")(echoPrincipal()), req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Contains(t, rr.Body.String(), `"error"`)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	h := auth.RequireAdmin(echoPrincipal())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code)

	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{UserID: 1, Role: "USER"}))
	assert.Equal(t, http.StatusForbidden, serve(h, req).Code)

	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{UserID: 1, Role: auth.RoleAdmin}))
	assert.Equal(t, http.StatusOK, serve(h, req).Code)
}
