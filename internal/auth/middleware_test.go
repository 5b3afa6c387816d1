package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/honeynil/auth-service/internal/models"
	"github.com/stretchr/testify/assert"
)

// capture records what the gate attached to the request context.
type capture struct {
	called    bool
	principal *models.Principal
	hasID     bool
	accountID int32
}

func (c *capture) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.principal, _ = PrincipalFromContext(r.Context())
		c.accountID, c.hasID = AccountIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func gateRequest(t *testing.T, tm *TokenManager, rm *RevocationManager, authHeader string) (*capture, *httptest.ResponseRecorder) {
	t.Helper()
	c := &capture{}
	gate := Authenticate(tm, rm)(c.handler())

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)
	return c, rec
}

func TestAuthenticate_ValidToken(t *testing.T) {
	_, store := newTestStore(t)
	tm := newTestManager(t)
	rm := NewRevocationManager(store)

	token, err := tm.Create("alice", 7, []string{"ROLE_USER"})
	assert.NoError(t, err)

	c, rec := gateRequest(t, tm, rm, "Bearer "+token)
	assert.True(t, c.called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, c.principal)
	assert.Equal(t, "alice", c.principal.Username)
	assert.Equal(t, []string{"ROLE_USER"}, c.principal.Authorities)
	assert.True(t, c.hasID)
	assert.Equal(t, int32(7), c.accountID)
}

func TestAuthenticate_NoHeader(t *testing.T) {
	_, store := newTestStore(t)
	tm := newTestManager(t)
	rm := NewRevocationManager(store)

	c, rec := gateRequest(t, tm, rm, "")
	assert.True(t, c.called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, c.principal)
	assert.False(t, c.hasID)
}

// A wrong scheme is "no credential offered", not an error.
func TestAuthenticate_WrongScheme(t *testing.T) {
	_, store := newTestStore(t)
	tm := newTestManager(t)
	rm := NewRevocationManager(store)

	c, rec := gateRequest(t, tm, rm, "Basic xyz")
	assert.True(t, c.called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, c.principal)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	_, store := newTestStore(t)
	tm := newTestManager(t)
	rm := NewRevocationManager(store)

	c, _ := gateRequest(t, tm, rm, "Bearer not.a.token")
	assert.True(t, c.called)
	assert.Nil(t, c.principal)
}

func TestAuthenticate_RevokedToken(t *testing.T) {
	_, store := newTestStore(t)
	tm := newTestManager(t)
	rm := NewRevocationManager(store)

	token, err := tm.Create("alice", 7, []string{"ROLE_USER"})
	assert.NoError(t, err)
	claims, err := tm.Verify(token)
	assert.NoError(t, err)

	ok, err := rm.Revoke(context.Background(), claims.Identifier(), claims.ExpiresAt.Time)
	assert.NoError(t, err)
	assert.True(t, ok)

	c, rec := gateRequest(t, tm, rm, "Bearer "+token)
	assert.True(t, c.called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, c.principal)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	_, store := newTestStore(t)
	tm := newTestManager(t)
	rm := NewRevocationManager(store)

	claims := Claims{
		AccountID: 7,
		Name:      "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "old",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-48 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	assert.NoError(t, err)

	c, _ := gateRequest(t, tm, rm, "Bearer "+token)
	assert.True(t, c.called)
	assert.Nil(t, c.principal)
}

// Store failures make the token unverifiable: the request passes
// through unauthenticated rather than being accepted or rejected.
func TestAuthenticate_StoreUnavailable(t *testing.T) {
	mr, store := newTestStore(t)
	tm := newTestManager(t)
	rm := NewRevocationManager(store)

	token, err := tm.Create("alice", 7, []string{"ROLE_USER"})
	assert.NoError(t, err)

	mr.SetError("store down")

	c, rec := gateRequest(t, tm, rm, "Bearer "+token)
	assert.True(t, c.called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, c.principal)
}

func TestRequireAuthenticated(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := RequireAuthenticated(inner)

	t.Run("no principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("with principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
		ctx := WithPrincipal(req.Context(), &models.Principal{Username: "alice"})
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req.WithContext(ctx))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

// Missing identity is 401; present identity without the authority is
// 403. The two must never be conflated.
func TestRequireAuthority(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := RequireAuthority("ROLE_ADMIN")(inner)

	t.Run("no principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing authority", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
		ctx := WithPrincipal(req.Context(), &models.Principal{
			Username:    "alice",
			Authorities: []string{"ROLE_USER"},
		})
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req.WithContext(ctx))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("with authority", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
		ctx := WithPrincipal(req.Context(), &models.Principal{
			Username:    "root",
			Authorities: []string{"ROLE_ADMIN"},
		})
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req.WithContext(ctx))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
