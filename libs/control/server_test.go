package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jax-trading-assistant/libs/auth"
)

func TestHandlerWithoutJWTManagerSkipsAuth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.RegisterStatus()

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerWithJWTManagerRejectsUnauthenticated(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.RegisterStatus()

	jwtManager, err := auth.NewJWTManager(auth.Config{Secret: []byte("test-secret")})
	require.NoError(t, err)
	srv.jwt = jwtManager

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerWithJWTManagerAcceptsValidToken(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.RegisterStatus()

	jwtManager, err := auth.NewJWTManager(auth.Config{Secret: []byte("test-secret")})
	require.NoError(t, err)
	srv.jwt = jwtManager

	token, err := jwtManager.GenerateToken("u1", "operator", "admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListenAndServeShutsDownOnContextCancel(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.RegisterAll()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not shut down within timeout")
	}
}
