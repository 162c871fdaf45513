package interaction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/passlane/internal/reconcile"
)

func TestClientDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/interactions/jti-1", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(Interaction{
			JTI:              "jti-1",
			Prompt:           "login",
			RelatedAccountID: "acc-9",
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "secret", time.Second)
	require.NoError(t, err)

	it, err := c.Details(context.Background(), "jti-1")
	require.NoError(t, err)
	assert.Equal(t, "jti-1", it.JTI)
	assert.Equal(t, "acc-9", it.RelatedAccountID)
}

func TestClientDetailsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "", time.Second)
	require.NoError(t, err)

	_, err = c.Details(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClientSubmitResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/interactions/jti-1/result", r.URL.Path)

		var got Result
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.NotNil(t, got.Login)
		assert.Equal(t, "acc-1", got.Login.AccountID)

		_ = json.NewEncoder(w).Encode(map[string]string{"redirectTo": "https://op.example.com/continue"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "", time.Second)
	require.NoError(t, err)

	redirect, err := c.SubmitResult(context.Background(), "jti-1", Result{Login: &LoginResult{AccountID: "acc-1"}})
	require.NoError(t, err)
	assert.Equal(t, "https://op.example.com/continue", redirect)
}

func TestClientSubmitResultProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "", time.Second)
	require.NoError(t, err)

	_, err = c.SubmitResult(context.Background(), "jti-1", Result{Login: &LoginResult{AccountID: "acc-1"}})
	assert.True(t, errors.Is(err, ErrProviderDown))
}

func TestToProviderResult(t *testing.T) {
	for _, kind := range []reconcile.Kind{reconcile.KindSignIn, reconcile.KindRegister, reconcile.KindBindIdentity} {
		res, err := ToProviderResult(&reconcile.Decision{Kind: kind, AccountID: "acc-1"})
		require.NoError(t, err, "kind %s", kind)
		require.NotNil(t, res.Login)
		assert.Equal(t, "acc-1", res.Login.AccountID)
	}

	_, err := ToProviderResult(nil)
	assert.Error(t, err)

	_, err = ToProviderResult(&reconcile.Decision{Kind: "other", AccountID: "acc-1"})
	assert.Error(t, err)
}
