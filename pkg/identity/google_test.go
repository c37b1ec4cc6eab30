package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newFakeGoogle(t *testing.T, userinfo string) *Google {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, userinfo)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	g := NewGoogle("client", "secret", "http://localhost/callback")
	g.cfg.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	g.userInfoURL = srv.URL + "/userinfo"
	return g
}

func TestGoogleExchange(t *testing.T) {
	g := newFakeGoogle(t, `{"sub":"1","email":" Alice@Example.com ","email_verified":true,"name":"Alice"}`)

	p, err := g.Exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", p.Email)
	assert.Equal(t, "Alice", p.Name)
}

func TestGoogleExchangeUnverified(t *testing.T) {
	g := newFakeGoogle(t, `{"sub":"1","email":"bob@example.com","email_verified":false}`)

	_, err := g.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestGoogleNotConfigured(t *testing.T) {
	g := NewGoogle("", "", "")
	_, err := g.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAuthCodeURL(t *testing.T) {
	g := NewGoogle("client", "secret", "http://localhost/callback")
	state := NewState()

	u, err := url.Parse(g.AuthCodeURL(state))
	require.NoError(t, err)
	assert.Equal(t, state, u.Query().Get("state"))
	assert.Equal(t, "client", u.Query().Get("client_id"))
}
