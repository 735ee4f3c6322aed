package identity_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	gojose "github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/require"

	"github.com/crewbook/portal/internal/identity"
)

func TestGoogleKeySourceCachesByMaxAge(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	set := gojose.JSONWebKeySet{Keys: []gojose.JSONWebKey{{
		Key: key.Public(), KeyID: "kid-a", Algorithm: string(gojose.RS256), Use: "sig",
	}}}

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		_ = json.NewEncoder(w).Encode(set)
	}))
	defer srv.Close()

	source := identity.NewKeySourceForURL(srv.Client(), srv.URL)
	ctx := context.Background()

	first, err := source.Keys(ctx)
	require.NoError(t, err)
	require.Len(t, first.Key("kid-a"), 1)

	_, err = source.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, calls, "second read should hit the cache")

	_, err = source.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, calls, "refresh bypasses the cache")
}

func TestGoogleKeySourceRejectsEmptySet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(gojose.JSONWebKeySet{})
	}))
	defer srv.Close()

	source := identity.NewKeySourceForURL(srv.Client(), srv.URL)
	_, err := source.Keys(context.Background())
	require.Error(t, err)
}

func TestGoogleKeySourceSurfacesHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	source := identity.NewKeySourceForURL(srv.Client(), srv.URL)
	_, err := source.Keys(context.Background())
	require.Error(t, err)
}
