package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
)

// GoogleJWKSURL publishes the securetoken signing keys Firebase ID tokens
// are signed with.
const GoogleJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

const defaultKeyTTL = 6 * time.Hour

// KeySource supplies the provider's current JSON Web Key Set.
type KeySource interface {
	Keys(ctx context.Context) (*gojose.JSONWebKeySet, error)
	Refresh(ctx context.Context) (*gojose.JSONWebKeySet, error)
}

// GoogleKeySource fetches the Google JWKS over HTTPS and caches it for the
// duration advertised by the endpoint's Cache-Control header.
type GoogleKeySource struct {
	httpClient *http.Client
	url        string

	mu        sync.Mutex
	cached    *gojose.JSONWebKeySet
	expiresAt time.Time
}

var _ KeySource = (*GoogleKeySource)(nil)

// NewGoogleKeySource constructs the default key source.
func NewGoogleKeySource(client *http.Client) *GoogleKeySource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleKeySource{httpClient: client, url: GoogleJWKSURL}
}

// NewKeySourceForURL is used by tests to point the source at a local server.
func NewKeySourceForURL(client *http.Client, url string) *GoogleKeySource {
	src := NewGoogleKeySource(client)
	src.url = url
	return src
}

// Keys returns the cached key set, fetching when absent or stale.
func (s *GoogleKeySource) Keys(ctx context.Context) (*gojose.JSONWebKeySet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && time.Now().Before(s.expiresAt) {
		return s.cached, nil
	}
	return s.fetchLocked(ctx)
}

// Refresh discards the cache and fetches a fresh key set.
func (s *GoogleKeySource) Refresh(ctx context.Context) (*gojose.JSONWebKeySet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchLocked(ctx)
}

func (s *GoogleKeySource) fetchLocked(ctx context.Context) (*gojose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jwks request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read jwks: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jwks fetch failed: status=%d", resp.StatusCode)
	}

	var set gojose.JSONWebKeySet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}
	if len(set.Keys) == 0 {
		return nil, fmt.Errorf("jwks fetch returned no keys")
	}

	s.cached = &set
	s.expiresAt = time.Now().Add(cacheTTL(resp.Header.Get("Cache-Control")))
	return s.cached, nil
}

// cacheTTL extracts max-age from a Cache-Control header, falling back to a
// conservative default.
func cacheTTL(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		directive = strings.TrimSpace(directive)
		if !strings.HasPrefix(directive, "max-age=") {
			continue
		}
		seconds, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
		if err != nil || seconds <= 0 {
			break
		}
		return time.Duration(seconds) * time.Second
	}
	return defaultKeyTTL
}

// StaticKeySource serves a fixed key set. Intended for tests.
type StaticKeySource struct {
	Set *gojose.JSONWebKeySet
}

func (s *StaticKeySource) Keys(context.Context) (*gojose.JSONWebKeySet, error)    { return s.Set, nil }
func (s *StaticKeySource) Refresh(context.Context) (*gojose.JSONWebKeySet, error) { return s.Set, nil }
