package jwtx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jwksServer serves a mutable key set and counts requests.
type jwksServer struct {
	*httptest.Server

	mu    sync.Mutex
	keys  *jwtx.KeySet
	down  bool
	delay time.Duration
	hits  atomic.Int32
}

func newJWKSServer(t *testing.T) *jwksServer {
	t.Helper()

	s := &jwksServer{keys: jwtx.NewKeySet()}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)

		s.mu.Lock()
		down, delay, set := s.down, s.delay, s.keys.PublicJWKS()
		s.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if down {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) add(t *testing.T, signer jwtx.Signer) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NoError(t, s.keys.AddSigner(signer))
}

func (s *jwksServer) setDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newRemote(srv *jwksServer, clock *fakeClock) *jwtx.RemoteKeySet {
	return jwtx.NewRemoteKeySet(jwtx.RemoteKeySetOptions{
		URL:                srv.URL,
		TTL:                5 * time.Minute,
		FetchTimeout:       time.Second,
		MinRefreshInterval: 10 * time.Second,
		Now:                clock.Now,
	})
}

func TestRemoteKeySet_CachesUntilTTL(t *testing.T) {
	ctx := context.Background()
	srv := newJWKSServer(t)
	signer := newSigner(t, jwtx.AlgorithmEdDSA, "k1")
	srv.add(t, signer)

	clock := &fakeClock{now: time.Now()}
	remote := newRemote(srv, clock)
	require.False(t, remote.Ready())

	_, err := remote.Key(ctx, "k1")
	require.NoError(t, err)
	require.True(t, remote.Ready())

	_, err = remote.Key(ctx, "k1")
	require.NoError(t, err)
	require.EqualValues(t, 1, srv.hits.Load())

	clock.Advance(5 * time.Minute)
	_, err = remote.Key(ctx, "k1")
	require.NoError(t, err)
	require.EqualValues(t, 2, srv.hits.Load())
}

func TestRemoteKeySet_UnknownKIDRefetchIsRateLimited(t *testing.T) {
	ctx := context.Background()
	srv := newJWKSServer(t)
	srv.add(t, newSigner(t, jwtx.AlgorithmEdDSA, "k1"))

	clock := &fakeClock{now: time.Now()}
	remote := newRemote(srv, clock)

	_, err := remote.Key(ctx, "k1")
	require.NoError(t, err)

	// Unknown kid right after a fetch does not refetch.
	_, err = remote.Key(ctx, "k2")
	require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	require.EqualValues(t, 1, srv.hits.Load())

	// The issuer rotates; once the interval passes the new kid is picked up.
	srv.add(t, newSigner(t, jwtx.AlgorithmEdDSA, "k2"))
	clock.Advance(10 * time.Second)

	_, err = remote.Key(ctx, "k2")
	require.NoError(t, err)
	require.EqualValues(t, 2, srv.hits.Load())
}

func TestRemoteKeySet_ServesStaleOnFailure(t *testing.T) {
	ctx := context.Background()
	srv := newJWKSServer(t)
	srv.add(t, newSigner(t, jwtx.AlgorithmEdDSA, "k1"))

	clock := &fakeClock{now: time.Now()}
	remote := newRemote(srv, clock)

	_, err := remote.Key(ctx, "k1")
	require.NoError(t, err)

	srv.setDown(true)
	clock.Advance(10 * time.Minute)

	key, err := remote.Key(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, key)

	_, err = remote.Key(ctx, "k-missing")
	require.Error(t, err)
}

func TestRemoteKeySet_FetchFailureWithoutCache(t *testing.T) {
	srv := newJWKSServer(t)
	srv.setDown(true)

	clock := &fakeClock{now: time.Now()}
	remote := newRemote(srv, clock)

	_, err := remote.Key(context.Background(), "k1")
	require.ErrorIs(t, err, jwtx.ErrKeyFetch)

	// Within the refresh interval the issuer is not asked again.
	_, err = remote.Key(context.Background(), "k1")
	require.ErrorIs(t, err, jwtx.ErrKeyFetch)
	require.EqualValues(t, 1, srv.hits.Load())
}

func TestRemoteKeySet_FetchTimeout(t *testing.T) {
	srv := newJWKSServer(t)
	srv.add(t, newSigner(t, jwtx.AlgorithmEdDSA, "k1"))
	srv.mu.Lock()
	srv.delay = 500 * time.Millisecond
	srv.mu.Unlock()

	remote := jwtx.NewRemoteKeySet(jwtx.RemoteKeySetOptions{
		URL:          srv.URL,
		FetchTimeout: 50 * time.Millisecond,
	})

	_, err := remote.Key(context.Background(), "k1")
	require.ErrorIs(t, err, jwtx.ErrKeyFetch)
}

func TestRemoteKeySet_ConcurrentMissesShareOneFetch(t *testing.T) {
	srv := newJWKSServer(t)
	srv.add(t, newSigner(t, jwtx.AlgorithmEdDSA, "k1"))
	srv.mu.Lock()
	srv.delay = 100 * time.Millisecond
	srv.mu.Unlock()

	var fetches atomic.Int32
	remote := jwtx.NewRemoteKeySet(jwtx.RemoteKeySetOptions{
		URL:     srv.URL,
		OnFetch: func(error) { fetches.Add(1) },
	})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := remote.Key(context.Background(), "k1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, srv.hits.Load())
	require.EqualValues(t, 1, fetches.Load())
}

func TestVerifier_WithRemoteKeySet(t *testing.T) {
	srv := newJWKSServer(t)
	signer := newSigner(t, jwtx.AlgorithmES256, "k1")
	srv.add(t, signer)

	remote := jwtx.NewRemoteKeySet(jwtx.RemoteKeySetOptions{URL: srv.URL})
	v := jwtx.NewVerifier(remote, jwtx.VerifierOptions{Issuer: testIssuer, Audience: []string{testIssuer}})

	token, err := signer.Sign(testClaims(time.Now()))
	require.NoError(t, err)
	require.True(t, v.Verify(context.Background(), token).OK())

	srvDown := newJWKSServer(t)
	srvDown.setDown(true)
	broken := jwtx.NewVerifier(jwtx.NewRemoteKeySet(jwtx.RemoteKeySetOptions{URL: srvDown.URL}), jwtx.VerifierOptions{})
	require.Equal(t, jwtx.ReasonKeyFetchFailed, broken.Verify(context.Background(), token).Reason)
}
