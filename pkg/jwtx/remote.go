package jwtx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	DefaultJWKSCacheTTL       = 5 * time.Minute
	DefaultJWKSFetchTimeout   = 5 * time.Second
	DefaultMinRefreshInterval = 10 * time.Second

	maxJWKSBody = 1 << 20
)

// RemoteKeySetOptions configures a RemoteKeySet.
type RemoteKeySetOptions struct {
	URL string

	// TTL is how long a fetched set counts as fresh.
	TTL time.Duration

	// FetchTimeout bounds every fetch, independent of the caller's context.
	FetchTimeout time.Duration

	// MinRefreshInterval limits how often an unknown kid can trigger a fetch.
	MinRefreshInterval time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
	Now        func() time.Time

	// OnFetch, if set, is called after every fetch attempt.
	OnFetch func(err error)
}

// RemoteKeySet caches an issuer's JWKS. Lookups refetch when the cache is
// stale or a kid is unknown, concurrent refetches share one request, and a
// failed refetch falls back to stale keys when it can.
type RemoteKeySet struct {
	opts RemoteKeySetOptions
	keys *KeySet

	mu        sync.Mutex
	fetchedAt time.Time // last successful fetch
	triedAt   time.Time // last attempt, successful or not
	inflight  *flight
}

type flight struct {
	done chan struct{}
	err  error
}

// NewRemoteKeySet returns an empty cache. Nothing is fetched until the first
// lookup or Refresh.
func NewRemoteKeySet(opts RemoteKeySetOptions) *RemoteKeySet {
	if opts.TTL <= 0 {
		opts.TTL = DefaultJWKSCacheTTL
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultJWKSFetchTimeout
	}
	if opts.MinRefreshInterval <= 0 {
		opts.MinRefreshInterval = DefaultMinRefreshInterval
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RemoteKeySet{opts: opts, keys: NewKeySet()}
}

// Key implements KeyResolver.
func (r *RemoteKeySet) Key(ctx context.Context, kid string) (any, error) {
	r.mu.Lock()
	now := r.opts.Now()
	loaded := !r.fetchedAt.IsZero()
	stale := !loaded || now.Sub(r.fetchedAt) >= r.opts.TTL
	mayRetry := r.triedAt.IsZero() || now.Sub(r.triedAt) >= r.opts.MinRefreshInterval
	f := r.inflight
	r.mu.Unlock()

	// Keys are swapped in before fetchedAt moves, so this sees at least the
	// set the snapshot above describes.
	key, hit := r.lookup(kid)
	if hit && !stale {
		return key, nil
	}

	var err error
	switch {
	case f != nil:
		err = r.wait(ctx, f)
	case !mayRetry:
		// Tried recently; wait out the interval instead of hammering the issuer.
		switch {
		case hit:
			return key, nil
		case !loaded:
			return nil, fmt.Errorf("%w: no keys loaded yet", ErrKeyFetch)
		default:
			return nil, ErrUnknownKID
		}
	default:
		err = r.Refresh(ctx)
	}

	if err != nil {
		if hit {
			r.opts.Logger.Warn("jwks refresh failed, serving stale key",
				"url", r.opts.URL,
				"kid", kid,
				"error", err,
			)
			return key, nil
		}
		return nil, err
	}

	if key, hit = r.lookup(kid); hit {
		return key, nil
	}
	return nil, ErrUnknownKID
}

func (r *RemoteKeySet) lookup(kid string) (any, bool) {
	key, err := r.keys.Get(kid)
	return key, err == nil
}

// Refresh fetches the JWKS now. Concurrent callers wait on the same request.
// The request itself is detached from ctx so one caller giving up does not
// fail the others; ctx only bounds how long this caller waits.
func (r *RemoteKeySet) Refresh(ctx context.Context) error {
	r.mu.Lock()
	f := r.inflight
	if f == nil {
		f = &flight{done: make(chan struct{})}
		r.inflight = f
		r.triedAt = r.opts.Now()
		go r.run(context.WithoutCancel(ctx), f)
	}
	r.mu.Unlock()

	return r.wait(ctx, f)
}

func (r *RemoteKeySet) wait(ctx context.Context, f *flight) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrKeyFetch, ctx.Err())
	}
}

func (r *RemoteKeySet) run(ctx context.Context, f *flight) {
	err := r.fetch(ctx)

	r.mu.Lock()
	if err == nil {
		r.fetchedAt = r.opts.Now()
	}
	r.inflight = nil
	r.mu.Unlock()

	if r.opts.OnFetch != nil {
		r.opts.OnFetch(err)
	}

	f.err = err
	close(f.done)
}

func (r *RemoteKeySet) fetch(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrKeyFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrKeyFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrKeyFetch, resp.StatusCode)
	}

	var set JWKS
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBody)).Decode(&set); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrKeyFetch, err)
	}
	if err := r.keys.ResetFromJWKS(set); err != nil {
		return fmt.Errorf("%w: %w", ErrKeyFetch, err)
	}
	return nil
}

// Ready reports whether a JWKS has been loaded at least once.
func (r *RemoteKeySet) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.fetchedAt.IsZero()
}

// Len reports how many keys are cached.
func (r *RemoteKeySet) Len() int {
	return r.keys.Len()
}
