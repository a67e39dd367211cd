// Package cache stores verified matches in Redis so a re-run over the same
// query, candidates and scoring parameters skips the fuzzy alignment work.
// Identical keys requested concurrently are computed once.
package cache

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/shortlist"
	"github.com/Adithya-Monish-Kumar-K/bigram-matcher/internal/verifier"
)

const keyPrefix = "match:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type MatchCache struct {
	store  Store
	isMiss func(error) bool
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New wraps store. isMiss reports whether a Get error means "key absent".
func New(store Store, isMiss func(error) bool, ttl time.Duration) *MatchCache {
	return &MatchCache{
		store:  store,
		isMiss: isMiss,
		ttl:    ttl,
		logger: slog.Default().With("component", "match-cache"),
	}
}

func (c *MatchCache) Get(ctx context.Context, key string) (verifier.Match, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !c.isMiss(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return verifier.Match{}, false
	}
	var m verifier.Match
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return verifier.Match{}, false
	}
	c.hits.Add(1)
	return m, true
}

func (c *MatchCache) Set(ctx context.Context, key string, m verifier.Match) {
	data, err := json.Marshal(m)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached match for key, computing and storing it on
// a miss. The boolean reports a cache hit.
func (c *MatchCache) GetOrCompute(
	ctx context.Context,
	key string,
	computeFn func() (verifier.Match, error),
) (verifier.Match, bool, error) {
	if m, ok := c.Get(ctx, key); ok {
		return m, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		m, err := computeFn()
		if err != nil {
			return verifier.Match{}, err
		}
		c.Set(ctx, key, m)
		return m, nil
	})
	if err != nil {
		return verifier.Match{}, false, err
	}
	return val.(verifier.Match), false, nil
}

// Invalidate removes every cached match.
func (c *MatchCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *MatchCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BuildKey digests everything a verification result depends on: the query,
// the cutoff and scale, and each candidate's ID and raw bytes in drain order.
func BuildKey(query []byte, candidates []shortlist.Entry, refs [][]byte, cutoff int, scale float64) string {
	h := blake3.New()
	var buf [8]byte
	writeBytes := func(b []byte) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(b)))
		h.Write(buf[:])
		h.Write(b)
	}
	writeBytes(query)
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(cutoff)))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(scale))
	h.Write(buf[:])
	for _, c := range candidates {
		binary.LittleEndian.PutUint64(buf[:], uint64(c.RefID))
		h.Write(buf[:])
		writeBytes(refs[c.RefID])
	}
	sum := h.Sum(nil)
	return keyPrefix + hex.EncodeToString(sum[:16])
}
