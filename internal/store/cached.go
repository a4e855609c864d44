package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/may5ra/server-stream-one/internal/cache"
	"github.com/may5ra/server-stream-one/internal/models"
)

// Cache TTLs for different entity types.
const (
	ttlCategories = 5 * time.Minute
	ttlStreams    = 1 * time.Minute
	ttlStream     = 2 * time.Minute
	ttlVod        = 5 * time.Minute
	ttlSeries     = 5 * time.Minute
)

// CachedStore wraps a Store with a Redis read cache for the catalog
// listings players poll. Users, EPG data and settings always go to the
// inner store. Stream writes invalidate the stream keys.
type CachedStore struct {
	Store
	cache *cache.Redis
	log   zerolog.Logger
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis, logger zerolog.Logger) *CachedStore {
	return &CachedStore{Store: inner, cache: c, log: logger.With().Str("component", "store-cache").Logger()}
}

// cached serves key from Redis or loads and stores it.
func cached[T any](ctx context.Context, c *CachedStore, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if v, err := cache.Get[T](ctx, c.cache, key); err == nil {
		return v, nil
	} else if !cache.IsMiss(err) {
		c.log.Warn().Err(err).Str("key", key).Msg("cache get")
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if err := cache.Set(ctx, c.cache, key, v, ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set")
	}
	return v, nil
}

// --- cached reads ---

func (c *CachedStore) ListLiveCategories(ctx context.Context) ([]models.Category, error) {
	return cached(ctx, c, c.cache.Key("categories", "live"), ttlCategories, func() ([]models.Category, error) {
		return c.Store.ListLiveCategories(ctx)
	})
}

func (c *CachedStore) ListVodCategories(ctx context.Context) ([]models.Category, error) {
	return cached(ctx, c, c.cache.Key("categories", "vod"), ttlCategories, func() ([]models.Category, error) {
		return c.Store.ListVodCategories(ctx)
	})
}

func (c *CachedStore) ListSeriesCategories(ctx context.Context) ([]models.Category, error) {
	return cached(ctx, c, c.cache.Key("categories", "series"), ttlCategories, func() ([]models.Category, error) {
		return c.Store.ListSeriesCategories(ctx)
	})
}

func (c *CachedStore) ListStreams(ctx context.Context, f StreamFilter) ([]models.Stream, error) {
	return cached(ctx, c, c.cache.Key("streams", filterHash(f)), ttlStreams, func() ([]models.Stream, error) {
		return c.Store.ListStreams(ctx, f)
	})
}

func (c *CachedStore) GetStreamByID(ctx context.Context, id int64) (*models.Stream, error) {
	return cached(ctx, c, c.cache.Key("stream", "id", strconv.FormatInt(id, 10)), ttlStream, func() (*models.Stream, error) {
		return c.Store.GetStreamByID(ctx, id)
	})
}

func (c *CachedStore) GetStreamByName(ctx context.Context, name string) (*models.Stream, error) {
	return cached(ctx, c, c.cache.Key("stream", "name", shortHash(name)), ttlStream, func() (*models.Stream, error) {
		return c.Store.GetStreamByName(ctx, name)
	})
}

func (c *CachedStore) ListVod(ctx context.Context, categoryID *int64) ([]models.VodContent, error) {
	return cached(ctx, c, c.cache.Key("vod", "list", idOrAll(categoryID)), ttlVod, func() ([]models.VodContent, error) {
		return c.Store.ListVod(ctx, categoryID)
	})
}

func (c *CachedStore) GetVod(ctx context.Context, id int64) (*models.VodContent, error) {
	return cached(ctx, c, c.cache.Key("vod", "id", strconv.FormatInt(id, 10)), ttlVod, func() (*models.VodContent, error) {
		return c.Store.GetVod(ctx, id)
	})
}

func (c *CachedStore) ListSeries(ctx context.Context, categoryID *int64) ([]models.Series, error) {
	return cached(ctx, c, c.cache.Key("series", "list", idOrAll(categoryID)), ttlSeries, func() ([]models.Series, error) {
		return c.Store.ListSeries(ctx, categoryID)
	})
}

func (c *CachedStore) GetSeries(ctx context.Context, id int64) (*models.Series, error) {
	return cached(ctx, c, c.cache.Key("series", "id", strconv.FormatInt(id, 10)), ttlSeries, func() (*models.Series, error) {
		return c.Store.GetSeries(ctx, id)
	})
}

func (c *CachedStore) ListEpisodes(ctx context.Context, seriesID int64) ([]models.SeriesEpisode, error) {
	return cached(ctx, c, c.cache.Key("series", "episodes", strconv.FormatInt(seriesID, 10)), ttlSeries, func() ([]models.SeriesEpisode, error) {
		return c.Store.ListEpisodes(ctx, seriesID)
	})
}

func (c *CachedStore) GetEpisode(ctx context.Context, id int64) (*models.SeriesEpisode, error) {
	return cached(ctx, c, c.cache.Key("episode", strconv.FormatInt(id, 10)), ttlSeries, func() (*models.SeriesEpisode, error) {
		return c.Store.GetEpisode(ctx, id)
	})
}

// --- writes with cache invalidation ---

func (c *CachedStore) CreateStream(ctx context.Context, s *models.Stream) (int64, error) {
	id, err := c.Store.CreateStream(ctx, s)
	if err != nil {
		return 0, err
	}
	c.invalidateStreams(ctx)
	return id, nil
}

func (c *CachedStore) UpdateStream(ctx context.Context, s *models.Stream) error {
	if err := c.Store.UpdateStream(ctx, s); err != nil {
		return err
	}
	c.invalidateStreams(ctx)
	return nil
}

func (c *CachedStore) SetStreamEPGChannelID(ctx context.Context, streamID int64, epgChannelID string) error {
	if err := c.Store.SetStreamEPGChannelID(ctx, streamID, epgChannelID); err != nil {
		return err
	}
	c.invalidateStreams(ctx)
	return nil
}

// --- helpers ---

// invalidateStreams drops every cached stream listing and row. Renames
// change the by-name key, so single rows are dropped by pattern too.
func (c *CachedStore) invalidateStreams(ctx context.Context) {
	if err := cache.Del(ctx, c.cache, c.cache.Key("categories", "live")); err != nil {
		c.log.Warn().Err(err).Msg("cache invalidate live categories")
	}
	c.invalidatePattern(ctx, c.cache.Key("streams", "*"), c.cache.Key("stream", "*"))
}

// invalidatePattern deletes all keys matching the given glob patterns.
func (c *CachedStore) invalidatePattern(ctx context.Context, patterns ...string) {
	for _, p := range patterns {
		if err := cache.DelPattern(ctx, c.cache, p); err != nil {
			c.log.Warn().Err(err).Str("pattern", p).Msg("cache invalidate")
		}
	}
}

// filterHash produces a short deterministic hash for a StreamFilter so it
// can be used as part of a cache key.
func filterHash(f StreamFilter) string {
	return shortHash(fmt.Sprintf("%q|%v", f.Category, f.PlayableOnly))
}

func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:8])
}

func idOrAll(id *int64) string {
	if id == nil {
		return "all"
	}
	return strconv.FormatInt(*id, 10)
}
