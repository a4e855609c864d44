package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/may5ra/server-stream-one/internal/m3u"
	"github.com/may5ra/server-stream-one/internal/metrics"
	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
)

// ErrNoPlaylist is returned when neither a URL nor content was given.
var ErrNoPlaylist = errors.New("m3u_url or m3u_content is required")

// DefaultCategory is used when an entry has no group-title and the
// request no default_category.
const DefaultCategory = "Uncategorized"

// M3URequest is the body of POST /m3u-import.
type M3URequest struct {
	URL               string `json:"m3u_url,omitempty"`
	Content           string `json:"m3u_content,omitempty"`
	DefaultCategory   string `json:"default_category,omitempty"`
	OverwriteExisting bool   `json:"overwrite_existing,omitempty"`
}

// M3UResult reports an import. Imported+Updated+Skipped+Failed == Total.
type M3UResult struct {
	Success  bool     `json:"success"`
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// M3UImporter bulk-upserts playlist entries as live streams.
type M3UImporter struct {
	store    store.Store
	fetch    Fetcher
	rewrites []m3u.RewriteRule
	log      zerolog.Logger
}

// NewM3UImporter returns an importer applying m3u.DefaultRewrites.
func NewM3UImporter(s store.Store, f Fetcher, logger zerolog.Logger) *M3UImporter {
	return &M3UImporter{
		store:    s,
		fetch:    f,
		rewrites: m3u.DefaultRewrites(),
		log:      logger.With().Str("component", "m3u-import").Logger(),
	}
}

// Import fetches (when a URL is given) and imports a playlist. Per-entry
// failures are counted and reported; only a fetch failure or a cancelled
// ctx fails the whole call.
func (im *M3UImporter) Import(ctx context.Context, req M3URequest) (*M3UResult, error) {
	var entries []m3u.Entry
	switch {
	case strings.TrimSpace(req.URL) != "":
		body, err := im.fetch.Fetch(ctx, strings.TrimSpace(req.URL))
		if err != nil {
			metrics.RecordImport("m3u", false)
			return nil, fmt.Errorf("fetch playlist: %w", err)
		}
		entries, err = m3u.ParseReader(bytes.NewReader(body))
		if err != nil {
			metrics.RecordImport("m3u", false)
			return nil, fmt.Errorf("parse playlist: %w", err)
		}
	case strings.TrimSpace(req.Content) == "":
		return nil, ErrNoPlaylist
	default:
		entries = m3u.Parse(req.Content)
	}

	res := &M3UResult{Success: true, Total: len(entries)}
	var errs errorList
	defaultCategory := strings.TrimSpace(req.DefaultCategory)
	if defaultCategory == "" {
		defaultCategory = DefaultCategory
	}

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("import cancelled: %w", err)
		}
		outcome, err := im.importEntry(ctx, e, defaultCategory, req.OverwriteExisting)
		if err != nil {
			res.Failed++
			errs.add(fmt.Sprintf("entry %d (%s): %v", i+1, e.Name, err))
			im.log.Debug().Err(err).Int("entry", i+1).Msg("entry failed")
			continue
		}
		switch outcome {
		case outcomeImported:
			res.Imported++
		case outcomeUpdated:
			res.Updated++
		case outcomeSkipped:
			res.Skipped++
		}
	}
	if len(errs) > 0 {
		res.Errors = errs
	}

	metrics.RecordImport("m3u", true)
	metrics.RecordImportItems("m3u", "imported", res.Imported)
	metrics.RecordImportItems("m3u", "updated", res.Updated)
	metrics.RecordImportItems("m3u", "skipped", res.Skipped)
	metrics.RecordImportItems("m3u", "failed", res.Failed)
	im.log.Info().
		Int("total", res.Total).Int("imported", res.Imported).Int("updated", res.Updated).
		Int("skipped", res.Skipped).Int("failed", res.Failed).
		Msg("m3u import finished")
	return res, nil
}

type outcome int

const (
	outcomeImported outcome = iota
	outcomeUpdated
	outcomeSkipped
)

func (im *M3UImporter) importEntry(ctx context.Context, e m3u.Entry, defaultCategory string, overwrite bool) (outcome, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = strings.TrimSpace(e.TvgName)
	}
	if name == "" {
		return 0, errors.New("missing channel name")
	}
	inputURL := m3u.ApplyRewrites(im.rewrites, strings.TrimSpace(e.URL))

	existing, err := im.store.FindStreamByNameOrURL(ctx, name, inputURL)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("lookup: %w", err)
	}

	if existing != nil {
		if !overwrite {
			return outcomeSkipped, nil
		}
		applyEntry(existing, e, name, inputURL, defaultCategory)
		if err := im.store.UpdateStream(ctx, existing); err != nil {
			return 0, fmt.Errorf("update: %w", err)
		}
		return outcomeUpdated, nil
	}

	s := &models.Stream{Status: models.StreamLive}
	applyEntry(s, e, name, inputURL, defaultCategory)
	if _, err := im.store.CreateStream(ctx, s); err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	return outcomeImported, nil
}

// applyEntry copies playlist fields onto s. Status, bouquet and DVR
// settings of an existing stream are left alone.
func applyEntry(s *models.Stream, e m3u.Entry, name, inputURL, defaultCategory string) {
	s.Name = name
	s.InputURL = inputURL
	s.InputType = m3u.DetectInputType(inputURL)
	s.Category = defaultCategory
	if g := strings.TrimSpace(e.GroupTitle); g != "" {
		s.Category = g
	}
	if e.TvgLogo != "" {
		logo := e.TvgLogo
		s.StreamIcon = &logo
	}
	if e.TvgID != "" {
		id := e.TvgID
		s.EPGChannelID = &id
	}
	if n, err := strconv.Atoi(strings.TrimSpace(e.ChannelNumber)); err == nil {
		s.ChannelNumber = &n
	}
}
