package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/may5ra/server-stream-one/internal/metrics"
	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
	"github.com/may5ra/server-stream-one/internal/xmltv"
)

// ErrNoGuideURL is returned when the request has no url.
var ErrNoGuideURL = errors.New("url is required")

// Programme window relative to import time.
const (
	windowPast   = 24 * time.Hour
	windowFuture = 7 * 24 * time.Hour
)

const (
	programBatchSize = 100
	batchParallelism = 4
)

// EPGRequest is the body of POST /epg-import.
type EPGRequest struct {
	URL      string `json:"url"`
	SourceID *int64 `json:"sourceId,omitempty"`
	// Async queues the import on Redis instead of running it inline.
	Async bool `json:"async,omitempty"`
}

// EPGResult reports an import. ProgramsImported counts programmes sent to
// the store, including ones it dropped as duplicates.
type EPGResult struct {
	Success          bool     `json:"success"`
	ChannelsFound    int      `json:"channels_found"`
	ChannelsMapped   int      `json:"channels_mapped"`
	ProgramsImported int      `json:"programs_imported"`
	ProgramsInserted int64    `json:"programs_inserted"`
	InvalidTimes     int      `json:"invalid_times,omitempty"`
	SkippedElements  int      `json:"skipped_elements,omitempty"`
	Truncated        bool     `json:"truncated,omitempty"`
	FailedBatches    int      `json:"failed_batches,omitempty"`
	Errors           []string `json:"errors,omitempty"`
}

// EPGImporter imports XMLTV guides into epg_channels/epg_programs.
type EPGImporter struct {
	store store.Store
	fetch Fetcher
	log   zerolog.Logger
	now   func() time.Time
}

// NewEPGImporter returns an importer using the wall clock.
func NewEPGImporter(s store.Store, f Fetcher, logger zerolog.Logger) *EPGImporter {
	return &EPGImporter{
		store: s,
		fetch: f,
		log:   logger.With().Str("component", "epg-import").Logger(),
		now:   time.Now,
	}
}

// Import fetches and imports one guide. Matched channels are upserted,
// streams without an epg_channel_id get it back-filled, and programmes
// inside [now-24h, now+7d] are inserted in batches.
func (im *EPGImporter) Import(ctx context.Context, req EPGRequest) (*EPGResult, error) {
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return nil, ErrNoGuideURL
	}
	now := im.now().UTC()

	body, err := im.fetch.Fetch(ctx, url)
	if err != nil {
		im.finish(ctx, req.SourceID, models.EPGSourceError, now)
		metrics.RecordImport("epg", false)
		return nil, fmt.Errorf("fetch guide: %w", err)
	}
	doc, err := xmltv.Decode(bytes.NewReader(body), now)
	if err != nil {
		im.finish(ctx, req.SourceID, models.EPGSourceError, now)
		metrics.RecordImport("epg", false)
		return nil, fmt.Errorf("decode guide: %w", err)
	}

	res := &EPGResult{
		Success:         true,
		ChannelsFound:   len(doc.Channels),
		InvalidTimes:    doc.InvalidTimes,
		SkippedElements: doc.Skipped,
		Truncated:       doc.Truncated,
	}
	var errs errorList
	if doc.Truncated {
		errs.add("guide is truncated or malformed; records after the error were not read")
		im.log.Warn().Str("url", url).Int("programs_read", len(doc.Programmes)).Msg("guide truncated")
	}

	streams, err := im.store.ListStreams(ctx, store.StreamFilter{})
	if err != nil {
		return nil, fmt.Errorf("ListStreams: %w", err)
	}
	m := newStreamMatcher(streams)

	mapped := make(map[string]int64, len(doc.Channels))
	used := make(map[int64]bool)
	for _, ch := range doc.Channels {
		s := m.match(ch)
		if s == nil || used[s.ID] {
			continue
		}
		used[s.ID] = true
		row := &models.EPGChannel{ChannelID: ch.ID, Name: ch.Name, StreamID: s.ID, SourceID: req.SourceID}
		if ch.Name == "" {
			row.Name = s.Name
		}
		if ch.Icon != "" {
			icon := ch.Icon
			row.Icon = &icon
		}
		id, err := im.store.UpsertEPGChannel(ctx, row)
		if err != nil {
			errs.add(fmt.Sprintf("channel %s: %v", ch.ID, err))
			continue
		}
		mapped[ch.ID] = id
		if s.EPGChannelID == nil || *s.EPGChannelID == "" {
			if err := im.store.SetStreamEPGChannelID(ctx, s.ID, ch.ID); err != nil {
				errs.add(fmt.Sprintf("stream %d epg id: %v", s.ID, err))
			}
		}
	}
	res.ChannelsMapped = len(mapped)

	programs := windowed(doc.Programmes, mapped, now)
	res.ProgramsImported = len(programs)
	inserted, failed, batchErrs := im.insertBatches(ctx, programs)
	res.ProgramsInserted = inserted
	res.FailedBatches = failed
	for _, e := range batchErrs {
		errs.add(e)
	}
	if len(errs) > 0 {
		res.Errors = errs
	}

	im.finish(ctx, req.SourceID, models.EPGSourceOK, now)
	metrics.RecordImport("epg", true)
	metrics.RecordImportItems("epg", "imported", int(inserted))
	metrics.RecordImportItems("epg", "skipped", res.ProgramsImported-int(inserted))
	im.log.Info().
		Str("url", url).Int("channels_found", res.ChannelsFound).Int("channels_mapped", res.ChannelsMapped).
		Int("programs", res.ProgramsImported).Int64("inserted", inserted).Int("failed_batches", failed).
		Msg("epg import finished")
	return res, nil
}

func (im *EPGImporter) finish(ctx context.Context, sourceID *int64, status string, at time.Time) {
	if sourceID == nil {
		return
	}
	if err := im.store.UpdateEPGSourceStatus(ctx, *sourceID, status, at); err != nil {
		im.log.Warn().Err(err).Int64("source_id", *sourceID).Msg("update source status")
	}
}

// windowed keeps programmes of mapped channels starting inside the window.
func windowed(in []xmltv.Programme, mapped map[string]int64, now time.Time) []models.EPGProgram {
	from, to := now.Add(-windowPast), now.Add(windowFuture)
	out := make([]models.EPGProgram, 0, len(in))
	for _, p := range in {
		id, ok := mapped[p.Channel]
		if !ok || p.Start.Before(from) || p.Start.After(to) {
			continue
		}
		row := models.EPGProgram{ChannelID: id, Title: p.Title, StartTime: p.Start, EndTime: p.Stop}
		if p.Description != "" {
			desc := p.Description
			row.Description = &desc
		}
		out = append(out, row)
	}
	return out
}

// insertBatches writes programmes in fixed batches. Batches target
// disjoint (channel_id, start_time) keys and run in parallel; a failed
// batch is counted and does not stop the rest.
func (im *EPGImporter) insertBatches(ctx context.Context, programs []models.EPGProgram) (inserted int64, failed int, errs []string) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchParallelism)
	for start := 0; start < len(programs); start += programBatchSize {
		end := min(start+programBatchSize, len(programs))
		batch := programs[start:end]
		first := start
		g.Go(func() error {
			n, err := im.store.InsertEPGPrograms(gctx, batch)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				errs = append(errs, fmt.Sprintf("batch at %d: %v", first, err))
				im.log.Warn().Err(err).Int("offset", first).Int("size", len(batch)).Msg("programme batch failed")
				return nil
			}
			inserted += n
			return nil
		})
	}
	_ = g.Wait()
	return inserted, failed, errs
}

// streamMatcher finds the stream for an XMLTV channel: exact epg_channel_id
// first, then case-insensitive display name.
type streamMatcher struct {
	byEPGID map[string]*models.Stream
	byName  map[string]*models.Stream
	fold    cases.Caser
}

func (m *streamMatcher) nameKey(s string) string {
	return m.fold.String(norm.NFC.String(strings.TrimSpace(s)))
}

func newStreamMatcher(streams []models.Stream) *streamMatcher {
	m := &streamMatcher{
		byEPGID: make(map[string]*models.Stream),
		byName:  make(map[string]*models.Stream),
		fold:    cases.Fold(),
	}
	for i := range streams {
		s := &streams[i]
		if s.EPGChannelID != nil && *s.EPGChannelID != "" {
			if _, ok := m.byEPGID[*s.EPGChannelID]; !ok {
				m.byEPGID[*s.EPGChannelID] = s
			}
		}
		if k := m.nameKey(s.Name); k != "" {
			if _, ok := m.byName[k]; !ok {
				m.byName[k] = s
			}
		}
	}
	return m
}

func (m *streamMatcher) match(ch xmltv.Channel) *models.Stream {
	if s, ok := m.byEPGID[ch.ID]; ok {
		return s
	}
	if k := m.nameKey(ch.Name); k != "" {
		return m.byName[k]
	}
	return nil
}
