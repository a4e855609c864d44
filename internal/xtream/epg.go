package xtream

import (
	"encoding/base64"
	"errors"
	"strconv"
	"time"

	"github.com/may5ra/server-stream-one/internal/catalog"
	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
)

const (
	defaultShortEPGLimit = 2
	shortEPGHorizon      = 7 * 24 * time.Hour
	dataTableWindow      = 24 * time.Hour
)

func (h *Handler) shortEPG(req *request) (any, error) {
	limit := defaultShortEPGLimit
	if n, err := strconv.Atoi(req.params.Get("limit")); err == nil && n > 0 {
		limit = n
	}
	return h.listings(req, req.now.Add(shortEPGHorizon), limit, false)
}

func (h *Handler) simpleDataTable(req *request) (any, error) {
	return h.listings(req, req.now.Add(dataTableWindow), 0, true)
}

// listings returns the programmes of the requested stream that overlap
// [now, to]. Streams without a guide mapping have no listings.
func (h *Handler) listings(req *request, to time.Time, limit int, table bool) (any, error) {
	empty := epgResponse{Listings: []epgListing{}}
	streamID, err := strconv.ParseInt(req.params.Get("stream_id"), 10, 64)
	if err != nil {
		return empty, nil
	}
	s, err := h.store.GetStreamByID(req.ctx, streamID)
	if errors.Is(err, store.ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return nil, err
	}
	if !catalog.Visible(req.user, s) {
		return empty, nil
	}
	ch, err := h.store.GetEPGChannelByStream(req.ctx, streamID)
	if errors.Is(err, store.ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return nil, err
	}
	programs, err := h.store.ListEPGPrograms(req.ctx, ch.ID, req.now, to, limit)
	if err != nil {
		return nil, err
	}

	loc := h.resolver.Settings().Location()
	out := make([]epgListing, 0, len(programs))
	for i := range programs {
		out = append(out, h.listing(ch, &programs[i], req.now, loc, table))
	}
	return epgResponse{Listings: out}, nil
}

func (h *Handler) listing(ch *models.EPGChannel, p *models.EPGProgram, now time.Time, loc *time.Location, table bool) epgListing {
	l := epgListing{
		ID:             strconv.FormatInt(p.ID, 10),
		EPGID:          strconv.FormatInt(ch.ID, 10),
		Title:          base64.StdEncoding.EncodeToString([]byte(p.Title)),
		Start:          p.StartTime.In(loc).Format(dateTimeLayout),
		End:            p.EndTime.In(loc).Format(dateTimeLayout),
		Description:    base64.StdEncoding.EncodeToString([]byte(deref(p.Description))),
		ChannelID:      ch.ChannelID,
		StartTimestamp: strconv.FormatInt(p.StartTime.Unix(), 10),
		StopTimestamp:  strconv.FormatInt(p.EndTime.Unix(), 10),
	}
	if table {
		playing := boolInt(!p.StartTime.After(now) && p.EndTime.After(now))
		archive := 0
		l.NowPlaying = &playing
		l.HasArchive = &archive
	}
	return l
}
