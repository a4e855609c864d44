// Package playlist serves per-user M3U playlists and XMLTV guides.
package playlist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/may5ra/server-stream-one/internal/catalog"
	"github.com/may5ra/server-stream-one/internal/httpjson"
	"github.com/may5ra/server-stream-one/internal/m3u"
	"github.com/may5ra/server-stream-one/internal/metrics"
	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
	"github.com/may5ra/server-stream-one/internal/streamurl"
)

// Playlist types.
const (
	TypeM3UPlus = "m3u_plus"
	TypeM3U     = "m3u"
)

const adapterName = "playlist"

// Handler serves GET /m3u-playlist, /get.php and /xmltv.php.
type Handler struct {
	store    store.Store
	resolver *streamurl.Resolver
	log      zerolog.Logger
	now      func() time.Time
}

// New returns a Handler reading from st.
func New(st store.Store, resolver *streamurl.Resolver, logger zerolog.Logger) *Handler {
	return &Handler{
		store:    st,
		resolver: resolver,
		log:      logger.With().Str("component", adapterName).Logger(),
		now:      time.Now,
	}
}

// authenticate writes 401 for bad credentials and 403 for expired or
// disabled accounts; it returns nil when a response was written.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, action string) *models.StreamingUser {
	q := r.URL.Query()
	u, err := catalog.Authenticate(r.Context(), h.store, q.Get("username"), q.Get("password"), h.now())
	switch {
	case err == nil:
		return u
	case errors.Is(err, catalog.ErrInvalidCredentials):
		metrics.RecordAdapter(adapterName, action, metrics.OutcomeAuthFail)
		httpjson.Error(w, http.StatusUnauthorized, err)
	case errors.Is(err, catalog.ErrExpired), errors.Is(err, catalog.ErrBlocked):
		metrics.RecordAdapter(adapterName, action, metrics.OutcomeAuthFail)
		httpjson.Error(w, http.StatusForbidden, err)
	default:
		metrics.RecordAdapter(adapterName, action, metrics.OutcomeError)
		httpjson.Error(w, http.StatusInternalServerError, err)
	}
	return nil
}

// ServePlaylist writes the playlist of the authenticated user. m3u_plus
// (the default) carries tvg attributes, VOD and episodes; m3u lists live
// channels only.
func (h *Handler) ServePlaylist(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ := q.Get("type")
	if typ != TypeM3U {
		typ = TypeM3UPlus
	}
	u := h.authenticate(w, r, typ)
	if u == nil {
		return
	}

	o := streamurl.OriginFromRequest(r)
	password := q.Get("password")
	entries, err := h.liveEntries(r.Context(), o, u, password, q.Get("output"))
	if err == nil && typ == TypeM3UPlus {
		var more []m3u.Entry
		more, err = h.mediaEntries(r.Context(), o, u, password)
		entries = append(entries, more...)
	}
	if err != nil {
		metrics.RecordAdapter(adapterName, typ, metrics.OutcomeError)
		httpjson.Error(w, http.StatusInternalServerError, err)
		return
	}

	opts := m3u.WriteOptions{Extended: typ == TypeM3UPlus}
	if opts.Extended {
		opts.TVGURL = h.resolver.GuideURL(o, u.Username, password)
	}
	var buf bytes.Buffer
	if err := m3u.Write(&buf, entries, opts); err != nil {
		httpjson.Error(w, http.StatusInternalServerError, err)
		return
	}

	metrics.RecordAdapter(adapterName, typ, metrics.OutcomeOK)
	h.log.Debug().Str("user", u.Username).Str("type", typ).Int("entries", len(entries)).Msg("playlist served")
	w.Header().Set("Content-Type", "audio/x-mpegurl")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", u.Username+"_playlist.m3u"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) liveEntries(ctx context.Context, o streamurl.Origin, u *models.StreamingUser, password, output string) ([]m3u.Entry, error) {
	lineup, err := catalog.LiveLineup(ctx, h.store, u)
	if err != nil {
		return nil, err
	}
	entries := make([]m3u.Entry, 0, len(lineup.Streams))
	for i := range lineup.Streams {
		s := &lineup.Streams[i]
		e := m3u.Entry{
			Name:       s.Name,
			URL:        h.resolver.LiveURL(o, u.Username, password, s, output),
			TvgID:      deref(s.EPGChannelID),
			TvgName:    s.Name,
			TvgLogo:    deref(s.StreamIcon),
			GroupTitle: s.Category,
		}
		if s.ChannelNumber != nil {
			e.ChannelNumber = strconv.Itoa(*s.ChannelNumber)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (h *Handler) mediaEntries(ctx context.Context, o streamurl.Origin, u *models.StreamingUser, password string) ([]m3u.Entry, error) {
	vodCats, err := h.store.ListVodCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListVodCategories: %w", err)
	}
	movies, err := h.store.ListVod(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ListVod: %w", err)
	}
	var entries []m3u.Entry
	for i := range movies {
		v := &movies[i]
		entries = append(entries, m3u.Entry{
			Name:       v.Name,
			URL:        h.resolver.MovieURL(o, u.Username, password, v),
			TvgName:    v.Name,
			TvgLogo:    deref(v.Cover),
			GroupTitle: categoryName(vodCats, v.CategoryID),
		})
	}

	seriesCats, err := h.store.ListSeriesCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListSeriesCategories: %w", err)
	}
	shows, err := h.store.ListSeries(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ListSeries: %w", err)
	}
	for i := range shows {
		s := &shows[i]
		eps, err := h.store.ListEpisodes(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("ListEpisodes: %w", err)
		}
		group := categoryName(seriesCats, s.CategoryID)
		for j := range eps {
			e := &eps[j]
			name := fmt.Sprintf("%s S%02dE%02d", s.Name, e.Season, e.EpisodeNum)
			entries = append(entries, m3u.Entry{
				Name:       name,
				URL:        h.resolver.EpisodeURL(o, u.Username, password, e),
				TvgName:    name,
				TvgLogo:    deref(s.Cover),
				GroupTitle: group,
			})
		}
	}
	return entries, nil
}

func categoryName(cats []models.Category, id *int64) string {
	if id == nil {
		return ""
	}
	for _, c := range cats {
		if c.ID == *id {
			return c.Name
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
