// Package stalker implements the Stalker/Ministra portal surface
// (load.php and {type}.php) with MAC-address identity.
package stalker

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/may5ra/server-stream-one/internal/catalog"
	"github.com/may5ra/server-stream-one/internal/httpjson"
	"github.com/may5ra/server-stream-one/internal/metrics"
	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
	"github.com/may5ra/server-stream-one/internal/streamurl"
)

const (
	adapterName     = "stalker"
	defaultPageSize = 14
	maxPageSize     = 500
	dateTimeLayout  = "2006-01-02 15:04:05"
	clockLayout     = "15:04"
)

// Handler serves the portal endpoints.
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

type request struct {
	ctx    context.Context
	mac    string
	params url.Values
	now    time.Time
}

type action func(h *Handler, req *request) (any, error)

// routes is keyed by "type/action". Namespaces listed in noop accept any
// action.
var routes = map[string]action{
	"stb/handshake":   (*Handler).handshake,
	"stb/get_profile": (*Handler).getProfile,
	"stb/do_auth":     (*Handler).getProfile,

	"itv/get_genres":       (*Handler).liveGenres,
	"itv/get_all_channels": (*Handler).allChannels,
	"itv/get_ordered_list": (*Handler).orderedChannels,
	"itv/create_link":      (*Handler).liveLink,
	"itv/get_short_epg":    (*Handler).shortEPG,

	"epg/get_simple_data_table": (*Handler).simpleDataTable,

	"vod/get_categories":   (*Handler).vodCategories,
	"vod/get_genres":       (*Handler).vodCategories,
	"vod/get_ordered_list": (*Handler).vodList,
	"vod/create_link":      (*Handler).vodLink,

	"series/get_categories":   (*Handler).seriesCategories,
	"series/get_genres":       (*Handler).seriesCategories,
	"series/get_ordered_list": (*Handler).seriesList,
	"series/create_link":      (*Handler).episodeLink,
}

var noop = map[string]bool{
	"watchdog":     true,
	"account_info": true,
	"main_menu":    true,
}

// ServeHTTP dispatches on (type, action). Every response is HTTP 200 with
// a {"js": ...} body; unknown combinations get a handshake token.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	typ := requestType(r)
	act := params.Get("action")
	req := &request{
		ctx:    r.Context(),
		mac:    macFrom(r),
		params: params,
		now:    h.now(),
	}

	key := typ + "/" + act
	label := key
	run, ok := routes[key]
	switch {
	case ok:
	case noop[typ]:
		label = typ
		run = func(*Handler, *request) (any, error) { return struct{}{}, nil }
	default:
		label = "other"
		run = (*Handler).handshake
	}

	body, err := run(h, req)
	if err != nil {
		h.log.Error().Err(err).Str("action", key).Str("mac", req.mac).Msg("action failed")
		metrics.RecordAdapter(adapterName, label, metrics.OutcomeError)
		httpjson.Write(w, http.StatusOK, envelope{JS: []any{}})
		return
	}
	metrics.RecordAdapter(adapterName, label, metrics.OutcomeOK)
	httpjson.Write(w, http.StatusOK, envelope{JS: body})
}

// requestType is the type parameter, or the {type} of a trailing
// "/{type}.php" path segment.
func requestType(r *http.Request) string {
	if t := r.URL.Query().Get("type"); t != "" {
		return t
	}
	return strings.TrimSuffix(path.Base(r.URL.Path), ".php")
}

// macFrom reads the device MAC from the mac or stb_mac parameter, the mac
// cookie, then an "Authorization: MAC ..." header, and normalises it.
func macFrom(r *http.Request) string {
	q := r.URL.Query()
	for _, key := range []string{"mac", "stb_mac"} {
		if v := q.Get(key); v != "" {
			return catalog.NormalizeMAC(v)
		}
	}
	if c, err := r.Cookie("mac"); err == nil && c.Value != "" {
		v, err := url.QueryUnescape(c.Value)
		if err != nil {
			v = c.Value
		}
		return catalog.NormalizeMAC(v)
	}
	if auth := r.Header.Get("Authorization"); len(auth) > 4 && strings.EqualFold(auth[:4], "MAC ") {
		return catalog.NormalizeMAC(auth[4:])
	}
	return ""
}

// user authenticates the request MAC. A nil user with a nil error means
// the device is unknown, blocked or expired.
func (h *Handler) user(req *request) (*models.StreamingUser, error) {
	u, err := catalog.AuthenticateMAC(req.ctx, h.store, req.mac, req.now)
	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, catalog.ErrInvalidCredentials),
		errors.Is(err, catalog.ErrExpired),
		errors.Is(err, catalog.ErrBlocked):
		return nil, nil
	default:
		return nil, err
	}
}

func (h *Handler) handshake(*request) (any, error) {
	return token{Token: strings.ReplaceAll(uuid.NewString(), "-", "")}, nil
}

// pagination reads p (1-based) and cnt.
func pagination(params url.Values) (pageNum, size int) {
	pageNum, size = 1, defaultPageSize
	if n, err := strconv.Atoi(params.Get("p")); err == nil && n > 0 {
		pageNum = n
	}
	if n, err := strconv.Atoi(params.Get("cnt")); err == nil && n > 0 {
		size = min(n, maxPageSize)
	}
	return pageNum, size
}

// paginate slices items into the requested page.
func paginate[T any](items []T, pageNum, size int) page {
	start := (pageNum - 1) * size
	if start > len(items) {
		start = len(items)
	}
	end := min(start+size, len(items))
	return page{
		TotalItems:   len(items),
		MaxPageItems: size,
		CurPage:      pageNum,
		Data:         items[start:end],
	}
}

func emptyPage() page {
	return page{MaxPageItems: defaultPageSize, CurPage: 1, Data: []any{}}
}

var cmdIDPattern = regexp.MustCompile(`(?:^|/)(\d+)(?:\.\w+)?\s*$`)

// cmdID extracts the trailing numeric id of a cmd such as
// "ffrt http://localhost/live/12".
func cmdID(cmd string) (int64, bool) {
	m := cmdIDPattern.FindStringSubmatch(cmd)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	return id, err == nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func alias(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
