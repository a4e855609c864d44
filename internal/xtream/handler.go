// Package xtream implements the Xtream-Codes player_api.php surface on top
// of the catalog store.
package xtream

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/may5ra/server-stream-one/internal/catalog"
	"github.com/may5ra/server-stream-one/internal/httpjson"
	"github.com/may5ra/server-stream-one/internal/metrics"
	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
	"github.com/may5ra/server-stream-one/internal/streamurl"
)

const adapterName = "xtream"

// Handler serves GET /player_api.php.
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

// request is the validated input every action works from.
type request struct {
	ctx      context.Context
	user     *models.StreamingUser
	password string
	params   url.Values
	origin   streamurl.Origin
	now      time.Time
}

type route struct {
	run func(h *Handler, req *request) (any, error)
	// empty is written when run fails; clients get a well-formed value.
	empty func() any
}

func emptyList() any { return []any{} }

var routes = map[string]route{
	"get_live_categories":   {(*Handler).liveCategories, emptyList},
	"get_live_streams":      {(*Handler).liveStreams, emptyList},
	"get_vod_categories":    {(*Handler).vodCategories, emptyList},
	"get_vod_streams":       {(*Handler).vodStreams, emptyList},
	"get_vod_info":          {(*Handler).vodInfo, func() any { return vodInfoResponse{Info: struct{}{}, MovieData: struct{}{}} }},
	"get_series_categories": {(*Handler).seriesCategories, emptyList},
	"get_series":            {(*Handler).series, emptyList},
	"get_series_info":       {(*Handler).seriesInfo, emptySeriesInfo},
	"get_short_epg":         {(*Handler).shortEPG, emptyEPG},
	"get_simple_data_table": {(*Handler).simpleDataTable, emptyEPG},
}

func emptySeriesInfo() any {
	return seriesInfoResponse{Seasons: []season{}, Info: struct{}{}, Episodes: map[string][]episode{}}
}

func emptyEPG() any { return epgResponse{Listings: []epgListing{}} }

// ServeHTTP authenticates the caller and dispatches on the action
// parameter. Every response is HTTP 200: failed authentication is
// {"user_info":{"auth":0}} and unknown actions return the login payload.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil {
			params = r.Form
		}
	}
	action := params.Get("action")
	rt, known := routes[action]
	label := action
	if !known {
		rt = route{run: (*Handler).login}
		if action != "" {
			label = "other"
		}
	}

	now := h.now()
	user, err := catalog.Authenticate(r.Context(), h.store, params.Get("username"), params.Get("password"), now)
	if err != nil {
		if !isAuthError(err) {
			h.log.Error().Err(err).Str("action", label).Msg("authenticate")
			metrics.RecordAdapter(adapterName, label, metrics.OutcomeError)
		} else {
			metrics.RecordAdapter(adapterName, label, metrics.OutcomeAuthFail)
		}
		httpjson.Write(w, http.StatusOK, authFailure{})
		return
	}

	req := &request{
		ctx:      r.Context(),
		user:     user,
		password: params.Get("password"),
		params:   params,
		origin:   streamurl.OriginFromRequest(r),
		now:      now,
	}
	body, err := rt.run(h, req)
	if err != nil {
		h.log.Error().Err(err).Str("action", label).Str("user", user.Username).Msg("action failed")
		metrics.RecordAdapter(adapterName, label, metrics.OutcomeError)
		if rt.empty != nil {
			body = rt.empty()
		}
		httpjson.Write(w, http.StatusOK, body)
		return
	}
	metrics.RecordAdapter(adapterName, label, metrics.OutcomeOK)
	httpjson.Write(w, http.StatusOK, body)
}

func isAuthError(err error) bool {
	return errors.Is(err, catalog.ErrInvalidCredentials) ||
		errors.Is(err, catalog.ErrExpired) ||
		errors.Is(err, catalog.ErrBlocked)
}

func (h *Handler) login(req *request) (any, error) {
	settings := h.resolver.Settings()
	loc := settings.Location()
	u := req.user

	info := userInfo{
		Username:             u.Username,
		Password:             req.password,
		Auth:                 1,
		Status:               "Active",
		IsTrial:              "0",
		ActiveCons:           "0",
		CreatedAt:            unixString(u.CreatedAt),
		MaxConnections:       strconv.Itoa(u.MaxConnections),
		AllowedOutputFormats: []string{"m3u8", "ts"},
	}
	if u.ExpiryDate != nil {
		exp := strconv.FormatInt(u.ExpiryDate.Unix(), 10)
		info.ExpDate = &exp
	}

	scheme := h.resolver.Scheme(req.origin)
	return loginResponse{
		UserInfo: info,
		ServerInfo: serverInfo{
			URL:            hostOnly(h.resolver.Host(req.origin)),
			Port:           orDefault(settings.HTTPPort, "80"),
			HTTPSPort:      orDefault(settings.HTTPSPort, "443"),
			ServerProtocol: scheme,
			RTMPPort:       orDefault(settings.RTMPPort, "1935"),
			Timezone:       loc.String(),
			TimestampNow:   req.now.Unix(),
			TimeNow:        req.now.In(loc).Format(dateTimeLayout),
			ServerName:     settings.ServerName,
		},
	}, nil
}

const dateTimeLayout = "2006-01-02 15:04:05"

// hostOnly drops a ":port" suffix; the port travels in its own field.
func hostOnly(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func unixString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return strconv.FormatInt(t.Unix(), 10)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func idString(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

// rating returns the 10-based rating string and its 5-based value.
func rating(r *float64) (string, float64) {
	if r == nil {
		return "", 0
	}
	return strconv.FormatFloat(*r, 'f', -1, 64), *r / 2
}

// optionalID parses an optional numeric id parameter.
func optionalID(params url.Values, key string) (*int64, bool) {
	raw := params.Get(key)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	return &id, true
}
