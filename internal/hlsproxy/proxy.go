// Package hlsproxy serves a remote HLS stream through a same-origin path.
package hlsproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/may5ra/server-stream-one/internal/fetcher"
	"github.com/may5ra/server-stream-one/internal/httpjson"
	"github.com/may5ra/server-stream-one/internal/metrics"
	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
)

const (
	manifestContentType = "application/vnd.apple.mpegurl"
	segmentContentType  = "video/mp2t"
	maxManifestSize     = 8 << 20
)

var errBadPath = errors.New("invalid stream path")

// StreamLookup finds a live stream by its exact name.
type StreamLookup interface {
	GetStreamByName(ctx context.Context, name string) (*models.Stream, error)
}

// Proxy serves GET /stream-proxy/{name}/*.
type Proxy struct {
	streams StreamLookup
	client  *fetcher.Client
	log     zerolog.Logger
}

// New returns a Proxy fetching upstream through client.
func New(streams StreamLookup, client *fetcher.Client, logger zerolog.Logger) *Proxy {
	return &Proxy{
		streams: streams,
		client:  client,
		log:     logger.With().Str("component", "hlsproxy").Logger(),
	}
}

// NewClient returns the upstream client of the proxy. headerTimeout bounds
// the wait for response headers only, so long segment bodies are not cut
// off mid-copy. A nil tr uses a clone of http.DefaultTransport.
func NewClient(tr *http.Transport, headerTimeout time.Duration) *fetcher.Client {
	if tr == nil {
		tr = http.DefaultTransport.(*http.Transport).Clone()
	}
	tr.ResponseHeaderTimeout = headerTimeout
	return fetcher.New(fetcher.BrowserUserAgent, 0, fetcher.WithHTTPClient(&http.Client{Transport: tr}))
}

// ServeHTTP reads the stream name and file path from the chi route
// parameters "name" and "*".
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.Serve(w, r, chi.URLParam(r, "name"), chi.URLParam(r, "*"))
}

// Serve proxies filePath of the stream called name.
func (p *Proxy) Serve(w http.ResponseWriter, r *http.Request, name, filePath string) {
	if name == "" || !validFilePath(filePath) {
		httpjson.Error(w, http.StatusBadRequest, errBadPath)
		return
	}
	s, err := p.streams.GetStreamByName(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		httpjson.Error(w, http.StatusNotFound, fmt.Errorf("stream %q not found", name))
		return
	}
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, err)
		return
	}

	target := TargetURL(s.InputURL, filePath)
	resp, err := p.client.Open(r.Context(), target, fetcher.BrowserUserAgent)
	if err != nil {
		status := fetcher.StatusOf(err)
		metrics.RecordProxyUpstream(status)
		switch {
		case status != 0:
		case errors.Is(err, fetcher.ErrTimeout):
			status = http.StatusGatewayTimeout
		default:
			status = http.StatusBadGateway
		}
		p.log.Warn().Err(err).Str("stream", name).Str("file", filePath).Int("status", status).Msg("upstream failed")
		httpjson.Error(w, status, fmt.Errorf("upstream %s: %w", filePath, err))
		return
	}
	defer resp.Body.Close()
	metrics.RecordProxyUpstream(resp.StatusCode)

	switch strings.ToLower(path.Ext(filePath)) {
	case ".m3u8":
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize))
		if err != nil {
			httpjson.Error(w, http.StatusBadGateway, fmt.Errorf("read manifest: %w", err))
			return
		}
		w.Header().Set("Content-Type", manifestContentType)
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, RewriteManifest(string(body), StreamBase(s.InputURL), filePath))
		return
	case ".ts":
		w.Header().Set("Content-Type", segmentContentType)
		w.Header().Set("Cache-Control", "public, max-age=86400")
	default:
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		w.Header().Set("Content-Length", cl)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil && r.Context().Err() == nil {
		p.log.Debug().Err(err).Str("stream", name).Str("file", filePath).Msg("copy segment")
	}
}

// validFilePath rejects empty, absolute and parent-relative paths.
func validFilePath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." || seg == "." {
			return false
		}
	}
	return true
}

// StreamBase is the upstream directory files of a stream are fetched
// from: the input URL itself when its path ends in "/", its directory when
// it names a .m3u8 or .ts file, and the input URL plus "/" otherwise. The
// query string is not part of the base.
func StreamBase(inputURL string) string {
	u, err := url.Parse(inputURL)
	if err != nil {
		return inputURL + "/"
	}
	u.RawQuery, u.Fragment, u.RawPath = "", "", ""
	switch p := u.Path; {
	case strings.HasSuffix(p, "/"):
	case isMediaFile(p):
		u.Path = p[:strings.LastIndexByte(p, '/')+1]
	default:
		u.Path = p + "/"
	}
	return u.String()
}

// TargetURL is the upstream URL of filePath for a stream. A query string
// on the input URL, typically an access token, is carried over.
func TargetURL(inputURL, filePath string) string {
	target := StreamBase(inputURL) + filePath
	if u, err := url.Parse(inputURL); err == nil && u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}

func isMediaFile(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".m3u8", ".ts":
		return true
	}
	return false
}
