// Package streamurl builds the outward-facing URLs players receive.
package streamurl

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/may5ra/server-stream-one/internal/config"
	"github.com/may5ra/server-stream-one/internal/models"
)

// Origin is the scheme and host a request arrived on.
type Origin struct {
	Scheme string
	Host   string
}

// OriginFromRequest reads the origin of r, honouring X-Forwarded-Proto and
// X-Forwarded-Host set by a reverse proxy.
func OriginFromRequest(r *http.Request) Origin {
	o := Origin{Scheme: "http", Host: r.Host}
	if r.TLS != nil {
		o.Scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		o.Scheme = strings.ToLower(strings.TrimSpace(strings.Split(p, ",")[0]))
	}
	if h := r.Header.Get("X-Forwarded-Host"); h != "" {
		o.Host = strings.TrimSpace(strings.Split(h, ",")[0])
	}
	return o
}

// Resolver turns catalog rows into player URLs.
type Resolver struct {
	settings config.StreamSettings
}

// New returns a Resolver for the given settings.
func New(settings config.StreamSettings) *Resolver {
	return &Resolver{settings: settings}
}

// Settings returns the settings the resolver was built with.
func (r *Resolver) Settings() config.StreamSettings { return r.settings }

// Base is "{protocol}://{domain}". SSL in settings forces https; the
// configured domain wins over the request host.
func (r *Resolver) Base(o Origin) string {
	scheme := o.Scheme
	if r.settings.SSL {
		scheme = "https"
	}
	if scheme == "" {
		scheme = "http"
	}
	host := r.settings.Domain
	if host == "" {
		host = o.Host
	}
	if host == "" {
		host = "localhost"
	}
	return scheme + "://" + strings.TrimSuffix(host, "/")
}

// Host is the host part of Base.
func (r *Resolver) Host(o Origin) string {
	b := r.Base(o)
	return b[strings.Index(b, "://")+3:]
}

// Scheme is the scheme part of Base.
func (r *Resolver) Scheme(o Origin) string {
	b := r.Base(o)
	return b[:strings.Index(b, "://")]
}

// Resolve returns the playback URL of a live stream by name:
// the preview edge proxy for HLS when configured, the self-hosted HLS
// proxy for other HLS, and the packager output for everything else.
func (r *Resolver) Resolve(o Origin, name, inputType string) string {
	seg := url.PathEscape(name)
	if inputType == models.InputHLS {
		if p := strings.TrimSuffix(r.settings.PreviewURL, "/"); p != "" {
			return p + "/functions/v1/stream-proxy/" + seg + "/index.m3u8"
		}
		return r.Base(o) + "/proxy/" + seg + "/index.m3u8"
	}
	return r.Base(o) + "/live/" + seg + "/playlist.m3u8"
}

// LiveURL is the Xtream-style URL of a live stream for a user. output is
// "ts" or "m3u8"; anything else means ts. HLS streams go through the
// preview edge proxy when one is configured.
func (r *Resolver) LiveURL(o Origin, username, password string, s *models.Stream, output string) string {
	u, p := url.PathEscape(username), url.PathEscape(password)
	if s.InputType == models.InputHLS {
		if r.settings.PreviewURL != "" {
			return r.Resolve(o, s.Name, s.InputType)
		}
		return r.Base(o) + "/proxy/" + u + "/" + p + "/" + url.PathEscape(s.Name) + "/index.m3u8"
	}
	ext := "ts"
	if output == "m3u8" || output == "hls" {
		ext = "m3u8"
	}
	return r.Base(o) + "/live/" + u + "/" + p + "/" + strconv.FormatInt(s.ID, 10) + "." + ext
}

// MovieURL is the Xtream-style URL of a VOD item.
func (r *Resolver) MovieURL(o Origin, username, password string, v *models.VodContent) string {
	return r.Base(o) + "/movie/" + url.PathEscape(username) + "/" + url.PathEscape(password) + "/" +
		strconv.FormatInt(v.ID, 10) + "." + Extension(v.ContainerExtension)
}

// EpisodeURL is the Xtream-style URL of a series episode.
func (r *Resolver) EpisodeURL(o Origin, username, password string, e *models.SeriesEpisode) string {
	return r.Base(o) + "/series/" + url.PathEscape(username) + "/" + url.PathEscape(password) + "/" +
		strconv.FormatInt(e.ID, 10) + "." + Extension(e.ContainerExtension)
}

// GuideURL is the XMLTV URL advertised in playlists.
func (r *Resolver) GuideURL(o Origin, username, password string) string {
	q := url.Values{}
	q.Set("username", username)
	q.Set("password", password)
	return r.Base(o) + "/xmltv.php?" + q.Encode()
}

// Extension normalises a container extension, defaulting to mp4.
func Extension(ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(strings.ToLower(ext)), ".")
	if ext == "" {
		return "mp4"
	}
	return ext
}
