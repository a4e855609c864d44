package streamurl

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/may5ra/server-stream-one/internal/config"
	"github.com/may5ra/server-stream-one/internal/models"
)

var local = Origin{Scheme: "http", Host: "panel.local:8080"}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		settings config.StreamSettings
		input    string
		want     string
	}{
		{
			name:  "hls via self-hosted proxy on request host",
			input: models.InputHLS,
			want:  "http://panel.local:8080/proxy/HBO%20HD/index.m3u8",
		},
		{
			name:     "hls via preview edge proxy",
			settings: config.StreamSettings{PreviewURL: "https://preview.example.co/", Domain: "tv.example.com"},
			input:    models.InputHLS,
			want:     "https://preview.example.co/functions/v1/stream-proxy/HBO%20HD/index.m3u8",
		},
		{
			name:     "rtmp via packager with forced ssl and domain",
			settings: config.StreamSettings{SSL: true, Domain: "tv.example.com"},
			input:    models.InputRTMP,
			want:     "https://tv.example.com/live/HBO%20HD/playlist.m3u8",
		},
		{
			name:     "preview ignored for non-hls",
			settings: config.StreamSettings{PreviewURL: "https://preview.example.co"},
			input:    models.InputSRT,
			want:     "http://panel.local:8080/live/HBO%20HD/playlist.m3u8",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.settings).Resolve(local, "HBO HD", tt.input))
		})
	}
}

func TestLiveURL(t *testing.T) {
	r := New(config.StreamSettings{Domain: "tv.example.com"})
	hls := &models.Stream{ID: 7, Name: "HBO", InputType: models.InputHLS}
	rtmp := &models.Stream{ID: 8, Name: "News", InputType: models.InputRTMP}

	assert.Equal(t, "http://tv.example.com/proxy/u1/p1/HBO/index.m3u8", r.LiveURL(local, "u1", "p1", hls, "ts"))
	assert.Equal(t, "http://tv.example.com/live/u1/p1/8.ts", r.LiveURL(local, "u1", "p1", rtmp, ""))
	assert.Equal(t, "http://tv.example.com/live/u1/p1/8.m3u8", r.LiveURL(local, "u1", "p1", rtmp, "m3u8"))
	assert.Equal(t, "tv.example.com", r.Host(local))
	assert.Equal(t, "http", r.Scheme(local))
}

func TestLiveURL_Preview(t *testing.T) {
	r := New(config.StreamSettings{Domain: "tv.example.com", PreviewURL: "https://preview.example.co"})
	hls := &models.Stream{ID: 7, Name: "HBO HD", InputType: models.InputHLS}
	rtmp := &models.Stream{ID: 8, Name: "News", InputType: models.InputRTMP}

	assert.Equal(t, "https://preview.example.co/functions/v1/stream-proxy/HBO%20HD/index.m3u8", r.LiveURL(local, "u1", "p1", hls, "ts"))
	assert.Equal(t, "http://tv.example.com/live/u1/p1/8.ts", r.LiveURL(local, "u1", "p1", rtmp, ""))
}

func TestMovieAndEpisodeURL(t *testing.T) {
	r := New(config.StreamSettings{})
	assert.Equal(t, "http://panel.local:8080/movie/u/p/3.mkv",
		r.MovieURL(local, "u", "p", &models.VodContent{ID: 3, ContainerExtension: ".MKV"}))
	assert.Equal(t, "http://panel.local:8080/series/u/p/9.mp4",
		r.EpisodeURL(local, "u", "p", &models.SeriesEpisode{ID: 9}))
	assert.Equal(t, "http://panel.local:8080/xmltv.php?password=p&username=u", r.GuideURL(local, "u", "p"))
}

func TestOriginFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "http://a.local/x", nil)
	assert.Equal(t, Origin{Scheme: "http", Host: "a.local"}, OriginFromRequest(req))

	req.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https", OriginFromRequest(req).Scheme)

	req = httptest.NewRequest("GET", "http://a.local/x", nil)
	req.Header.Set("X-Forwarded-Proto", "https, http")
	req.Header.Set("X-Forwarded-Host", "edge.example.com")
	assert.Equal(t, Origin{Scheme: "https", Host: "edge.example.com"}, OriginFromRequest(req))
}
