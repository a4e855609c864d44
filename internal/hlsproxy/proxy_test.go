package hlsproxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/may5ra/server-stream-one/internal/fetcher"
	"github.com/may5ra/server-stream-one/internal/httpjson"
	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
)

type upstreamHit struct {
	path      string
	userAgent string
}

func newUpstream(t *testing.T, hits chan<- upstreamHit) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/live/index.m3u8", func(w http.ResponseWriter, r *http.Request) {
		hits <- upstreamHit{r.URL.Path, r.UserAgent()}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "#EXTM3U\n#EXT-X-KEY:METHOD=AES-128,URI=\""+srv.URL+"/live/key.bin\"\n#EXTINF:6,\n"+srv.URL+"/live/seg1.ts\n#EXTINF:6,\nseg2.ts\nhttp://cdn.other/seg3.ts\n")
	})
	mux.HandleFunc("/live/seg1.ts", func(w http.ResponseWriter, r *http.Request) {
		hits <- upstreamHit{r.URL.Path, r.UserAgent()}
		_, _ = w.Write([]byte{0x47, 0x40, 0x00})
	})
	mux.HandleFunc("/live/gone.ts", func(w http.ResponseWriter, r *http.Request) {
		hits <- upstreamHit{r.URL.Path, r.UserAgent()}
		http.Error(w, "gone", http.StatusGone)
	})
	mux.HandleFunc("/slow/index.m3u8", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv = httptest.NewServer(mux)
	return srv
}

func setup(t *testing.T, upstream string) (http.Handler, *http.Transport) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()
	for _, s := range []models.Stream{
		{Name: "HBO", InputType: models.InputHLS, InputURL: upstream + "/live/", Status: models.StreamLive},
		{Name: "Slow", InputType: models.InputHLS, InputURL: upstream + "/slow/index.m3u8", Status: models.StreamLive},
		{Name: "Dead", InputType: models.InputHLS, InputURL: "http://127.0.0.1:1/x/", Status: models.StreamLive},
	} {
		_, err := mem.CreateStream(ctx, &s)
		require.NoError(t, err)
	}
	tr := &http.Transport{DisableKeepAlives: true}
	client := NewClient(tr, 300*time.Millisecond)

	r := chi.NewRouter()
	r.Get("/stream-proxy/{name}/*", New(mem, client, zerolog.Nop()).ServeHTTP)
	return r, tr
}

func TestProxy_Manifest(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hits := make(chan upstreamHit, 8)
	up := newUpstream(t, hits)
	defer up.Close()
	h, tr := setup(t, up.URL)
	defer tr.CloseIdleConnections()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream-proxy/HBO/index.m3u8", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.apple.mpegurl", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "#EXTM3U\n#EXT-X-KEY:METHOD=AES-128,URI=\"key.bin\"\n#EXTINF:6,\nseg1.ts\n#EXTINF:6,\nseg2.ts\nhttp://cdn.other/seg3.ts\n", rec.Body.String())

	hit := <-hits
	assert.Equal(t, "/live/index.m3u8", hit.path)
	assert.Equal(t, fetcher.BrowserUserAgent, hit.userAgent)
}

func TestProxy_Segment(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hits := make(chan upstreamHit, 8)
	up := newUpstream(t, hits)
	defer up.Close()
	h, tr := setup(t, up.URL)
	defer tr.CloseIdleConnections()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream-proxy/HBO/seg1.ts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp2t", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
	assert.Equal(t, []byte{0x47, 0x40, 0x00}, rec.Body.Bytes())
}

func TestProxy_Errors(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hits := make(chan upstreamHit, 8)
	up := newUpstream(t, hits)
	defer up.Close()
	h, tr := setup(t, up.URL)
	defer tr.CloseIdleConnections()

	cases := []struct {
		target string
		status int
	}{
		{"/stream-proxy/Nope/index.m3u8", http.StatusNotFound},
		{"/stream-proxy/HBO/gone.ts", http.StatusGone},
		{"/stream-proxy/HBO/../../etc/passwd", http.StatusBadRequest},
		{"/stream-proxy/HBO/", http.StatusBadRequest},
		{"/stream-proxy/Dead/index.m3u8", http.StatusBadGateway},
		{"/stream-proxy/Slow/index.m3u8", http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = tc.target
		h.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, tc.target)

		var body httpjson.APIError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), tc.target)
		assert.Equal(t, tc.status, body.Status, tc.target)
		assert.NotEmpty(t, body.Detail, tc.target)
	}
}

func TestTargetURL(t *testing.T) {
	cases := []struct {
		input, file, want string
	}{
		{"http://src/live/", "index.m3u8", "http://src/live/index.m3u8"},
		{"http://src/live/playlist.m3u8", "index.m3u8", "http://src/live/index.m3u8"},
		{"http://src/live/playlist.m3u8?token=1", "seg.ts", "http://src/live/seg.ts?token=1"},
		{"http://src/live?token=x", "index.m3u8", "http://src/live/index.m3u8?token=x"},
		{"http://src/live/?token=x", "720p/a.ts", "http://src/live/720p/a.ts?token=x"},
		{"http://src/live/chunk.TS", "seg.ts", "http://src/live/seg.ts"},
		{"http://src/live", "index.m3u8", "http://src/live/index.m3u8"},
		{"http://src/live/", "720p/index.m3u8", "http://src/live/720p/index.m3u8"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TargetURL(tc.input, tc.file), tc.input)
	}

	assert.Equal(t, "http://src/live/", StreamBase("http://src/live?token=x"))
	assert.Equal(t, "http://src/live/", StreamBase("http://src/live/index.m3u8?token=x"))
}

func TestRewriteManifest(t *testing.T) {
	base := "http://src/live/"
	in := "#EXTM3U\r\n#EXT-X-MAP:URI=\"http://src/live/720p/init.mp4\"\r\nhttp://src/live/720p/a.ts\r\n  http://src/live/b.ts  \r\nhttp://elsewhere/c.ts\r\n"
	want := "#EXTM3U\r\n#EXT-X-MAP:URI=\"../720p/init.mp4\"\r\n../720p/a.ts\r\n  ../b.ts  \r\nhttp://elsewhere/c.ts\r\n"
	assert.Equal(t, want, RewriteManifest(in, base, "720p/index.m3u8"))

	assert.Equal(t, "#EXTM3U\nseg.ts", RewriteManifest("#EXTM3U\nhttp://src/live/seg.ts", base, "index.m3u8"))
}

func TestValidFilePath(t *testing.T) {
	for p, want := range map[string]bool{
		"index.m3u8":    true,
		"720p/seg-1.ts": true,
		"":              false,
		"/etc/passwd":   false,
		"../secret":     false,
		"a/./b.ts":      false,
		`a\..\b.ts`:     false,
	} {
		assert.Equal(t, want, validFilePath(p), p)
	}
}
