package playlist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/may5ra/server-stream-one/internal/config"
	"github.com/may5ra/server-stream-one/internal/m3u"
	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
	"github.com/may5ra/server-stream-one/internal/streamurl"
	"github.com/may5ra/server-stream-one/internal/xmltv"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func fixture(t *testing.T) (*Handler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	mem.PutUser(models.StreamingUser{Username: "u1", Password: "p1", Status: models.UserActive})
	mem.PutUser(models.StreamingUser{Username: "old", Password: "p", Status: models.UserActive, ExpiryDate: ptr(now.Add(-time.Minute))})
	mem.PutUser(models.StreamingUser{Username: "basic", Password: "p", Status: models.UserActive, Bouquets: []string{"basic"}})

	ctx := context.Background()
	for _, s := range []models.Stream{
		{Name: "CNN", InputType: models.InputHLS, InputURL: "http://src/cnn/", Category: "News", Status: models.StreamLive, EPGChannelID: ptr("cnn.us"), ChannelNumber: ptr(1)},
		{Name: "Arena", InputType: models.InputRTMP, InputURL: "rtmp://src/arena", Category: "Sport", Status: models.StreamLive, Bouquet: ptr("premium")},
		{Name: "Off", InputType: models.InputHLS, InputURL: "http://src/off/", Category: "News", Status: models.StreamInactive},
	} {
		_, err := mem.CreateStream(ctx, &s)
		require.NoError(t, err)
	}
	cat := mem.PutVodCategory(models.Category{Name: "Films"})
	mem.PutVod(models.VodContent{Name: "Heat", CategoryID: &cat, StreamURL: "http://src/heat.mkv", ContainerExtension: "mkv"})
	sid := mem.PutSeries(models.Series{Name: "Dark"})
	mem.PutEpisode(models.SeriesEpisode{SeriesID: sid, Season: 1, EpisodeNum: 2, Title: "Lies", StreamURL: "http://src/d.mp4"})

	h := New(mem, streamurl.New(config.StreamSettings{Domain: "tv.example.com"}), zerolog.Nop())
	h.now = func() time.Time { return now }
	return h, mem
}

func serve(h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestPlaylist_Auth(t *testing.T) {
	h, _ := fixture(t)
	assert.Equal(t, http.StatusUnauthorized, serve(h.ServePlaylist, "/m3u-playlist?username=u1&password=bad").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h.ServePlaylist, "/m3u-playlist").Code)
	assert.Equal(t, http.StatusForbidden, serve(h.ServePlaylist, "/m3u-playlist?username=old&password=p").Code)
	assert.Equal(t, http.StatusForbidden, serve(h.ServeGuide, "/xmltv.php?username=old&password=p").Code)
}

func TestPlaylist_Plus(t *testing.T) {
	h, _ := fixture(t)
	rec := serve(h.ServePlaylist, "/m3u-playlist?username=u1&password=p1&type=m3u_plus&output=m3u8")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/x-mpegurl", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="u1_playlist.m3u"`, rec.Header().Get("Content-Disposition"))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, `#EXTM3U x-tvg-url="http://tv.example.com/xmltv.php?password=p1&username=u1"`), body)

	entries := m3u.Parse(body)
	require.Len(t, entries, 4)
	assert.Equal(t, "CNN", entries[0].Name)
	assert.Equal(t, "cnn.us", entries[0].TvgID)
	assert.Equal(t, "News", entries[0].GroupTitle)
	assert.Equal(t, "1", entries[0].ChannelNumber)
	assert.Equal(t, "http://tv.example.com/proxy/u1/p1/CNN/index.m3u8", entries[0].URL)
	assert.Equal(t, "Arena", entries[1].Name)
	assert.True(t, strings.HasSuffix(entries[1].URL, ".m3u8"))
	assert.Equal(t, "Heat", entries[2].Name)
	assert.Equal(t, "Films", entries[2].GroupTitle)
	assert.Contains(t, entries[2].URL, "/movie/u1/p1/")
	assert.True(t, strings.HasSuffix(entries[2].URL, ".mkv"))
	assert.Equal(t, "Dark S01E02", entries[3].Name)
	assert.Contains(t, entries[3].URL, "/series/u1/p1/")
}

func TestPlaylist_Plain(t *testing.T) {
	h, _ := fixture(t)
	rec := serve(h.ServePlaylist, "/get.php?username=basic&password=p&type=m3u")
	require.Equal(t, http.StatusOK, rec.Code)

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "#EXTM3U", lines[0])
	assert.Equal(t, "#EXTINF:-1,CNN", lines[1])
	assert.Equal(t, "http://tv.example.com/proxy/basic/p/CNN/index.m3u8", lines[2])
}

func TestGuide(t *testing.T) {
	h, mem := fixture(t)
	ctx := context.Background()
	cnn, err := mem.GetStreamByName(ctx, "CNN")
	require.NoError(t, err)
	chID, err := mem.UpsertEPGChannel(ctx, &models.EPGChannel{ChannelID: "cnn.us", Name: "CNN", StreamID: cnn.ID})
	require.NoError(t, err)
	_, err = mem.InsertEPGPrograms(ctx, []models.EPGProgram{
		{ChannelID: chID, Title: "Now", StartTime: now, EndTime: now.Add(time.Hour)},
		{ChannelID: chID, Title: "Far", StartTime: now.Add(10 * 24 * time.Hour), EndTime: now.Add(241 * time.Hour)},
	})
	require.NoError(t, err)

	rec := serve(h.ServeGuide, "/xmltv.php?username=u1&password=p1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/xml")

	doc, err := xmltv.Decode(rec.Body, now)
	require.NoError(t, err)
	require.Len(t, doc.Channels, 1)
	assert.Equal(t, "cnn.us", doc.Channels[0].ID)
	require.Len(t, doc.Programmes, 1)
	assert.Equal(t, "Now", doc.Programmes[0].Title)
}
