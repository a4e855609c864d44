package stalker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/may5ra/server-stream-one/internal/config"
	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
	"github.com/may5ra/server-stream-one/internal/streamurl"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	activeMAC  = "00:1A:79:AA:BB:CC"
	expiredMAC = "00:1A:79:00:00:01"
	basicMAC   = "00:1A:79:00:00:02"
)

func ptr[T any](v T) *T { return &v }

func fixture(t *testing.T) (*Handler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	mem.PutUser(models.StreamingUser{
		Username:       "box1",
		Password:       "x",
		Status:         models.UserActive,
		MACAddress:     ptr("00-1a-79-aa-bb-cc"),
		ExpiryDate:     ptr(time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)),
		MaxConnections: 1,
	})
	mem.PutUser(models.StreamingUser{
		Username:   "box2",
		Password:   "x",
		Status:     models.UserActive,
		MACAddress: ptr(expiredMAC),
		ExpiryDate: ptr(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
	})
	mem.PutUser(models.StreamingUser{
		Username:   "box3",
		Password:   "x",
		Status:     models.UserActive,
		MACAddress: ptr(basicMAC),
		Bouquets:   []string{"basic"},
	})
	mem.PutLiveCategory(models.Category{ID: 1, Name: "News"})

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		s := models.Stream{
			Name:      "News " + strconv.Itoa(i),
			InputType: models.InputHLS,
			InputURL:  "http://src/news" + strconv.Itoa(i) + ".m3u8",
			Category:  "News",
			Status:    models.StreamLive,
		}
		_, err := mem.CreateStream(ctx, &s)
		require.NoError(t, err)
	}
	for _, s := range []models.Stream{
		{Name: "Arena", InputType: models.InputRTMP, InputURL: "rtmp://src/arena", Category: "Sport", Status: models.StreamLive, Bouquet: ptr("premium")},
		{Name: "Dead", InputType: models.InputHLS, InputURL: "http://src/dead.m3u8", Category: "Sport", Status: models.StreamError},
	} {
		_, err := mem.CreateStream(ctx, &s)
		require.NoError(t, err)
	}

	h := New(mem, streamurl.New(config.StreamSettings{Timezone: "UTC"}), zerolog.Nop())
	h.now = func() time.Time { return now }
	return h, mem
}

func get(t *testing.T, h http.Handler, target string, mutate ...func(*http.Request)) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func load(typ, action, mac string, kv ...string) string {
	q := url.Values{"type": {typ}, "action": {action}}
	if mac != "" {
		q.Set("mac", mac)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	return "/stalker_portal/server/load.php?" + q.Encode()
}

func js(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	m, ok := body["js"].(map[string]any)
	require.True(t, ok, "js is %T", body["js"])
	return m
}

func TestHandshake(t *testing.T) {
	h, _ := fixture(t)
	a := js(t, get(t, h, load("stb", "handshake", "")))
	b := js(t, get(t, h, load("stb", "handshake", "")))
	assert.Len(t, a["token"], 32)
	assert.NotEqual(t, a["token"], b["token"])
}

func TestUnknownCombinationReturnsToken(t *testing.T) {
	h, _ := fixture(t)
	got := js(t, get(t, h, load("itv", "frobnicate", activeMAC)))
	assert.NotEmpty(t, got["token"])

	got = js(t, get(t, h, "/stalker_portal/server/load.php"))
	assert.NotEmpty(t, got["token"])
}

func TestNoopNamespaces(t *testing.T) {
	h, _ := fixture(t)
	for _, typ := range []string{"watchdog", "account_info", "main_menu"} {
		assert.Empty(t, js(t, get(t, h, load(typ, "get_events", activeMAC))), typ)
	}
}

func TestMACExtraction(t *testing.T) {
	cases := []struct {
		name   string
		target string
		mutate func(*http.Request)
		want   string
	}{
		{"query mac", "/load.php?mac=aa:bb:cc:dd:ee:ff", nil, "AABBCCDDEEFF"},
		{"query stb_mac", "/load.php?stb_mac=AA-BB-CC-DD-EE-FF", nil, "AABBCCDDEEFF"},
		{"cookie", "/load.php", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "mac", Value: "aa%3Abb%3Acc%3Add%3Aee%3Aff"})
		}, "AABBCCDDEEFF"},
		{"header", "/load.php", func(r *http.Request) {
			r.Header.Set("Authorization", "MAC aa:bb:cc:dd:ee:ff")
		}, "AABBCCDDEEFF"},
		{"query wins over cookie", "/load.php?mac=11:22:33:44:55:66", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "mac", Value: "aa:bb:cc:dd:ee:ff"})
		}, "112233445566"},
		{"bearer ignored", "/load.php", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer abc")
		}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.mutate != nil {
				tc.mutate(r)
			}
			assert.Equal(t, tc.want, macFrom(r))
		})
	}
}

func TestRequestTypeFromPath(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/portal/stb.php?action=handshake", nil)
	assert.Equal(t, "stb", requestType(r))
	r = httptest.NewRequest(http.MethodGet, "/portal/stb.php?type=itv", nil)
	assert.Equal(t, "itv", requestType(r))
}

func TestGetProfile(t *testing.T) {
	h, mem := fixture(t)

	p := js(t, get(t, h, load("stb", "get_profile", "00:1a:79:aa:bb:cc")))
	assert.Equal(t, float64(1), p["status"])
	assert.Equal(t, "box1", p["name"])
	assert.Equal(t, "001A79AABBCC", p["mac"])
	assert.Equal(t, "2099-01-01 00:00:00", p["exp_date"])

	u, err := mem.GetUserByMAC(context.Background(), "001A79AABBCC")
	require.NoError(t, err)
	require.NotNil(t, u.LastActive)
	assert.True(t, u.LastActive.Equal(now))

	p = js(t, get(t, h, "/stalker_portal/server/stb.php?action=do_auth", func(r *http.Request) {
		r.Header.Set("Authorization", "MAC "+activeMAC)
	}))
	assert.Equal(t, float64(1), p["status"])
}

func TestGetProfile_GuestAndExpired(t *testing.T) {
	h, _ := fixture(t)

	p := js(t, get(t, h, load("stb", "get_profile", "")))
	assert.Equal(t, float64(0), p["status"])
	assert.Equal(t, "Guest", p["name"])

	p = js(t, get(t, h, load("stb", "do_auth", "de:ad:be:ef:00:00")))
	assert.Equal(t, float64(0), p["status"])
	assert.Equal(t, "Guest", p["name"])

	p = js(t, get(t, h, load("stb", "do_auth", expiredMAC)))
	assert.Equal(t, float64(0), p["status"])
	assert.Equal(t, "2024-06-01 00:00:00", p["exp_date"])
	assert.Contains(t, p["msg"], "expired")
}

func TestGenres(t *testing.T) {
	h, _ := fixture(t)
	body := get(t, h, load("itv", "get_genres", activeMAC))
	list, ok := body["js"].([]any)
	require.True(t, ok)
	require.Len(t, list, 3)
	first := list[0].(map[string]any)
	assert.Equal(t, "*", first["id"])
	assert.Equal(t, "All", first["title"])
	assert.Equal(t, "News", list[1].(map[string]any)["title"])
	assert.Equal(t, "Sport", list[2].(map[string]any)["title"])

	all := []any{map[string]any{"id": "*", "title": "All", "alias": "all", "censored": float64(0)}}
	for _, mac := range []string{"de:ad:be:ef:00:00", ""} {
		for _, target := range []string{
			load("itv", "get_genres", mac),
			load("vod", "get_categories", mac),
			load("series", "get_genres", mac),
		} {
			assert.Equal(t, all, get(t, h, target)["js"], target)
		}
	}
}

func TestOrderedList_Paging(t *testing.T) {
	h, _ := fixture(t)

	pg := js(t, get(t, h, load("itv", "get_ordered_list", activeMAC, "genre", "*")))
	assert.Equal(t, float64(21), pg["total_items"])
	assert.Equal(t, float64(14), pg["max_page_items"])
	assert.Equal(t, float64(1), pg["cur_page"])
	assert.Len(t, pg["data"], 14)

	pg = js(t, get(t, h, load("itv", "get_ordered_list", activeMAC, "p", "2")))
	assert.Len(t, pg["data"], 7)

	pg = js(t, get(t, h, load("itv", "get_ordered_list", activeMAC, "p", "9")))
	assert.Empty(t, pg["data"])

	pg = js(t, get(t, h, load("itv", "get_ordered_list", activeMAC, "genre", "2", "cnt", "50")))
	data := pg["data"].([]any)
	require.Len(t, data, 1)
	ch := data[0].(map[string]any)
	assert.Equal(t, "Arena", ch["name"])
	assert.Equal(t, "ffrt http://localhost/live/"+ch["id"].(string), ch["cmd"])
	assert.Equal(t, "2", ch["tv_genre_id"])
}

func TestAllChannels(t *testing.T) {
	h, _ := fixture(t)
	pg := js(t, get(t, h, load("itv", "get_all_channels", activeMAC)))
	assert.Equal(t, float64(21), pg["total_items"])
	assert.Len(t, pg["data"], 21)

	pg = js(t, get(t, h, load("itv", "get_all_channels", basicMAC)))
	assert.Equal(t, float64(20), pg["total_items"])

	pg = js(t, get(t, h, load("itv", "get_all_channels", "")))
	assert.Equal(t, float64(0), pg["total_items"])
	assert.Empty(t, pg["data"])
}

func TestCreateLink(t *testing.T) {
	h, mem := fixture(t)
	ctx := context.Background()
	arena, err := mem.GetStreamByName(ctx, "Arena")
	require.NoError(t, err)
	dead, err := mem.GetStreamByName(ctx, "Dead")
	require.NoError(t, err)
	id := strconv.FormatInt(arena.ID, 10)

	l := js(t, get(t, h, load("itv", "create_link", activeMAC, "cmd", "ffrt http://localhost/live/"+id)))
	assert.Equal(t, "rtmp://src/arena", l["cmd"])
	assert.Equal(t, id, l["id"])

	l = js(t, get(t, h, load("itv", "create_link", basicMAC, "cmd", "ffrt http://localhost/live/"+id)))
	assert.Equal(t, "", l["cmd"])

	l = js(t, get(t, h, load("itv", "create_link", activeMAC, "cmd", "ffrt http://localhost/live/"+strconv.FormatInt(dead.ID, 10))))
	assert.Equal(t, "", l["cmd"])

	l = js(t, get(t, h, load("itv", "create_link", activeMAC, "cmd", "garbage")))
	assert.Equal(t, "", l["cmd"])
}

func TestCmdID(t *testing.T) {
	for cmd, want := range map[string]int64{
		"ffrt http://localhost/live/12": 12,
		"ffrt http://localhost/vod/7 ":  7,
		"/media/33.mpg":                 33,
		"44":                            44,
	} {
		got, ok := cmdID(cmd)
		assert.True(t, ok, cmd)
		assert.Equal(t, want, got, cmd)
	}
	_, ok := cmdID("ffrt http://localhost/live/abc")
	assert.False(t, ok)
}

func TestEPG(t *testing.T) {
	h, mem := fixture(t)
	ctx := context.Background()
	s, err := mem.GetStreamByName(ctx, "News 0")
	require.NoError(t, err)
	chID, err := mem.UpsertEPGChannel(ctx, &models.EPGChannel{ChannelID: "news0", Name: "News 0", StreamID: s.ID})
	require.NoError(t, err)
	var programs []models.EPGProgram
	for i := 0; i < 48; i++ {
		start := now.Add(time.Duration(i) * time.Hour)
		programs = append(programs, models.EPGProgram{ChannelID: chID, Title: "P" + strconv.Itoa(i), StartTime: start, EndTime: start.Add(time.Hour)})
	}
	_, err = mem.InsertEPGPrograms(ctx, programs)
	require.NoError(t, err)
	sid := strconv.FormatInt(s.ID, 10)

	pg := js(t, get(t, h, load("epg", "get_simple_data_table", activeMAC, "ch_id", sid)))
	data := pg["data"].([]any)
	require.Len(t, data, 24)
	first := data[0].(map[string]any)
	assert.Equal(t, "P0", first["name"])
	assert.Equal(t, "12:00", first["t_time"])
	assert.Equal(t, "13:00", first["t_time_to"])
	assert.Equal(t, float64(now.Unix()), first["start_timestamp"])
	assert.Equal(t, sid, first["ch_id"])

	pg = js(t, get(t, h, load("epg", "get_simple_data_table", activeMAC, "ch_id", sid, "period", "3")))
	assert.Len(t, pg["data"], 3)

	body := get(t, h, load("itv", "get_short_epg", activeMAC, "ch_id", sid))
	assert.Len(t, body["js"], 4)

	body = get(t, h, load("itv", "get_short_epg", activeMAC, "ch_id", "999999"))
	assert.Equal(t, []any{}, body["js"])
}

func TestVodAndSeries(t *testing.T) {
	h, mem := fixture(t)
	cat := mem.PutVodCategory(models.Category{Name: "Films"})
	vid := mem.PutVod(models.VodContent{Name: "Heat", CategoryID: &cat, StreamURL: "http://src/heat.mp4", Rating: ptr(8.0)})
	scat := mem.PutSeriesCategory(models.Category{Name: "Drama"})
	sid := mem.PutSeries(models.Series{Name: "Dark", CategoryID: &scat})
	eid := mem.PutEpisode(models.SeriesEpisode{SeriesID: sid, Season: 1, EpisodeNum: 1, Title: "Secrets", StreamURL: "http://src/dark101.mkv"})

	body := get(t, h, load("vod", "get_categories", activeMAC))
	assert.Len(t, body["js"], 2)

	pg := js(t, get(t, h, load("vod", "get_ordered_list", activeMAC, "category", strconv.FormatInt(cat, 10))))
	data := pg["data"].([]any)
	require.Len(t, data, 1)
	item := data[0].(map[string]any)
	assert.Equal(t, "Heat", item["name"])
	assert.Equal(t, "8", item["rating_imdb"])

	l := js(t, get(t, h, load("vod", "create_link", activeMAC, "cmd", item["cmd"].(string))))
	assert.Equal(t, "http://src/heat.mp4", l["cmd"])
	assert.Equal(t, strconv.FormatInt(vid, 10), l["id"])

	pg = js(t, get(t, h, load("series", "get_ordered_list", activeMAC)))
	data = pg["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, float64(1), data[0].(map[string]any)["is_series"])

	pg = js(t, get(t, h, load("series", "get_ordered_list", activeMAC, "movie_id", strconv.FormatInt(sid, 10)+":1")))
	data = pg["data"].([]any)
	require.Len(t, data, 1)
	ep := data[0].(map[string]any)
	assert.Equal(t, "Secrets", ep["name"])

	l = js(t, get(t, h, load("series", "create_link", activeMAC, "cmd", ep["cmd"].(string))))
	assert.Equal(t, "http://src/dark101.mkv", l["cmd"])
	assert.Equal(t, strconv.FormatInt(eid, 10), l["id"])
}
