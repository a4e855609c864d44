package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/may5ra/server-stream-one/internal/models"
)

func ptr[T any](v T) *T { return &v }

var _ Store = (*Memory)(nil)
var _ Store = (*Postgres)(nil)
var _ Store = (*CachedStore)(nil)

func TestMemory_Users(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id := m.PutUser(models.StreamingUser{Username: "u1", Password: "p1", MACAddress: ptr("00:1a:79:AA:bb:cc")})

	u, err := m.GetUserByCredentials(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	_, err = m.GetUserByCredentials(ctx, "u1", "P1")
	assert.ErrorIs(t, err, ErrNotFound)

	u, err = m.GetUserByMAC(ctx, "001A79AABBCC")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.Username)

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.TouchUserLastActive(ctx, id, at))
	u, _ = m.GetUserByCredentials(ctx, "u1", "p1")
	require.NotNil(t, u.LastActive)
	assert.True(t, at.Equal(*u.LastActive))
}

func TestMemory_Streams(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	mk := func(name string, num *int, status string) int64 {
		id, err := m.CreateStream(ctx, &models.Stream{Name: name, InputURL: "http://x/" + name, Category: "News", ChannelNumber: num, Status: status})
		require.NoError(t, err)
		return id
	}
	c := mk("C", nil, models.StreamLive)
	b := mk("B", ptr(2), models.StreamActive)
	a := mk("A", ptr(1), models.StreamLive)
	mk("Off", ptr(0), models.StreamInactive)

	got, err := m.ListStreams(ctx, StreamFilter{PlayableOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{a, b, c}, []int64{got[0].ID, got[1].ID, got[2].ID})

	all, err := m.ListStreams(ctx, StreamFilter{Category: "News"})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	none, err := m.ListStreams(ctx, StreamFilter{Category: "Sport"})
	require.NoError(t, err)
	assert.Empty(t, none)

	s, err := m.FindStreamByNameOrURL(ctx, "nope", "http://x/B")
	require.NoError(t, err)
	assert.Equal(t, b, s.ID)

	s.Name = "B2"
	require.NoError(t, m.UpdateStream(ctx, s))
	s, err = m.GetStreamByName(ctx, "B2")
	require.NoError(t, err)
	assert.NotNil(t, s.CreatedAt)

	require.NoError(t, m.SetStreamEPGChannelID(ctx, b, "b.tv"))
	s, _ = m.GetStreamByID(ctx, b)
	assert.Equal(t, "b.tv", *s.EPGChannelID)

	assert.ErrorIs(t, m.UpdateStream(ctx, &models.Stream{ID: 999}), ErrNotFound)
}

func TestMemory_EPG(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	sid, _ := m.CreateStream(ctx, &models.Stream{Name: "S"})

	ch := &models.EPGChannel{ChannelID: "s.tv", Name: "S", StreamID: sid}
	id1, err := m.UpsertEPGChannel(ctx, ch)
	require.NoError(t, err)
	id2, err := m.UpsertEPGChannel(ctx, &models.EPGChannel{ChannelID: "s2.tv", Name: "S", StreamID: sid})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	got, err := m.GetEPGChannelByStream(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "s2.tv", got.ChannelID)

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	progs := []models.EPGProgram{
		{ChannelID: id1, Title: "one", StartTime: base, EndTime: base.Add(time.Hour)},
		{ChannelID: id1, Title: "two", StartTime: base.Add(time.Hour), EndTime: base.Add(2 * time.Hour)},
		{ChannelID: id1, Title: "three", StartTime: base.Add(2 * time.Hour), EndTime: base.Add(3 * time.Hour)},
	}
	n, err := m.InsertEPGPrograms(ctx, progs)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	n, err = m.InsertEPGPrograms(ctx, progs)
	require.NoError(t, err)
	assert.Zero(t, n)

	list, err := m.ListEPGPrograms(ctx, id1, base.Add(30*time.Minute), base.Add(24*time.Hour), 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "one", list[0].Title)
	assert.Equal(t, "two", list[1].Title)

	src := m.PutEPGSource(models.EPGSource{Name: "guide", URL: "http://g"})
	require.NoError(t, m.UpdateEPGSourceStatus(ctx, src, models.EPGSourceOK, base))
	row, ok := m.EPGSource(src)
	require.True(t, ok)
	assert.Equal(t, models.EPGSourceOK, row.Status)
}

func TestMemory_VodSeriesSettings(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	cat := m.PutVodCategory(models.Category{Name: "Action"})
	m.PutVod(models.VodContent{Name: "b movie", CategoryID: &cat})
	m.PutVod(models.VodContent{Name: "A movie"})

	all, err := m.ListVod(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A movie", all[0].Name)
	inCat, err := m.ListVod(ctx, &cat)
	require.NoError(t, err)
	require.Len(t, inCat, 1)

	sid := m.PutSeries(models.Series{Name: "Show"})
	m.PutEpisode(models.SeriesEpisode{SeriesID: sid, Season: 2, EpisodeNum: 1})
	m.PutEpisode(models.SeriesEpisode{SeriesID: sid, Season: 1, EpisodeNum: 2})
	m.PutEpisode(models.SeriesEpisode{SeriesID: sid, Season: 1, EpisodeNum: 1})
	eps, err := m.ListEpisodes(ctx, sid)
	require.NoError(t, err)
	require.Len(t, eps, 3)
	assert.Equal(t, [2]int{1, 1}, [2]int{eps[0].Season, eps[0].EpisodeNum})
	assert.Equal(t, [2]int{2, 1}, [2]int{eps[2].Season, eps[2].EpisodeNum})

	m.SetPanelSetting("server_domain", "tv.example.com")
	kv, err := m.ListPanelSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tv.example.com", kv["server_domain"])
}
