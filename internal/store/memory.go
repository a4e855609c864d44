package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/may5ra/server-stream-one/internal/models"
)

type programKey struct {
	channelID int64
	start     int64
}

// Memory is an in-process Store used for demos (DATABASE_URL=memory://)
// and as the fixture backend in tests. All methods are safe for
// concurrent use.
type Memory struct {
	mu sync.RWMutex

	nextID int64

	users            []models.StreamingUser
	liveCategories   []models.Category
	streams          []models.Stream
	vodCategories    []models.Category
	vod              []models.VodContent
	seriesCategories []models.Category
	series           []models.Series
	episodes         []models.SeriesEpisode
	epgChannels      []models.EPGChannel
	programs         map[programKey]models.EPGProgram
	sources          []models.EPGSource
	settings         map[string]string
}

// NewMemory returns an empty catalog.
func NewMemory() *Memory {
	return &Memory{
		programs: make(map[programKey]models.EPGProgram),
		settings: make(map[string]string),
	}
}

func (m *Memory) id(v int64) int64 {
	if v != 0 {
		if v > m.nextID {
			m.nextID = v
		}
		return v
	}
	m.nextID++
	return m.nextID
}

// --- fixtures ---

// PutUser adds a user and returns its id.
func (m *Memory) PutUser(u models.StreamingUser) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.id(u.ID)
	m.users = append(m.users, u)
	return u.ID
}

// PutLiveCategory adds a live_categories row.
func (m *Memory) PutLiveCategory(c models.Category) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id(c.ID)
	m.liveCategories = append(m.liveCategories, c)
	return c.ID
}

// PutVodCategory adds a vod_categories row.
func (m *Memory) PutVodCategory(c models.Category) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id(c.ID)
	m.vodCategories = append(m.vodCategories, c)
	return c.ID
}

// PutSeriesCategory adds a series_categories row.
func (m *Memory) PutSeriesCategory(c models.Category) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id(c.ID)
	m.seriesCategories = append(m.seriesCategories, c)
	return c.ID
}

// PutVod adds a movie.
func (m *Memory) PutVod(v models.VodContent) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = m.id(v.ID)
	m.vod = append(m.vod, v)
	return v.ID
}

// PutSeries adds a series.
func (m *Memory) PutSeries(s models.Series) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id(s.ID)
	m.series = append(m.series, s)
	return s.ID
}

// PutEpisode adds an episode.
func (m *Memory) PutEpisode(e models.SeriesEpisode) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id(e.ID)
	m.episodes = append(m.episodes, e)
	return e.ID
}

// PutEPGSource adds an epg_sources row.
func (m *Memory) PutEPGSource(s models.EPGSource) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id(s.ID)
	m.sources = append(m.sources, s)
	return s.ID
}

// EPGSource returns a source row by id.
func (m *Memory) EPGSource(id int64) (models.EPGSource, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sources {
		if s.ID == id {
			return s, true
		}
	}
	return models.EPGSource{}, false
}

// SetPanelSetting sets a panel_settings row.
func (m *Memory) SetPanelSetting(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
}

// --- users ---

func (m *Memory) GetUserByCredentials(_ context.Context, username, password string) (*models.StreamingUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username && u.Password == password {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetUserByMAC(_ context.Context, mac string) (*models.StreamingUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.MACAddress != nil && models.NormalizeMAC(*u.MACAddress) == mac {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) TouchUserLastActive(_ context.Context, userID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == userID {
			m.users[i].LastActive = &at
			return nil
		}
	}
	return ErrNotFound
}

// --- live ---

func (m *Memory) ListLiveCategories(context.Context) ([]models.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedCategories(m.liveCategories), nil
}

func (m *Memory) ListStreams(_ context.Context, f StreamFilter) ([]models.Stream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Stream, 0, len(m.streams))
	for _, s := range m.streams {
		if f.PlayableOnly && !s.Playable() {
			continue
		}
		if f.Category != "" && s.Category != f.Category {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ChannelNumber, out[j].ChannelNumber
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetStreamByID(_ context.Context, id int64) (*models.Stream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.streams {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetStreamByName(_ context.Context, name string) (*models.Stream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.streams {
		if s.Name == name {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindStreamByNameOrURL(_ context.Context, name, inputURL string) (*models.Stream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.streams {
		if s.Name == name || (inputURL != "" && s.InputURL == inputURL) {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateStream(_ context.Context, s *models.Stream) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := *s
	row.ID = m.id(row.ID)
	if row.CreatedAt == nil {
		now := time.Now().UTC()
		row.CreatedAt = &now
	}
	m.streams = append(m.streams, row)
	s.ID = row.ID
	return row.ID, nil
}

func (m *Memory) UpdateStream(_ context.Context, s *models.Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.streams {
		if m.streams[i].ID == s.ID {
			created := m.streams[i].CreatedAt
			m.streams[i] = *s
			m.streams[i].CreatedAt = created
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) SetStreamEPGChannelID(_ context.Context, streamID int64, epgChannelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.streams {
		if m.streams[i].ID == streamID {
			m.streams[i].EPGChannelID = &epgChannelID
			return nil
		}
	}
	return ErrNotFound
}

// --- vod / series ---

func (m *Memory) ListVodCategories(context.Context) ([]models.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedCategories(m.vodCategories), nil
}

func (m *Memory) ListVod(_ context.Context, categoryID *int64) ([]models.VodContent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.VodContent, 0, len(m.vod))
	for _, v := range m.vod {
		if categoryID != nil && (v.CategoryID == nil || *v.CategoryID != *categoryID) {
			continue
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (m *Memory) GetVod(_ context.Context, id int64) (*models.VodContent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.vod {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListSeriesCategories(context.Context) ([]models.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedCategories(m.seriesCategories), nil
}

func (m *Memory) ListSeries(_ context.Context, categoryID *int64) ([]models.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Series, 0, len(m.series))
	for _, s := range m.series {
		if categoryID != nil && (s.CategoryID == nil || *s.CategoryID != *categoryID) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (m *Memory) GetSeries(_ context.Context, id int64) (*models.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.series {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListEpisodes(_ context.Context, seriesID int64) ([]models.SeriesEpisode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.SeriesEpisode
	for _, e := range m.episodes {
		if e.SeriesID == seriesID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].EpisodeNum < out[j].EpisodeNum
	})
	return out, nil
}

func (m *Memory) GetEpisode(_ context.Context, id int64) (*models.SeriesEpisode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.episodes {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

// --- epg ---

func (m *Memory) UpsertEPGChannel(_ context.Context, ch *models.EPGChannel) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.epgChannels {
		if m.epgChannels[i].StreamID == ch.StreamID {
			id := m.epgChannels[i].ID
			m.epgChannels[i] = *ch
			m.epgChannels[i].ID = id
			ch.ID = id
			return id, nil
		}
	}
	row := *ch
	row.ID = m.id(0)
	m.epgChannels = append(m.epgChannels, row)
	ch.ID = row.ID
	return row.ID, nil
}

func (m *Memory) InsertEPGPrograms(_ context.Context, programs []models.EPGProgram) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range programs {
		k := programKey{channelID: p.ChannelID, start: p.StartTime.UnixNano()}
		if _, dup := m.programs[k]; dup {
			continue
		}
		p.ID = m.id(0)
		m.programs[k] = p
		n++
	}
	return n, nil
}

func (m *Memory) GetEPGChannelByStream(_ context.Context, streamID int64) (*models.EPGChannel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.epgChannels {
		if ch.StreamID == streamID {
			return &ch, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListEPGPrograms(_ context.Context, channelID int64, from, to time.Time, limit int) ([]models.EPGProgram, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.EPGProgram
	for _, p := range m.programs {
		if p.ChannelID != channelID || !p.EndTime.After(from) || !p.StartTime.Before(to) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) UpdateEPGSourceStatus(_ context.Context, sourceID int64, status string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sources {
		if m.sources[i].ID == sourceID {
			m.sources[i].Status = status
			m.sources[i].LastImport = &at
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ListPanelSettings(context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}

func sortedCategories(in []models.Category) []models.Category {
	out := append([]models.Category(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
