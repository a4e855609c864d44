package store

import (
	"context"
	"errors"
	"time"

	"github.com/may5ra/server-stream-one/internal/models"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("store: not found")

// Store is the catalog as seen by the protocol adapters and importers.
// Rows are created by the admin panel; this side mostly reads them and
// only writes streams (M3U import), EPG data and a few status columns.
type Store interface {
	// GetUserByCredentials returns the user with exactly this username and password.
	GetUserByCredentials(ctx context.Context, username, password string) (*models.StreamingUser, error)
	// GetUserByMAC returns the user whose normalised MAC equals mac (already normalised).
	GetUserByMAC(ctx context.Context, mac string) (*models.StreamingUser, error)
	// TouchUserLastActive sets last_active.
	TouchUserLastActive(ctx context.Context, userID int64, at time.Time) error

	ListLiveCategories(ctx context.Context) ([]models.Category, error)
	// ListStreams returns streams ordered by channel number (unset last), then id.
	ListStreams(ctx context.Context, filter StreamFilter) ([]models.Stream, error)
	GetStreamByID(ctx context.Context, id int64) (*models.Stream, error)
	GetStreamByName(ctx context.Context, name string) (*models.Stream, error)
	// FindStreamByNameOrURL returns a stream whose name or input_url matches exactly.
	FindStreamByNameOrURL(ctx context.Context, name, inputURL string) (*models.Stream, error)
	CreateStream(ctx context.Context, s *models.Stream) (int64, error)
	UpdateStream(ctx context.Context, s *models.Stream) error
	SetStreamEPGChannelID(ctx context.Context, streamID int64, epgChannelID string) error

	ListVodCategories(ctx context.Context) ([]models.Category, error)
	ListVod(ctx context.Context, categoryID *int64) ([]models.VodContent, error)
	GetVod(ctx context.Context, id int64) (*models.VodContent, error)

	ListSeriesCategories(ctx context.Context) ([]models.Category, error)
	ListSeries(ctx context.Context, categoryID *int64) ([]models.Series, error)
	GetSeries(ctx context.Context, id int64) (*models.Series, error)
	// ListEpisodes returns episodes ordered by season, then episode number.
	ListEpisodes(ctx context.Context, seriesID int64) ([]models.SeriesEpisode, error)
	GetEpisode(ctx context.Context, id int64) (*models.SeriesEpisode, error)

	// UpsertEPGChannel inserts or replaces the mapping of ch.StreamID and returns its id.
	UpsertEPGChannel(ctx context.Context, ch *models.EPGChannel) (int64, error)
	// InsertEPGPrograms inserts programs, ignoring (channel_id, start_time)
	// duplicates. It returns the number of new rows.
	InsertEPGPrograms(ctx context.Context, programs []models.EPGProgram) (int64, error)
	GetEPGChannelByStream(ctx context.Context, streamID int64) (*models.EPGChannel, error)
	// ListEPGPrograms returns programs of channelID overlapping [from, to),
	// ordered by start time. limit <= 0 means no limit.
	ListEPGPrograms(ctx context.Context, channelID int64, from, to time.Time, limit int) ([]models.EPGProgram, error)
	UpdateEPGSourceStatus(ctx context.Context, sourceID int64, status string, at time.Time) error

	// ListPanelSettings returns the panel_settings key/value table.
	ListPanelSettings(ctx context.Context) (map[string]string, error)
}

// StreamFilter holds optional filters for listing streams.
type StreamFilter struct {
	// Category matches streams.category exactly when non-empty.
	Category string
	// PlayableOnly keeps live/active streams.
	PlayableOnly bool
}
