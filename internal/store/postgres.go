package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/may5ra/server-stream-one/internal/models"
)

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Ping checks the connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func notFound(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// --- users ---

const userColumns = `id, username, password, COALESCE(status, 'active'), expiry_date,
	COALESCE(max_connections, 1), mac_address, bouquets, last_active, created_at`

func scanUser(row pgx.Row) (*models.StreamingUser, error) {
	var u models.StreamingUser
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Status, &u.ExpiryDate,
		&u.MaxConnections, &u.MACAddress, &u.Bouquets, &u.LastActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *Postgres) GetUserByCredentials(ctx context.Context, username, password string) (*models.StreamingUser, error) {
	u, err := scanUser(p.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM streaming_users WHERE username = $1 AND password = $2`,
		username, password))
	if err != nil {
		return nil, notFound("GetUserByCredentials", err)
	}
	return u, nil
}

func (p *Postgres) GetUserByMAC(ctx context.Context, mac string) (*models.StreamingUser, error) {
	u, err := scanUser(p.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM streaming_users
		 WHERE upper(replace(replace(mac_address, ':', ''), '-', '')) = $1
		 ORDER BY id LIMIT 1`,
		mac))
	if err != nil {
		return nil, notFound("GetUserByMAC", err)
	}
	return u, nil
}

func (p *Postgres) TouchUserLastActive(ctx context.Context, userID int64, at time.Time) error {
	_, err := p.pool.Exec(ctx, `UPDATE streaming_users SET last_active = $2 WHERE id = $1`, userID, at)
	if err != nil {
		return fmt.Errorf("TouchUserLastActive: %w", err)
	}
	return nil
}

// --- categories ---

func (p *Postgres) listCategories(ctx context.Context, table string) ([]models.Category, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, name FROM `+table+` ORDER BY COALESCE(sort_order, 0), id`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	cats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Category, error) {
		var c models.Category
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", table, err)
	}
	return cats, nil
}

func (p *Postgres) ListLiveCategories(ctx context.Context) ([]models.Category, error) {
	return p.listCategories(ctx, "live_categories")
}

func (p *Postgres) ListVodCategories(ctx context.Context) ([]models.Category, error) {
	return p.listCategories(ctx, "vod_categories")
}

func (p *Postgres) ListSeriesCategories(ctx context.Context) ([]models.Category, error) {
	return p.listCategories(ctx, "series_categories")
}

// --- streams ---

const streamColumns = `id, name, input_type, input_url, COALESCE(category, ''), bouquet, channel_number,
	status, stream_icon, epg_channel_id, COALESCE(dvr_enabled, false), COALESCE(dvr_duration, 0), created_at`

func scanStream(row pgx.Row) (models.Stream, error) {
	var s models.Stream
	err := row.Scan(&s.ID, &s.Name, &s.InputType, &s.InputURL, &s.Category, &s.Bouquet, &s.ChannelNumber,
		&s.Status, &s.StreamIcon, &s.EPGChannelID, &s.DVREnabled, &s.DVRDuration, &s.CreatedAt)
	return s, err
}

func (p *Postgres) ListStreams(ctx context.Context, f StreamFilter) ([]models.Stream, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+streamColumns+` FROM streams
		 WHERE ($1 = '' OR category = $1)
		   AND (NOT $2 OR status IN ('live', 'active'))
		 ORDER BY channel_number NULLS LAST, id`,
		f.Category, f.PlayableOnly)
	if err != nil {
		return nil, fmt.Errorf("ListStreams: %w", err)
	}
	streams, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Stream, error) {
		return scanStream(row)
	})
	if err != nil {
		return nil, fmt.Errorf("ListStreams scan: %w", err)
	}
	return streams, nil
}

func (p *Postgres) getStream(ctx context.Context, op, where string, args ...any) (*models.Stream, error) {
	s, err := scanStream(p.pool.QueryRow(ctx, `SELECT `+streamColumns+` FROM streams WHERE `+where+` ORDER BY id LIMIT 1`, args...))
	if err != nil {
		return nil, notFound(op, err)
	}
	return &s, nil
}

func (p *Postgres) GetStreamByID(ctx context.Context, id int64) (*models.Stream, error) {
	return p.getStream(ctx, "GetStreamByID", `id = $1`, id)
}

func (p *Postgres) GetStreamByName(ctx context.Context, name string) (*models.Stream, error) {
	return p.getStream(ctx, "GetStreamByName", `name = $1`, name)
}

func (p *Postgres) FindStreamByNameOrURL(ctx context.Context, name, inputURL string) (*models.Stream, error) {
	return p.getStream(ctx, "FindStreamByNameOrURL", `name = $1 OR ($2 <> '' AND input_url = $2)`, name, inputURL)
}

func (p *Postgres) CreateStream(ctx context.Context, s *models.Stream) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO streams (name, input_type, input_url, category, bouquet, channel_number, status,
		   stream_icon, epg_channel_id, dvr_enabled, dvr_duration)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id`,
		s.Name, s.InputType, s.InputURL, s.Category, s.Bouquet, s.ChannelNumber, s.Status,
		s.StreamIcon, s.EPGChannelID, s.DVREnabled, s.DVRDuration,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateStream: %w", err)
	}
	s.ID = id
	return id, nil
}

func (p *Postgres) UpdateStream(ctx context.Context, s *models.Stream) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE streams SET name = $2, input_type = $3, input_url = $4, category = $5, bouquet = $6,
		   channel_number = $7, status = $8, stream_icon = $9, epg_channel_id = $10,
		   dvr_enabled = $11, dvr_duration = $12
		 WHERE id = $1`,
		s.ID, s.Name, s.InputType, s.InputURL, s.Category, s.Bouquet, s.ChannelNumber, s.Status,
		s.StreamIcon, s.EPGChannelID, s.DVREnabled, s.DVRDuration,
	)
	if err != nil {
		return fmt.Errorf("UpdateStream: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SetStreamEPGChannelID(ctx context.Context, streamID int64, epgChannelID string) error {
	_, err := p.pool.Exec(ctx, `UPDATE streams SET epg_channel_id = $2 WHERE id = $1`, streamID, epgChannelID)
	if err != nil {
		return fmt.Errorf("SetStreamEPGChannelID: %w", err)
	}
	return nil
}

// --- vod ---

const vodColumns = `id, name, category_id, stream_url, cover, plot, "cast", director, genre, release_date,
	rating, duration, tmdb_id, backdrop_path, COALESCE(container_extension, 'mp4'), created_at`

func scanVod(row pgx.Row) (models.VodContent, error) {
	var v models.VodContent
	err := row.Scan(&v.ID, &v.Name, &v.CategoryID, &v.StreamURL, &v.Cover, &v.Plot, &v.Cast, &v.Director,
		&v.Genre, &v.ReleaseDate, &v.Rating, &v.Duration, &v.TMDBID, &v.BackdropPath, &v.ContainerExtension, &v.CreatedAt)
	return v, err
}

func (p *Postgres) ListVod(ctx context.Context, categoryID *int64) ([]models.VodContent, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+vodColumns+` FROM vod_content WHERE ($1::bigint IS NULL OR category_id = $1) ORDER BY lower(name), id`,
		categoryID)
	if err != nil {
		return nil, fmt.Errorf("ListVod: %w", err)
	}
	vod, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.VodContent, error) {
		return scanVod(row)
	})
	if err != nil {
		return nil, fmt.Errorf("ListVod scan: %w", err)
	}
	return vod, nil
}

func (p *Postgres) GetVod(ctx context.Context, id int64) (*models.VodContent, error) {
	v, err := scanVod(p.pool.QueryRow(ctx, `SELECT `+vodColumns+` FROM vod_content WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("GetVod", err)
	}
	return &v, nil
}

// --- series ---

const seriesColumns = `id, name, category_id, cover, plot, "cast", director, genre, release_date, rating,
	backdrop_path, youtube_trailer, episode_run_time, last_modified`

func scanSeries(row pgx.Row) (models.Series, error) {
	var s models.Series
	err := row.Scan(&s.ID, &s.Name, &s.CategoryID, &s.Cover, &s.Plot, &s.Cast, &s.Director, &s.Genre,
		&s.ReleaseDate, &s.Rating, &s.BackdropPath, &s.YoutubeTrailer, &s.EpisodeRunTime, &s.LastModified)
	return s, err
}

func (p *Postgres) ListSeries(ctx context.Context, categoryID *int64) ([]models.Series, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+seriesColumns+` FROM series WHERE ($1::bigint IS NULL OR category_id = $1) ORDER BY lower(name), id`,
		categoryID)
	if err != nil {
		return nil, fmt.Errorf("ListSeries: %w", err)
	}
	series, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Series, error) {
		return scanSeries(row)
	})
	if err != nil {
		return nil, fmt.Errorf("ListSeries scan: %w", err)
	}
	return series, nil
}

func (p *Postgres) GetSeries(ctx context.Context, id int64) (*models.Series, error) {
	s, err := scanSeries(p.pool.QueryRow(ctx, `SELECT `+seriesColumns+` FROM series WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("GetSeries", err)
	}
	return &s, nil
}

const episodeColumns = `id, series_id, season, episode_num, COALESCE(title, ''), stream_url,
	COALESCE(container_extension, 'mp4'), plot, duration, cover, created_at`

func scanEpisode(row pgx.Row) (models.SeriesEpisode, error) {
	var e models.SeriesEpisode
	err := row.Scan(&e.ID, &e.SeriesID, &e.Season, &e.EpisodeNum, &e.Title, &e.StreamURL,
		&e.ContainerExtension, &e.Plot, &e.Duration, &e.Cover, &e.CreatedAt)
	return e, err
}

func (p *Postgres) ListEpisodes(ctx context.Context, seriesID int64) ([]models.SeriesEpisode, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+episodeColumns+` FROM series_episodes WHERE series_id = $1 ORDER BY season, episode_num, id`,
		seriesID)
	if err != nil {
		return nil, fmt.Errorf("ListEpisodes: %w", err)
	}
	eps, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.SeriesEpisode, error) {
		return scanEpisode(row)
	})
	if err != nil {
		return nil, fmt.Errorf("ListEpisodes scan: %w", err)
	}
	return eps, nil
}

func (p *Postgres) GetEpisode(ctx context.Context, id int64) (*models.SeriesEpisode, error) {
	e, err := scanEpisode(p.pool.QueryRow(ctx, `SELECT `+episodeColumns+` FROM series_episodes WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("GetEpisode", err)
	}
	return &e, nil
}

// --- epg ---

func (p *Postgres) UpsertEPGChannel(ctx context.Context, ch *models.EPGChannel) (int64, error) {
	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO epg_channels (channel_id, name, icon, stream_id, source_id)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (stream_id) DO UPDATE SET
		   channel_id = EXCLUDED.channel_id, name = EXCLUDED.name,
		   icon = EXCLUDED.icon, source_id = COALESCE(EXCLUDED.source_id, epg_channels.source_id)
		 RETURNING id`,
		ch.ChannelID, ch.Name, ch.Icon, ch.StreamID, ch.SourceID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("UpsertEPGChannel: %w", err)
	}
	ch.ID = id
	return id, nil
}

// InsertEPGPrograms inserts a batch in one statement via unnest.
func (p *Postgres) InsertEPGPrograms(ctx context.Context, programs []models.EPGProgram) (int64, error) {
	if len(programs) == 0 {
		return 0, nil
	}
	channelIDs := make([]int64, len(programs))
	titles := make([]string, len(programs))
	descs := make([]*string, len(programs))
	starts := make([]time.Time, len(programs))
	ends := make([]time.Time, len(programs))
	for i, pr := range programs {
		channelIDs[i] = pr.ChannelID
		titles[i] = pr.Title
		descs[i] = pr.Description
		starts[i] = pr.StartTime
		ends[i] = pr.EndTime
	}
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO epg_programs (channel_id, title, description, start_time, end_time)
		 SELECT * FROM unnest($1::bigint[], $2::text[], $3::text[], $4::timestamptz[], $5::timestamptz[])
		 ON CONFLICT (channel_id, start_time) DO NOTHING`,
		channelIDs, titles, descs, starts, ends,
	)
	if err != nil {
		return 0, fmt.Errorf("InsertEPGPrograms: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) GetEPGChannelByStream(ctx context.Context, streamID int64) (*models.EPGChannel, error) {
	var ch models.EPGChannel
	err := p.pool.QueryRow(ctx,
		`SELECT id, channel_id, COALESCE(name, ''), icon, stream_id, source_id FROM epg_channels WHERE stream_id = $1`,
		streamID,
	).Scan(&ch.ID, &ch.ChannelID, &ch.Name, &ch.Icon, &ch.StreamID, &ch.SourceID)
	if err != nil {
		return nil, notFound("GetEPGChannelByStream", err)
	}
	return &ch, nil
}

func (p *Postgres) ListEPGPrograms(ctx context.Context, channelID int64, from, to time.Time, limit int) ([]models.EPGProgram, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, channel_id, title, description, start_time, end_time FROM epg_programs
		 WHERE channel_id = $1 AND end_time > $2 AND start_time < $3
		 ORDER BY start_time
		 LIMIT $4`,
		channelID, from, to, lim)
	if err != nil {
		return nil, fmt.Errorf("ListEPGPrograms: %w", err)
	}
	programs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.EPGProgram, error) {
		var pr models.EPGProgram
		err := row.Scan(&pr.ID, &pr.ChannelID, &pr.Title, &pr.Description, &pr.StartTime, &pr.EndTime)
		return pr, err
	})
	if err != nil {
		return nil, fmt.Errorf("ListEPGPrograms scan: %w", err)
	}
	return programs, nil
}

func (p *Postgres) UpdateEPGSourceStatus(ctx context.Context, sourceID int64, status string, at time.Time) error {
	_, err := p.pool.Exec(ctx, `UPDATE epg_sources SET status = $2, last_import = $3 WHERE id = $1`, sourceID, status, at)
	if err != nil {
		return fmt.Errorf("UpdateEPGSourceStatus: %w", err)
	}
	return nil
}

// --- settings ---

func (p *Postgres) ListPanelSettings(ctx context.Context) (map[string]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT key, COALESCE(value, '') FROM panel_settings`)
	if err != nil {
		return nil, fmt.Errorf("ListPanelSettings: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("ListPanelSettings scan: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}
