package models

import "time"

// VodContent is a single movie.
type VodContent struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	CategoryID         *int64     `json:"category_id,omitempty"`
	StreamURL          string     `json:"stream_url"`
	Cover              *string    `json:"cover,omitempty"`
	Plot               *string    `json:"plot,omitempty"`
	Cast               *string    `json:"cast,omitempty"`
	Director           *string    `json:"director,omitempty"`
	Genre              *string    `json:"genre,omitempty"`
	ReleaseDate        *string    `json:"release_date,omitempty"`
	Rating             *float64   `json:"rating,omitempty"`
	Duration           *string    `json:"duration,omitempty"`
	TMDBID             *string    `json:"tmdb_id,omitempty"`
	BackdropPath       *string    `json:"backdrop_path,omitempty"`
	ContainerExtension string     `json:"container_extension"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
}

// Series groups episodes under one show.
type Series struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	CategoryID     *int64     `json:"category_id,omitempty"`
	Cover          *string    `json:"cover,omitempty"`
	Plot           *string    `json:"plot,omitempty"`
	Cast           *string    `json:"cast,omitempty"`
	Director       *string    `json:"director,omitempty"`
	Genre          *string    `json:"genre,omitempty"`
	ReleaseDate    *string    `json:"release_date,omitempty"`
	Rating         *float64   `json:"rating,omitempty"`
	BackdropPath   *string    `json:"backdrop_path,omitempty"`
	YoutubeTrailer *string    `json:"youtube_trailer,omitempty"`
	EpisodeRunTime *string    `json:"episode_run_time,omitempty"`
	LastModified   *time.Time `json:"last_modified,omitempty"`
}

// SeriesEpisode is one playable episode of a Series.
type SeriesEpisode struct {
	ID                 int64      `json:"id"`
	SeriesID           int64      `json:"series_id"`
	Season             int        `json:"season"`
	EpisodeNum         int        `json:"episode_num"`
	Title              string     `json:"title"`
	StreamURL          string     `json:"stream_url"`
	ContainerExtension string     `json:"container_extension"`
	Plot               *string    `json:"plot,omitempty"`
	Duration           *string    `json:"duration,omitempty"`
	Cover              *string    `json:"cover,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
}
