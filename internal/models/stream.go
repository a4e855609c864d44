package models

import "time"

// Stream is a live channel of the catalog.
type Stream struct {
	ID            int64      `json:"id,omitempty"`
	Name          string     `json:"name"`
	InputType     string     `json:"input_type"`
	InputURL      string     `json:"input_url"`
	Category      string     `json:"category"`
	Bouquet       *string    `json:"bouquet,omitempty"`
	ChannelNumber *int       `json:"channel_number,omitempty"`
	Status        string     `json:"status"`
	StreamIcon    *string    `json:"stream_icon,omitempty"`
	EPGChannelID  *string    `json:"epg_channel_id,omitempty"`
	DVREnabled    bool       `json:"dvr_enabled"`
	DVRDuration   int        `json:"dvr_duration"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// Playable reports whether players may see the stream.
func (s *Stream) Playable() bool {
	return s.Status == StreamLive || s.Status == StreamActive
}

// Category is a row of live_categories, vod_categories or series_categories.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
