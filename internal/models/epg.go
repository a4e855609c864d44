package models

import "time"

// EPGChannel maps an external XMLTV channel id onto a catalog stream.
// There is at most one EPGChannel per stream.
type EPGChannel struct {
	ID        int64   `json:"id,omitempty"`
	ChannelID string  `json:"channel_id"`
	Name      string  `json:"name"`
	Icon      *string `json:"icon,omitempty"`
	StreamID  int64   `json:"stream_id"`
	SourceID  *int64  `json:"source_id,omitempty"`
}

// EPGProgram is one guide entry. (ChannelID, StartTime) is unique.
type EPGProgram struct {
	ID          int64     `json:"id,omitempty"`
	ChannelID   int64     `json:"channel_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// EPGSource is a configured XMLTV feed.
type EPGSource struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	URL        string     `json:"url"`
	Status     string     `json:"status"`
	LastImport *time.Time `json:"last_import,omitempty"`
}
