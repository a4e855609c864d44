package models

// Input types of a live Stream.
const (
	InputRTMP = "rtmp"
	InputRTSP = "rtsp"
	InputSRT  = "srt"
	InputHLS  = "hls"
	InputMPD  = "mpd"
	InputUDP  = "udp"
)

// Stream status values. Only live/active streams are exposed to players.
const (
	StreamLive        = "live"
	StreamActive      = "active"
	StreamInactive    = "inactive"
	StreamError       = "error"
	StreamTranscoding = "transcoding"
)

// Streaming user status values.
const (
	UserActive   = "active"
	UserDisabled = "disabled"
	UserBanned   = "banned"
)

// EPG source status values.
const (
	EPGSourceOK    = "success"
	EPGSourceError = "error"
)
