package m3u

import (
	"strings"

	"github.com/may5ra/server-stream-one/internal/models"
)

// DetectInputType classifies a source URL. Checks run in a fixed order and
// the first match wins, so "http://x/a@b/stream.m3u8" is udp.
func DetectInputType(rawURL string) string {
	u := strings.ToLower(strings.TrimSpace(rawURL))
	switch {
	case strings.HasPrefix(u, "rtmp://"):
		return models.InputRTMP
	case strings.HasPrefix(u, "rtsp://"):
		return models.InputRTSP
	case strings.HasPrefix(u, "srt://"):
		return models.InputSRT
	case strings.HasPrefix(u, "udp://") || strings.Contains(u, "@"):
		return models.InputUDP
	case strings.Contains(u, ".mpd") || strings.Contains(u, "/dash"):
		return models.InputMPD
	case strings.Contains(u, ".m3u8") || strings.Contains(u, "/hls/"):
		return models.InputHLS
	default:
		return models.InputHLS
	}
}
