package catalog

import "github.com/may5ra/server-stream-one/internal/models"

// Visible reports whether u may see s. Users without bouquets see every
// stream, and streams without a bouquet are visible to everyone.
func Visible(u *models.StreamingUser, s *models.Stream) bool {
	if u == nil || len(u.Bouquets) == 0 {
		return true
	}
	if s.Bouquet == nil || *s.Bouquet == "" {
		return true
	}
	for _, b := range u.Bouquets {
		if b == *s.Bouquet {
			return true
		}
	}
	return false
}

// FilterVisible keeps the streams u may see, preserving order.
func FilterVisible(u *models.StreamingUser, streams []models.Stream) []models.Stream {
	if u == nil || len(u.Bouquets) == 0 {
		return streams
	}
	out := make([]models.Stream, 0, len(streams))
	for i := range streams {
		if Visible(u, &streams[i]) {
			out = append(out, streams[i])
		}
	}
	return out
}
