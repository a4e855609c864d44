package xtream

import (
	"strconv"

	"github.com/may5ra/server-stream-one/internal/catalog"
	"github.com/may5ra/server-stream-one/internal/models"
)

func (h *Handler) liveCategories(req *request) (any, error) {
	lineup, err := catalog.LiveLineup(req.ctx, h.store, req.user)
	if err != nil {
		return nil, err
	}
	return categories(lineup.Categories), nil
}

func categories(cats []models.Category) []category {
	out := make([]category, 0, len(cats))
	for _, c := range cats {
		out = append(out, category{
			CategoryID:   strconv.FormatInt(c.ID, 10),
			CategoryName: c.Name,
			ParentID:     "0",
		})
	}
	return out
}

func (h *Handler) liveStreams(req *request) (any, error) {
	lineup, err := catalog.LiveLineup(req.ctx, h.store, req.user)
	if err != nil {
		return nil, err
	}
	cats, streams := lineup.Categories, lineup.Streams
	if id := req.params.Get("category_id"); id != "" {
		streams = lineup.InCategory(id)
	}

	output := req.params.Get("output")
	out := make([]liveStream, 0, len(streams))
	for i := range streams {
		s := &streams[i]
		num := i + 1
		if s.ChannelNumber != nil {
			num = *s.ChannelNumber
		}
		out = append(out, liveStream{
			Num:               num,
			Name:              s.Name,
			StreamType:        "live",
			StreamID:          strconv.FormatInt(s.ID, 10),
			StreamIcon:        deref(s.StreamIcon),
			EPGChannelID:      deref(s.EPGChannelID),
			Added:             unixString(s.CreatedAt),
			CategoryID:        catalog.CategoryID(cats, s.Category),
			TVArchive:         boolInt(s.DVREnabled),
			DirectSource:      h.resolver.LiveURL(req.origin, req.user.Username, req.password, s, output),
			TVArchiveDuration: s.DVRDuration,
		})
	}
	return out, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
