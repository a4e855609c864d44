package stalker

import (
	"sort"
	"strconv"
	"strings"

	"github.com/may5ra/server-stream-one/internal/catalog"
	"github.com/may5ra/server-stream-one/internal/models"
)

// liveCmdPrefix is the cmd players send back to create_link; the portal
// never hands out upstream URLs in channel lists.
const liveCmdPrefix = "ffrt http://localhost/live/"

func genres(cats []models.Category) []genre {
	out := make([]genre, 0, len(cats)+1)
	out = append(out, genre{ID: "*", Title: "All", Alias: "all"})
	for _, c := range cats {
		out = append(out, genre{ID: strconv.FormatInt(c.ID, 10), Title: c.Name, Alias: alias(c.Name)})
	}
	return out
}

// liveGenres always leads with the "All" genre; an unknown MAC gets
// only that entry.
func (h *Handler) liveGenres(req *request) (any, error) {
	u, err := h.user(req)
	if err != nil || u == nil {
		return genres(nil), err
	}
	lineup, err := catalog.LiveLineup(req.ctx, h.store, u)
	if err != nil {
		return nil, err
	}
	return genres(lineup.Categories), nil
}

// allChannels returns the whole lineup in one page unless p is given.
func (h *Handler) allChannels(req *request) (any, error) {
	return h.channels(req, req.params.Get("p") != "")
}

func (h *Handler) orderedChannels(req *request) (any, error) {
	return h.channels(req, true)
}

func (h *Handler) channels(req *request, paged bool) (any, error) {
	u, err := h.user(req)
	if err != nil || u == nil {
		return emptyPage(), err
	}
	lineup, err := catalog.LiveLineup(req.ctx, h.store, u)
	if err != nil {
		return nil, err
	}
	streams := lineup.Streams
	if g := req.params.Get("genre"); g != "" && g != "*" {
		streams = lineup.InCategory(g)
	}

	items := make([]channel, 0, len(streams))
	for i := range streams {
		s := &streams[i]
		number := i + 1
		if s.ChannelNumber != nil {
			number = *s.ChannelNumber
		}
		id := strconv.FormatInt(s.ID, 10)
		items = append(items, channel{
			ID:             id,
			Name:           s.Name,
			Number:         strconv.Itoa(number),
			Cmd:            liveCmdPrefix + id,
			Logo:           deref(s.StreamIcon),
			TVGenreID:      catalog.CategoryID(lineup.Categories, s.Category),
			XMLTVID:        deref(s.EPGChannelID),
			UseHTTPTmpLink: "0",
			Archive:        boolInt(s.DVREnabled),
			ArchiveRange:   s.DVRDuration,
			Status:         1,
		})
	}
	if req.params.Get("sortby") == "name" {
		sort.SliceStable(items, func(i, j int) bool {
			return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
		})
	}

	if !paged {
		return page{TotalItems: len(items), MaxPageItems: len(items), CurPage: 1, Data: items}, nil
	}
	pageNum, size := pagination(req.params)
	return paginate(items, pageNum, size), nil
}

// liveLink returns the upstream URL of a channel. The stream must be
// playable and inside the caller's bouquets.
func (h *Handler) liveLink(req *request) (any, error) {
	u, err := h.user(req)
	if err != nil || u == nil {
		return link{}, err
	}
	id, ok := cmdID(req.params.Get("cmd"))
	if !ok {
		return link{}, nil
	}
	s, err := h.store.GetStreamByID(req.ctx, id)
	if err != nil {
		if isNotFound(err) {
			return link{}, nil
		}
		return nil, err
	}
	if !s.Playable() || !catalog.Visible(u, s) {
		return link{}, nil
	}
	return link{ID: strconv.FormatInt(s.ID, 10), Cmd: s.InputURL}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
