package stalker

import (
	"strconv"
	"strings"

	"github.com/may5ra/server-stream-one/internal/models"
)

const (
	vodCmdPrefix     = "ffrt http://localhost/vod/"
	episodeCmdPrefix = "ffrt http://localhost/episode/"
)

// categoryFilter parses the category parameter. "*" and "" select all.
func categoryFilter(raw string) (*int64, bool) {
	if raw == "" || raw == "*" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func idString(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func ratingString(r *float64) string {
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}

func (h *Handler) vodCategories(req *request) (any, error) {
	u, err := h.user(req)
	if err != nil || u == nil {
		return genres(nil), err
	}
	cats, err := h.store.ListVodCategories(req.ctx)
	if err != nil {
		return nil, err
	}
	return genres(cats), nil
}

func (h *Handler) vodList(req *request) (any, error) {
	u, err := h.user(req)
	if err != nil || u == nil {
		return emptyPage(), err
	}
	catID, ok := categoryFilter(req.params.Get("category"))
	if !ok {
		return emptyPage(), nil
	}
	rows, err := h.store.ListVod(req.ctx, catID)
	if err != nil {
		return nil, err
	}
	items := make([]movie, 0, len(rows))
	for i := range rows {
		v := &rows[i]
		id := strconv.FormatInt(v.ID, 10)
		items = append(items, movie{
			ID:            id,
			Name:          v.Name,
			Description:   deref(v.Plot),
			Director:      deref(v.Director),
			Actors:        deref(v.Cast),
			Year:          deref(v.ReleaseDate),
			RatingIMDB:    ratingString(v.Rating),
			ScreenshotURI: deref(v.Cover),
			GenresStr:     deref(v.Genre),
			Time:          deref(v.Duration),
			CategoryID:    idString(v.CategoryID),
			Cmd:           vodCmdPrefix + id,
		})
	}
	pageNum, size := pagination(req.params)
	return paginate(items, pageNum, size), nil
}

func (h *Handler) vodLink(req *request) (any, error) {
	u, err := h.user(req)
	if err != nil || u == nil {
		return link{}, err
	}
	id, ok := cmdID(req.params.Get("cmd"))
	if !ok {
		return link{}, nil
	}
	v, err := h.store.GetVod(req.ctx, id)
	if err != nil {
		if isNotFound(err) {
			return link{}, nil
		}
		return nil, err
	}
	return link{ID: strconv.FormatInt(v.ID, 10), Cmd: v.StreamURL}, nil
}

func (h *Handler) seriesCategories(req *request) (any, error) {
	u, err := h.user(req)
	if err != nil || u == nil {
		return genres(nil), err
	}
	cats, err := h.store.ListSeriesCategories(req.ctx)
	if err != nil {
		return nil, err
	}
	return genres(cats), nil
}

// seriesList lists the series of a category, or the episodes of one
// series when movie_id is given ("12" or "12:season").
func (h *Handler) seriesList(req *request) (any, error) {
	u, err := h.user(req)
	if err != nil || u == nil {
		return emptyPage(), err
	}
	pageNum, size := pagination(req.params)

	if raw := req.params.Get("movie_id"); raw != "" {
		seriesID, err := strconv.ParseInt(strings.SplitN(raw, ":", 2)[0], 10, 64)
		if err != nil {
			return emptyPage(), nil
		}
		eps, err := h.store.ListEpisodes(req.ctx, seriesID)
		if err != nil {
			return nil, err
		}
		return paginate(episodeItems(eps), pageNum, size), nil
	}

	catID, ok := categoryFilter(req.params.Get("category"))
	if !ok {
		return emptyPage(), nil
	}
	rows, err := h.store.ListSeries(req.ctx, catID)
	if err != nil {
		return nil, err
	}
	items := make([]movie, 0, len(rows))
	for i := range rows {
		s := &rows[i]
		items = append(items, movie{
			ID:            strconv.FormatInt(s.ID, 10),
			Name:          s.Name,
			Description:   deref(s.Plot),
			Director:      deref(s.Director),
			Actors:        deref(s.Cast),
			Year:          deref(s.ReleaseDate),
			RatingIMDB:    ratingString(s.Rating),
			ScreenshotURI: deref(s.Cover),
			GenresStr:     deref(s.Genre),
			Time:          deref(s.EpisodeRunTime),
			CategoryID:    idString(s.CategoryID),
			IsSeries:      1,
		})
	}
	return paginate(items, pageNum, size), nil
}

func episodeItems(eps []models.SeriesEpisode) []episodeItem {
	out := make([]episodeItem, 0, len(eps))
	for i := range eps {
		e := &eps[i]
		id := strconv.FormatInt(e.ID, 10)
		out = append(out, episodeItem{
			ID:            id,
			Name:          e.Title,
			SeriesNumber:  e.EpisodeNum,
			SeasonNumber:  e.Season,
			Description:   deref(e.Plot),
			ScreenshotURI: deref(e.Cover),
			Time:          deref(e.Duration),
			Cmd:           episodeCmdPrefix + id,
		})
	}
	return out
}

func (h *Handler) episodeLink(req *request) (any, error) {
	u, err := h.user(req)
	if err != nil || u == nil {
		return link{}, err
	}
	id, ok := cmdID(req.params.Get("cmd"))
	if !ok {
		return link{}, nil
	}
	e, err := h.store.GetEpisode(req.ctx, id)
	if err != nil {
		if isNotFound(err) {
			return link{}, nil
		}
		return nil, err
	}
	return link{ID: strconv.FormatInt(e.ID, 10), Cmd: e.StreamURL}, nil
}
