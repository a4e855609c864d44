package xtream

import (
	"errors"
	"sort"
	"strconv"

	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
	"github.com/may5ra/server-stream-one/internal/streamurl"
)

func (h *Handler) vodCategories(req *request) (any, error) {
	cats, err := h.store.ListVodCategories(req.ctx)
	if err != nil {
		return nil, err
	}
	return categories(cats), nil
}

func (h *Handler) vodStreams(req *request) (any, error) {
	catID, ok := optionalID(req.params, "category_id")
	if !ok {
		return []vodStream{}, nil
	}
	items, err := h.store.ListVod(req.ctx, catID)
	if err != nil {
		return nil, err
	}
	out := make([]vodStream, 0, len(items))
	for i := range items {
		v := &items[i]
		r, r5 := rating(v.Rating)
		out = append(out, vodStream{
			Num:                i + 1,
			Name:               v.Name,
			StreamType:         "movie",
			StreamID:           strconv.FormatInt(v.ID, 10),
			StreamIcon:         deref(v.Cover),
			Rating:             r,
			Rating5Based:       r5,
			Added:              unixString(v.CreatedAt),
			CategoryID:         idString(v.CategoryID),
			ContainerExtension: streamurl.Extension(v.ContainerExtension),
			DirectSource:       h.resolver.MovieURL(req.origin, req.user.Username, req.password, v),
		})
	}
	return out, nil
}

func (h *Handler) vodInfo(req *request) (any, error) {
	empty := vodInfoResponse{Info: struct{}{}, MovieData: struct{}{}}
	id, err := strconv.ParseInt(req.params.Get("vod_id"), 10, 64)
	if err != nil {
		return empty, nil
	}
	v, err := h.store.GetVod(req.ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return nil, err
	}

	r, _ := rating(v.Rating)
	return vodInfoResponse{
		Info: vodInfo{
			MovieImage:   deref(v.Cover),
			BackdropPath: backdrops(v.BackdropPath),
			TMDBID:       deref(v.TMDBID),
			Name:         v.Name,
			Plot:         deref(v.Plot),
			Cast:         deref(v.Cast),
			Director:     deref(v.Director),
			Genre:        deref(v.Genre),
			ReleaseDate:  deref(v.ReleaseDate),
			Rating:       r,
			Duration:     deref(v.Duration),
		},
		MovieData: movieData{
			StreamID:           strconv.FormatInt(v.ID, 10),
			Name:               v.Name,
			Added:              unixString(v.CreatedAt),
			CategoryID:         idString(v.CategoryID),
			ContainerExtension: streamurl.Extension(v.ContainerExtension),
			DirectSource:       h.resolver.MovieURL(req.origin, req.user.Username, req.password, v),
		},
	}, nil
}

func backdrops(p *string) []string {
	if p == nil || *p == "" {
		return []string{}
	}
	return []string{*p}
}

func (h *Handler) seriesCategories(req *request) (any, error) {
	cats, err := h.store.ListSeriesCategories(req.ctx)
	if err != nil {
		return nil, err
	}
	return categories(cats), nil
}

func (h *Handler) series(req *request) (any, error) {
	catID, ok := optionalID(req.params, "category_id")
	if !ok {
		return []seriesItem{}, nil
	}
	items, err := h.store.ListSeries(req.ctx, catID)
	if err != nil {
		return nil, err
	}
	out := make([]seriesItem, 0, len(items))
	for i := range items {
		item := toSeriesItem(&items[i])
		item.Num = i + 1
		out = append(out, item)
	}
	return out, nil
}

func toSeriesItem(s *models.Series) seriesItem {
	r, r5 := rating(s.Rating)
	return seriesItem{
		Name:           s.Name,
		SeriesID:       strconv.FormatInt(s.ID, 10),
		Cover:          deref(s.Cover),
		Plot:           deref(s.Plot),
		Cast:           deref(s.Cast),
		Director:       deref(s.Director),
		Genre:          deref(s.Genre),
		ReleaseDate:    deref(s.ReleaseDate),
		LastModified:   unixString(s.LastModified),
		Rating:         r,
		Rating5Based:   r5,
		BackdropPath:   backdrops(s.BackdropPath),
		YoutubeTrailer: deref(s.YoutubeTrailer),
		EpisodeRunTime: deref(s.EpisodeRunTime),
		CategoryID:     idString(s.CategoryID),
	}
}

// seriesInfo groups the episodes of one series by season. The episodes
// map is keyed by the season number as a string.
func (h *Handler) seriesInfo(req *request) (any, error) {
	id, err := strconv.ParseInt(req.params.Get("series_id"), 10, 64)
	if err != nil {
		return emptySeriesInfo(), nil
	}
	s, err := h.store.GetSeries(req.ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return emptySeriesInfo(), nil
	}
	if err != nil {
		return nil, err
	}
	eps, err := h.store.ListEpisodes(req.ctx, id)
	if err != nil {
		return nil, err
	}

	byseason := make(map[string][]episode)
	counts := make(map[int]int)
	for i := range eps {
		e := &eps[i]
		key := strconv.Itoa(e.Season)
		counts[e.Season]++
		byseason[key] = append(byseason[key], episode{
			ID:                 strconv.FormatInt(e.ID, 10),
			EpisodeNum:         e.EpisodeNum,
			Title:              e.Title,
			ContainerExtension: streamurl.Extension(e.ContainerExtension),
			Info: episodeInfo{
				Plot:       deref(e.Plot),
				Duration:   deref(e.Duration),
				MovieImage: deref(e.Cover),
			},
			Season:       e.Season,
			Added:        unixString(e.CreatedAt),
			DirectSource: h.resolver.EpisodeURL(req.origin, req.user.Username, req.password, e),
		})
	}

	seasons := make([]season, 0, len(counts))
	for n, c := range counts {
		seasons = append(seasons, season{SeasonNumber: n, Name: "Season " + strconv.Itoa(n), EpisodeCount: c})
	}
	sort.Slice(seasons, func(i, j int) bool { return seasons[i].SeasonNumber < seasons[j].SeasonNumber })

	return seriesInfoResponse{
		Seasons:  seasons,
		Info:     toSeriesItem(s),
		Episodes: byseason,
	}, nil
}
