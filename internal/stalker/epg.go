package stalker

import (
	"strconv"
	"time"

	"github.com/may5ra/server-stream-one/internal/catalog"
	"github.com/may5ra/server-stream-one/internal/models"
)

const (
	defaultShortEPGSize = 4
	shortEPGHorizon     = 7 * 24 * time.Hour
	defaultPeriodHours  = 24
	maxPeriodHours      = 7 * 24
)

// guide lists the programmes of a channel overlapping [now, to]. Unknown,
// unmapped and invisible channels have no programmes.
func (h *Handler) guide(req *request, u *models.StreamingUser, to time.Time, limit int) ([]program, error) {
	streamID, err := strconv.ParseInt(req.params.Get("ch_id"), 10, 64)
	if err != nil {
		return []program{}, nil
	}
	s, err := h.store.GetStreamByID(req.ctx, streamID)
	if err != nil {
		if isNotFound(err) {
			return []program{}, nil
		}
		return nil, err
	}
	if !catalog.Visible(u, s) {
		return []program{}, nil
	}
	ch, err := h.store.GetEPGChannelByStream(req.ctx, streamID)
	if err != nil {
		if isNotFound(err) {
			return []program{}, nil
		}
		return nil, err
	}
	rows, err := h.store.ListEPGPrograms(req.ctx, ch.ID, req.now, to, limit)
	if err != nil {
		return nil, err
	}

	loc := h.resolver.Settings().Location()
	chID := strconv.FormatInt(streamID, 10)
	out := make([]program, 0, len(rows))
	for _, p := range rows {
		start, stop := p.StartTime.In(loc), p.EndTime.In(loc)
		out = append(out, program{
			ID:             strconv.FormatInt(p.ID, 10),
			ChID:           chID,
			Name:           p.Title,
			Descr:          deref(p.Description),
			Time:           start.Format(dateTimeLayout),
			TimeTo:         stop.Format(dateTimeLayout),
			Duration:       int64(p.EndTime.Sub(p.StartTime) / time.Second),
			StartTimestamp: p.StartTime.Unix(),
			StopTimestamp:  p.EndTime.Unix(),
			TTime:          start.Format(clockLayout),
			TTimeTo:        stop.Format(clockLayout),
		})
	}
	return out, nil
}

func (h *Handler) shortEPG(req *request) (any, error) {
	u, err := h.user(req)
	if err != nil || u == nil {
		return []program{}, err
	}
	size := defaultShortEPGSize
	if n, err := strconv.Atoi(req.params.Get("size")); err == nil && n > 0 {
		size = n
	}
	return h.guide(req, u, req.now.Add(shortEPGHorizon), size)
}

// simpleDataTable lists the next period hours (default 24) of a channel
// in a single page.
func (h *Handler) simpleDataTable(req *request) (any, error) {
	u, err := h.user(req)
	if err != nil || u == nil {
		return emptyPage(), err
	}
	period := defaultPeriodHours
	if n, err := strconv.Atoi(req.params.Get("period")); err == nil && n > 0 {
		period = min(n, maxPeriodHours)
	}
	programs, err := h.guide(req, u, req.now.Add(time.Duration(period)*time.Hour), 0)
	if err != nil {
		return nil, err
	}
	return page{TotalItems: len(programs), MaxPageItems: len(programs), CurPage: 1, Data: programs}, nil
}
