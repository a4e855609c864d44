package playlist

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/may5ra/server-stream-one/internal/catalog"
	"github.com/may5ra/server-stream-one/internal/httpjson"
	"github.com/may5ra/server-stream-one/internal/metrics"
	"github.com/may5ra/server-stream-one/internal/store"
	"github.com/may5ra/server-stream-one/internal/xmltv"
)

// Guide window, matching what the importer keeps.
const (
	guidePast   = 24 * time.Hour
	guideFuture = 7 * 24 * time.Hour
)

// ServeGuide writes an XMLTV document for the channels of the
// authenticated user that have a guide mapping.
func (h *Handler) ServeGuide(w http.ResponseWriter, r *http.Request) {
	const action = "xmltv"
	u := h.authenticate(w, r, action)
	if u == nil {
		return
	}
	ctx := r.Context()
	lineup, err := catalog.LiveLineup(ctx, h.store, u)
	if err != nil {
		metrics.RecordAdapter(adapterName, action, metrics.OutcomeError)
		httpjson.Error(w, http.StatusInternalServerError, err)
		return
	}

	now := h.now()
	doc := &xmltv.Document{}
	for i := range lineup.Streams {
		s := &lineup.Streams[i]
		ch, err := h.store.GetEPGChannelByStream(ctx, s.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			metrics.RecordAdapter(adapterName, action, metrics.OutcomeError)
			httpjson.Error(w, http.StatusInternalServerError, err)
			return
		}
		doc.Channels = append(doc.Channels, xmltv.Channel{ID: ch.ChannelID, Name: s.Name, Icon: deref(s.StreamIcon)})

		programs, err := h.store.ListEPGPrograms(ctx, ch.ID, now.Add(-guidePast), now.Add(guideFuture), 0)
		if err != nil {
			metrics.RecordAdapter(adapterName, action, metrics.OutcomeError)
			httpjson.Error(w, http.StatusInternalServerError, err)
			return
		}
		for _, p := range programs {
			doc.Programmes = append(doc.Programmes, xmltv.Programme{
				Channel:     ch.ChannelID,
				Title:       p.Title,
				Description: deref(p.Description),
				Start:       p.StartTime,
				Stop:        p.EndTime,
			})
		}
	}

	var buf bytes.Buffer
	if err := xmltv.Encode(&buf, doc); err != nil {
		httpjson.Error(w, http.StatusInternalServerError, err)
		return
	}
	metrics.RecordAdapter(adapterName, action, metrics.OutcomeOK)
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
