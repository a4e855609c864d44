package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/may5ra/server-stream-one/internal/cache"
	"github.com/may5ra/server-stream-one/internal/fetcher"
	"github.com/may5ra/server-stream-one/internal/httpjson"
	"github.com/may5ra/server-stream-one/internal/service"
)

// maxImportBody bounds inline m3u_content.
const maxImportBody = 32 << 20

var errNoRedis = errors.New("async imports require REDIS_URL")

func (s *Server) handleM3UImport(w http.ResponseWriter, r *http.Request) {
	var req service.M3URequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.m3u.Import(r.Context(), req)
	if err != nil {
		httpjson.Error(w, importStatus(err), err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

type enqueuedResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

func (s *Server) handleEPGImport(w http.ResponseWriter, r *http.Request) {
	var req service.EPGRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err)
		return
	}

	if req.Async {
		if s.rds == nil {
			httpjson.Error(w, http.StatusServiceUnavailable, errNoRedis)
			return
		}
		id, err := service.EnqueueEPG(r.Context(), s.rds, req)
		if err != nil {
			httpjson.Error(w, importStatus(err), err)
			return
		}
		httpjson.Write(w, http.StatusAccepted, enqueuedResponse{JobID: id, Status: cache.JobQueued})
		return
	}

	res, err := s.epg.ImportLocked(r.Context(), s.rds, req)
	if err != nil {
		httpjson.Error(w, importStatus(err), err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

func (s *Server) handleImportJob(w http.ResponseWriter, r *http.Request) {
	if s.rds == nil {
		httpjson.Error(w, http.StatusServiceUnavailable, errNoRedis)
		return
	}
	id := chi.URLParam(r, "id")
	st, err := cache.GetJobStatus(r.Context(), s.rds, id)
	if cache.IsMiss(err) {
		httpjson.Error(w, http.StatusNotFound, fmt.Errorf("job %s not found", id))
		return
	}
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, err)
		return
	}
	httpjson.Write(w, http.StatusOK, st)
}

// decodeJSON decodes the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// importStatus maps an import error to its HTTP status.
func importStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNoPlaylist), errors.Is(err, service.ErrNoGuideURL):
		return http.StatusBadRequest
	case errors.Is(err, cache.ErrLocked):
		return http.StatusConflict
	case errors.Is(err, fetcher.ErrTimeout), fetcher.StatusOf(err) != 0:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
