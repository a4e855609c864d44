package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/may5ra/server-stream-one/internal/cache"
)

// importLockTTL bounds how long a crashed import can block its URL.
const importLockTTL = 30 * time.Minute

func epgLockKey(r *cache.Redis, url string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(url)))
	return r.Key("lock", "epg", hex.EncodeToString(sum[:8]))
}

// ImportLocked runs Import while holding the per-URL Redis lock, so one
// guide is never imported twice at once. It returns cache.ErrLocked when
// another import holds the lock. With a nil rds it runs unlocked.
func (im *EPGImporter) ImportLocked(ctx context.Context, rds *cache.Redis, req EPGRequest) (*EPGResult, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, ErrNoGuideURL
	}
	if rds == nil {
		return im.Import(ctx, req)
	}
	unlock, err := cache.TryLock(ctx, rds, epgLockKey(rds, req.URL), importLockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return im.Import(ctx, req)
}

// EnqueueEPG queues an EPG import and returns its job id.
func EnqueueEPG(ctx context.Context, rds *cache.Redis, req EPGRequest) (string, error) {
	if strings.TrimSpace(req.URL) == "" {
		return "", ErrNoGuideURL
	}
	job := cache.ImportJob{
		ID:         uuid.NewString(),
		Kind:       cache.JobEPG,
		URL:        strings.TrimSpace(req.URL),
		SourceID:   req.SourceID,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := cache.Enqueue(ctx, rds, job); err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	return job.ID, nil
}

// Worker drains the import queue.
type Worker struct {
	rds  *cache.Redis
	epg  *EPGImporter
	log  zerolog.Logger
	poll time.Duration
}

// NewWorker returns a worker polling the queue every 5s.
func NewWorker(rds *cache.Redis, epg *EPGImporter, logger zerolog.Logger) *Worker {
	return &Worker{
		rds:  rds,
		epg:  epg,
		log:  logger.With().Str("component", "import-worker").Logger(),
		poll: 5 * time.Second,
	}
}

// Run dequeues and processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info().Msg("import worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("import worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue(ctx, w.rds, w.poll)
		if err != nil {
			w.log.Error().Err(err).Msg("dequeue")
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}
		w.Process(ctx, *job)
	}
}

// Process runs one job and records its final status.
func (w *Worker) Process(ctx context.Context, job cache.ImportJob) {
	logger := w.log.With().Str("job_id", job.ID).Str("kind", job.Kind).Logger()
	w.setStatus(ctx, cache.JobStatus{ID: job.ID, State: cache.JobRunning})

	if job.Kind != cache.JobEPG {
		logger.Warn().Msg("unknown job kind")
		w.setStatus(ctx, cache.JobStatus{ID: job.ID, State: cache.JobFailed, Error: "unknown job kind " + job.Kind})
		return
	}

	res, err := w.epg.ImportLocked(ctx, w.rds, EPGRequest{URL: job.URL, SourceID: job.SourceID})
	if err != nil {
		logger.Error().Err(err).Msg("epg import failed")
		w.setStatus(ctx, cache.JobStatus{ID: job.ID, State: cache.JobFailed, Error: err.Error()})
		return
	}
	raw, _ := json.Marshal(res)
	w.setStatus(ctx, cache.JobStatus{ID: job.ID, State: cache.JobDone, Result: raw})
	logger.Info().Int("channels_mapped", res.ChannelsMapped).Msg("job done")
}

func (w *Worker) setStatus(ctx context.Context, st cache.JobStatus) {
	st.UpdatedAt = time.Now().UTC()
	if err := cache.SetJobStatus(context.WithoutCancel(ctx), w.rds, st); err != nil {
		w.log.Warn().Err(err).Str("job_id", st.ID).Msg("set job status")
	}
}
