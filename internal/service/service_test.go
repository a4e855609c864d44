package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
)

// staticFetcher serves fixed bodies by URL.
type staticFetcher map[string]string

func (f staticFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	body, ok := f[url]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}
	return []byte(body), nil
}

// flakyStore fails CreateStream for names starting with "bad" and
// InsertEPGPrograms when failPrograms is set.
type flakyStore struct {
	*store.Memory
	failPrograms bool
}

func (f *flakyStore) CreateStream(ctx context.Context, s *models.Stream) (int64, error) {
	if strings.HasPrefix(s.Name, "bad") {
		return 0, errors.New("constraint violation")
	}
	return f.Memory.CreateStream(ctx, s)
}

func (f *flakyStore) InsertEPGPrograms(ctx context.Context, p []models.EPGProgram) (int64, error) {
	if f.failPrograms {
		return 0, errors.New("insert failed")
	}
	return f.Memory.InsertEPGPrograms(ctx, p)
}

func ptr[T any](v T) *T { return &v }
