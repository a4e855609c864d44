package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
)

type fakeLive struct {
	cats    []models.Category
	streams []models.Stream
	err     error
}

func (f fakeLive) ListLiveCategories(context.Context) ([]models.Category, error) {
	return f.cats, f.err
}

func (f fakeLive) ListStreams(context.Context, store.StreamFilter) ([]models.Stream, error) {
	return f.streams, nil
}

func names(streams []models.Stream) []string {
	out := make([]string, len(streams))
	for i, s := range streams {
		out[i] = s.Name
	}
	return out
}

func TestLiveLineup(t *testing.T) {
	src := fakeLive{
		cats: []models.Category{{ID: 1, Name: "News"}},
		streams: []models.Stream{
			{Name: "CNN", Category: "News", Status: models.StreamLive},
			{Name: "Off", Category: "Archive", Status: models.StreamInactive},
			{Name: "HBO", Category: "Movies", Status: models.StreamActive, Bouquet: ptr("premium")},
			{Name: "Kids", Category: "Movies", Status: models.StreamLive, Bouquet: ptr("basic")},
		},
	}

	basic := &models.StreamingUser{Bouquets: []string{"basic"}}
	l, err := LiveLineup(context.Background(), src, basic)
	require.NoError(t, err)

	// Inactive and hidden streams still contribute categories.
	assert.Equal(t, []models.Category{
		{ID: 1, Name: "News"},
		{ID: 2, Name: "Archive"},
		{ID: 3, Name: "Movies"},
	}, l.Categories)
	assert.Equal(t, []string{"CNN", "Kids"}, names(l.Streams))

	assert.Equal(t, []string{"Kids"}, names(l.InCategory("3")))
	assert.Empty(t, l.InCategory("2"))
	assert.Nil(t, l.InCategory("99"))

	all, err := LiveLineup(context.Background(), src, &models.StreamingUser{})
	require.NoError(t, err)
	assert.Equal(t, []string{"CNN", "HBO", "Kids"}, names(all.Streams))
	assert.Equal(t, l.Categories, all.Categories)
}

func TestLiveLineup_Error(t *testing.T) {
	_, err := LiveLineup(context.Background(), fakeLive{err: errors.New("down")}, &models.StreamingUser{})
	assert.ErrorContains(t, err, "ListLiveCategories")
}
