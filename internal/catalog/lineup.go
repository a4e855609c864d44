package catalog

import (
	"context"
	"fmt"

	"github.com/may5ra/server-stream-one/internal/models"
	"github.com/may5ra/server-stream-one/internal/store"
)

// LiveSource lists live categories and streams.
type LiveSource interface {
	ListLiveCategories(ctx context.Context) ([]models.Category, error)
	ListStreams(ctx context.Context, f store.StreamFilter) ([]models.Stream, error)
}

// Lineup is what one user sees of the live catalog.
type Lineup struct {
	// Categories are the live_categories rows merged with stream categories.
	Categories []models.Category
	// Streams are the playable streams visible to the user, in catalog order.
	Streams []models.Stream
}

// LiveLineup builds the lineup of u. Category ids are computed over every
// stream so they do not depend on the user or on stream status.
func LiveLineup(ctx context.Context, src LiveSource, u *models.StreamingUser) (*Lineup, error) {
	table, err := src.ListLiveCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListLiveCategories: %w", err)
	}
	all, err := src.ListStreams(ctx, store.StreamFilter{})
	if err != nil {
		return nil, fmt.Errorf("ListStreams: %w", err)
	}
	playable := make([]models.Stream, 0, len(all))
	for _, s := range all {
		if s.Playable() {
			playable = append(playable, s)
		}
	}
	return &Lineup{
		Categories: MergeCategories(table, all),
		Streams:    FilterVisible(u, playable),
	}, nil
}

// InCategory returns the lineup streams of the category with the given id.
// An unknown id yields no streams.
func (l *Lineup) InCategory(id string) []models.Stream {
	name, ok := CategoryName(l.Categories, id)
	if !ok {
		return nil
	}
	return StreamsInCategory(l.Streams, name)
}
