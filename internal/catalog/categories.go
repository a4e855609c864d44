package catalog

import (
	"sort"
	"strconv"
	"strings"

	"github.com/may5ra/server-stream-one/internal/models"
)

// MergeCategories returns the category table extended with every stream
// category name it does not already contain. Synthesized entries get ids
// after the highest existing id, assigned in name order, so the result is
// stable for a given catalog.
func MergeCategories(table []models.Category, streams []models.Stream) []models.Category {
	known := make(map[string]bool, len(table))
	var maxID int64
	for _, c := range table {
		known[c.Name] = true
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	var extra []string
	for _, s := range streams {
		name := strings.TrimSpace(s.Category)
		if name == "" || known[name] {
			continue
		}
		known[name] = true
		extra = append(extra, name)
	}
	sort.Strings(extra)

	out := make([]models.Category, 0, len(table)+len(extra))
	out = append(out, table...)
	for i, name := range extra {
		out = append(out, models.Category{ID: maxID + int64(i) + 1, Name: name})
	}
	return out
}

// CategoryID returns the id of the category called name, or "" if absent.
func CategoryID(cats []models.Category, name string) string {
	name = strings.TrimSpace(name)
	for _, c := range cats {
		if c.Name == name {
			return strconv.FormatInt(c.ID, 10)
		}
	}
	return ""
}

// CategoryName returns the name of the category with the given id.
func CategoryName(cats []models.Category, id string) (string, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return "", false
	}
	for _, c := range cats {
		if c.ID == n {
			return c.Name, true
		}
	}
	return "", false
}

// StreamsInCategory keeps streams whose category name matches.
func StreamsInCategory(streams []models.Stream, name string) []models.Stream {
	out := make([]models.Stream, 0, len(streams))
	for _, s := range streams {
		if strings.TrimSpace(s.Category) == name {
			out = append(out, s)
		}
	}
	return out
}
