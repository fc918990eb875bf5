package core

import (
	"sort"
	"strings"

	"github.com/jmylchreest/overbar/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByPosted   SortField = "posted"
	SortByType     SortField = "type"
	SortByDuration SortField = "duration"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions returns default sort options (newest first).
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByPosted,
		Order: SortDesc,
	}
}

// Sort sorts messages in place. Equal keys keep their display order, so
// sorting by posted time is stable even for messages posted in the same
// instant.
func Sort(messages []model.Message, opts SortOptions) {
	if len(messages) == 0 {
		return
	}

	// Display order is the tie-breaker; descending reverses it too.
	if opts.Order == SortDesc {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}

	sort.SliceStable(messages, func(i, j int) bool {
		a, b := messages[i], messages[j]
		var less, greater bool

		switch opts.Field {
		case SortByType:
			less, greater = a.Type < b.Type, a.Type > b.Type
		case SortByDuration:
			less, greater = a.Duration < b.Duration, a.Duration > b.Duration
		default:
			less, greater = a.PostedAt.Before(b.PostedAt), a.PostedAt.After(b.PostedAt)
		}

		if opts.Order == SortDesc {
			return greater
		}
		return less
	})
}

// ParseSortField parses a sort field string. Unknown values sort by post time.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "type", "t":
		return SortByType, nil
	case "duration", "d":
		return SortByDuration, nil
	default:
		return SortByPosted, nil
	}
}

// ParseSortOrder parses a sort order string. Unknown values sort descending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "a":
		return SortAsc, nil
	default:
		return SortDesc, nil
	}
}
