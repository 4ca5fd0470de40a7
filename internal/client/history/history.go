// Package history organises stored chat sessions for the history sidebar:
// recency buckets and title search.
package history

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

// Groups holds sessions partitioned by how recently they were updated.
type Groups struct {
	Today     []models.Session
	Yesterday []models.Session
	ThisWeek  []models.Session
	Older     []models.Session
}

// Len returns the total number of grouped sessions.
func (g Groups) Len() int {
	return len(g.Today) + len(g.Yesterday) + len(g.ThisWeek) + len(g.Older)
}

// Bucket is a labelled group, used for display in a fixed order.
type Bucket struct {
	Label    string
	Sessions []models.Session
}

// Buckets returns the non-empty groups in display order.
func (g Groups) Buckets() []Bucket {
	all := []Bucket{
		{Label: "Today", Sessions: g.Today},
		{Label: "Yesterday", Sessions: g.Yesterday},
		{Label: "This Week", Sessions: g.ThisWeek},
		{Label: "Older", Sessions: g.Older},
	}
	out := make([]Bucket, 0, len(all))
	for _, b := range all {
		if len(b.Sessions) > 0 {
			out = append(out, b)
		}
	}
	return out
}

// GroupByRecency partitions sessions by the calendar day of UpdatedAt in
// now's location. Sessions from the seven days before yesterday land in
// ThisWeek; a zero UpdatedAt always lands in Older. Input order is kept
// within each bucket.
func GroupByRecency(sessions []models.Session, now time.Time) Groups {
	loc := now.Location()
	today := midnight(now)
	yesterday := time.Date(today.Year(), today.Month(), today.Day()-1, 0, 0, 0, 0, loc)
	weekStart := time.Date(today.Year(), today.Month(), today.Day()-7, 0, 0, 0, 0, loc)

	var g Groups
	for _, s := range sessions {
		if s.UpdatedAt.IsZero() {
			g.Older = append(g.Older, s)
			continue
		}

		local := s.UpdatedAt.In(loc)
		day := midnight(local)

		switch {
		case day.Equal(today):
			g.Today = append(g.Today, s)
		case day.Equal(yesterday):
			g.Yesterday = append(g.Yesterday, s)
		case !local.Before(weekStart):
			g.ThisWeek = append(g.ThisWeek, s)
		default:
			g.Older = append(g.Older, s)
		}
	}
	return g
}

// FilterByTitle keeps sessions whose title contains term, ignoring case.
// An empty term keeps everything.
func FilterByTitle(sessions []models.Session, term string) []models.Session {
	term = strings.ToLower(term)
	out := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		if strings.Contains(strings.ToLower(s.Title), term) {
			out = append(out, s)
		}
	}
	return out
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
