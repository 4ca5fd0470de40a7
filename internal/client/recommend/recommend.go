// Package recommend derives learning-resource suggestions from the words of
// a chat exchange. The rules are fixed keyword tests; there is no ranking.
package recommend

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

// MaxResults bounds how many suggestions are shown at once.
const MaxResults = 3

type topic struct {
	key string
	// inputWords match the user's text, replyWords the assistant's.
	inputWords []string
	replyWords []string
	rec        models.Recommendation
}

// topics are evaluated in order; the order is the priority.
var topics = []topic{
	{
		key:        "js",
		inputWords: []string{"javascript", "js"},
		replyWords: []string{"javascript"},
		rec: models.Recommendation{
			Title:         "JavaScript Fundamentals Course",
			Description:   "Master JavaScript basics with interactive exercises and real-world projects.",
			URL:           "https://javascript.info/",
			Type:          "course",
			Difficulty:    "beginner",
			EstimatedTime: "20 hours",
			Tags:          []string{"javascript", "web development", "programming"},
		},
	},
	{
		key:        "react",
		inputWords: []string{"react"},
		replyWords: []string{"react"},
		rec: models.Recommendation{
			Title:         "React Official Documentation",
			Description:   "Learn React from the official docs with hands-on examples.",
			URL:           "https://react.dev/",
			Type:          "tutorial",
			Difficulty:    "intermediate",
			EstimatedTime: "15 hours",
			Tags:          []string{"react", "frontend", "components"},
		},
	},
	{
		key:        "python",
		inputWords: []string{"python"},
		replyWords: []string{"python"},
		rec: models.Recommendation{
			Title:         "Python for Beginners",
			Description:   "Start your Python journey with this comprehensive beginner guide.",
			URL:           "https://www.python.org/about/gettingstarted/",
			Type:          "course",
			Difficulty:    "beginner",
			EstimatedTime: "25 hours",
			Tags:          []string{"python", "programming", "basics"},
		},
	},
	{
		key:        "ml",
		inputWords: []string{"machine learning", "ai"},
		replyWords: []string{"machine learning"},
		rec: models.Recommendation{
			Title:         "Machine Learning Crash Course",
			Description:   "Google's fast-paced, practical introduction to machine learning.",
			URL:           "https://developers.google.com/machine-learning/crash-course",
			Type:          "course",
			Difficulty:    "intermediate",
			EstimatedTime: "15 hours",
			Tags:          []string{"machine learning", "ai", "tensorflow"},
		},
	},
	{
		key:        "sql",
		inputWords: []string{"database", "sql"},
		replyWords: []string{"database"},
		rec: models.Recommendation{
			Title:         "SQL Tutorial",
			Description:   "Learn SQL with interactive exercises and real database examples.",
			URL:           "https://www.w3schools.com/sql/",
			Type:          "tutorial",
			Difficulty:    "beginner",
			EstimatedTime: "10 hours",
			Tags:          []string{"sql", "database", "queries"},
		},
	},
	{
		key:        "web",
		inputWords: []string{"web development", "html", "css"},
		rec: models.Recommendation{
			Title:         "MDN Web Docs",
			Description:   "The most comprehensive web development resource for developers.",
			URL:           "https://developer.mozilla.org/",
			Type:          "article",
			Difficulty:    "beginner",
			EstimatedTime: "5 hours",
			Tags:          []string{"html", "css", "web development"},
		},
	},
}

// Heuristic produces keyword-driven suggestions. The zero value is ready to
// use; Now may be replaced to make generated ids deterministic.
type Heuristic struct {
	Now func() time.Time
}

// Suggest returns at most MaxResults recommendations for the exchange.
// Matching is case-insensitive substring search. The result is never nil.
func (h Heuristic) Suggest(userInput, reply string) []models.Recommendation {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	stamp := now().UnixMilli()

	input := strings.ToLower(userInput)
	answer := strings.ToLower(reply)

	out := make([]models.Recommendation, 0, MaxResults)
	for _, t := range topics {
		if len(out) == MaxResults {
			break
		}
		if !containsAny(input, t.inputWords) && !containsAny(answer, t.replyWords) {
			continue
		}
		rec := t.rec
		rec.ID = fmt.Sprintf("rec_%s_%d", t.key, stamp)
		rec.Tags = append([]string(nil), t.rec.Tags...)
		out = append(out, rec)
	}
	return out
}

// Suggest runs the default Heuristic.
func Suggest(userInput, reply string) []models.Recommendation {
	return Heuristic{}.Suggest(userInput, reply)
}

// Merge concatenates adapter-supplied recommendations with heuristic ones and
// caps the combined list at MaxResults. The result is never nil.
func Merge(fromAPI, fromHeuristic []models.Recommendation) []models.Recommendation {
	out := make([]models.Recommendation, 0, MaxResults)
	out = append(out, fromAPI...)
	out = append(out, fromHeuristic...)
	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	return out
}

// Topics lists the keys accepted by Catalog, in priority order.
func Topics() []string {
	keys := make([]string, len(topics))
	for i, t := range topics {
		keys[i] = t.key
	}
	return keys
}

// Catalog returns the static record for every topic, or only the one whose
// key or tags contain filter (case-insensitive) when filter is not empty.
func Catalog(filter string) []models.Recommendation {
	filter = strings.ToLower(strings.TrimSpace(filter))
	out := []models.Recommendation{}
	for _, t := range topics {
		if filter != "" && t.key != filter && !containsAny(strings.Join(t.rec.Tags, ","), []string{filter}) {
			continue
		}
		rec := t.rec
		rec.ID = "rec_" + t.key
		rec.Tags = append([]string(nil), t.rec.Tags...)
		out = append(out, rec)
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
