package timeline

import (
	"time"

	"github.com/TrackWise/TrackTalk/internal/models"
)

// DayGroup is one render-time bucket of consecutive messages from the same
// calendar day.
type DayGroup struct {
	Label    string           `json:"label"`
	Date     time.Time        `json:"date"`
	Messages []models.Message `json:"messages"`
}

// DayLabel renders the separator label for a message day relative to now:
// today / yesterday / weekday name within the last 7 days / full date
// otherwise.
func DayLabel(day, now time.Time) string {
	today := truncateToDay(now)
	d := truncateToDay(day)
	switch {
	case d.Equal(today):
		return "Today"
	case d.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	case d.After(today.AddDate(0, 0, -7)) && d.Before(today):
		return d.Weekday().String()
	default:
		return d.Format("January 2, 2006")
	}
}

// GroupByDay buckets messages into day groups with separator labels, keeping
// creation order within and across groups.
func GroupByDay(messages []models.Message, now time.Time) []DayGroup {
	var groups []DayGroup
	for _, m := range messages {
		day := truncateToDay(m.CreatedAt)
		if len(groups) == 0 || !truncateToDay(groups[len(groups)-1].Date).Equal(day) {
			groups = append(groups, DayGroup{Label: DayLabel(m.CreatedAt, now), Date: day})
		}
		groups[len(groups)-1].Messages = append(groups[len(groups)-1].Messages, m)
	}
	return groups
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
