// Package stats derives progress views from session lists. Everything
// here is pure computation over the slice it is handed; nothing reads or
// writes the store.
package stats

import (
	"sort"
	"time"

	"github.com/claude/setlog/internal/models"
)

// DefaultWeeks is how many recent week buckets the weekly summary keeps.
const DefaultWeeks = 4

// WeekPolicy decides where week boundaries fall: which weekday starts the
// week and in which timezone the session's start time is interpreted.
type WeekPolicy struct {
	StartDay time.Weekday
	Location *time.Location
}

// DefaultWeekPolicy is Monday-start weeks in the process-local timezone.
func DefaultWeekPolicy() WeekPolicy {
	return WeekPolicy{StartDay: time.Monday, Location: time.Local}
}

// WeekSummary aggregates one calendar week of sessions.
type WeekSummary struct {
	WeekStart     time.Time `json:"weekStart"`
	Label         string    `json:"label"`
	SessionCount  int       `json:"sessionCount"`
	TotalReps     int       `json:"totalReps"`
	AchievedCount int       `json:"achievedCount"`
}

// WeeklySummary buckets sessions by the week that contains their start
// time and returns at most maxWeeks of the most recent non-empty buckets,
// most recent first. Each bucket is labeled by its start day's month/day.
func WeeklySummary(sessions []models.Session, policy WeekPolicy, maxWeeks int) []WeekSummary {
	if policy.Location == nil {
		policy.Location = time.Local
	}
	if maxWeeks <= 0 {
		maxWeeks = DefaultWeeks
	}

	buckets := make(map[time.Time]*WeekSummary)
	for _, s := range sessions {
		start := weekStart(s.StartedAt, policy)
		b, ok := buckets[start]
		if !ok {
			b = &WeekSummary{WeekStart: start, Label: start.Format("01/02")}
			buckets[start] = b
		}
		b.SessionCount++
		b.TotalReps += s.TotalReps
		if s.IsAchieved {
			b.AchievedCount++
		}
	}

	result := make([]WeekSummary, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].WeekStart.After(result[j].WeekStart)
	})
	if len(result) > maxWeeks {
		result = result[:maxWeeks]
	}
	return result
}

// weekStart returns midnight of the policy's start day for the week
// containing t, in the policy's timezone.
func weekStart(t time.Time, policy WeekPolicy) time.Time {
	local := t.In(policy.Location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, policy.Location)
	back := (int(day.Weekday()) - int(policy.StartDay) + 7) % 7
	return day.AddDate(0, 0, -back)
}

// SeriesPoint is one session on a per-exercise progression chart.
type SeriesPoint struct {
	StartedAt  time.Time `json:"startedAt"`
	Label      string    `json:"label"`
	TotalReps  int       `json:"totalReps"`
	MaxSetReps int       `json:"maxSetReps"`
}

// ExerciseSeries turns sessions of a single template into chart points,
// ascending by start time: total volume plus the best single set.
func ExerciseSeries(sessions []models.Session) []SeriesPoint {
	sorted := make([]models.Session, len(sessions))
	copy(sorted, sessions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.Before(sorted[j].StartedAt)
	})

	points := make([]SeriesPoint, 0, len(sorted))
	for _, s := range sorted {
		points = append(points, SeriesPoint{
			StartedAt:  s.StartedAt,
			Label:      s.StartedAt.Format("01/02"),
			TotalReps:  s.TotalReps,
			MaxSetReps: models.MaxSetReps(s.RepsBySet),
		})
	}
	return points
}
