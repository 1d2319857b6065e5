package scheduling

import (
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
)

// horizonDays bounds how far ahead a slot is searched.
const horizonDays = 30

// occupied collects the hour buckets already taken by other scheduled posts
// of the same board.
func occupied(post *models.Post, siblings []*models.Post) map[time.Time]struct{} {
	taken := make(map[time.Time]struct{})
	for _, s := range siblings {
		if s == nil || s.ID == post.ID || s.BoardID != post.BoardID {
			continue
		}
		if s.Status != models.PostStatusScheduled || s.PublishDate == nil {
			continue
		}
		taken[bucket(*s.PublishDate)] = struct{}{}
	}
	return taken
}

func bucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// SuggestSlots returns up to n free best-hour slots strictly after now, in
// order. Hours are read in the location of now.
func SuggestSlots(post *models.Post, siblings []*models.Post, now time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	taken := occupied(post, siblings)

	var slots []time.Time
	for d := 0; d < horizonDays; d++ {
		day := now.AddDate(0, 0, d)
		for _, h := range BestHours(post.Platforms, day.Weekday()) {
			slot := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, now.Location())
			if !slot.After(now) {
				continue
			}
			if _, ok := taken[bucket(slot)]; ok {
				continue
			}
			slots = append(slots, slot)
			taken[bucket(slot)] = struct{}{}
			if len(slots) == n {
				return slots
			}
		}
	}
	return slots
}

// ComputeSlot returns the first free best-hour slot, or the next full hour
// when none is free within the horizon.
func ComputeSlot(post *models.Post, siblings []*models.Post, now time.Time) time.Time {
	if slots := SuggestSlots(post, siblings, now, 1); len(slots) > 0 {
		return slots[0]
	}
	return NextFullHour(now)
}

// NextFullHour rounds the wall clock of now up to the next hour in its own
// location, so zones with half-hour offsets still land on :00.
func NextFullHour(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour()+1, 0, 0, 0, now.Location())
}
