// Package scheduling picks publish times for posts from per-platform
// engagement hours.
package scheduling

import (
	"slices"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
)

// weekHours is indexed by time.Weekday, Sunday first.
type weekHours [7][]int

func weekdays(sun, weekday, sat []int) weekHours {
	return weekHours{sun, weekday, weekday, weekday, weekday, weekday, sat}
}

var bestHours = map[models.Platform]weekHours{
	models.Instagram: weekdays([]int{10, 15}, []int{9, 13}, []int{10, 14}),
	models.TikTok:    weekdays([]int{12, 20}, []int{9, 14}, []int{12, 20}),
	models.Google:    weekdays([]int{12, 20}, []int{9, 14}, []int{12, 20}),
	models.LinkedIn:  weekdays(nil, []int{9}, nil),
	models.Facebook:  weekdays([]int{11, 16}, []int{9, 14}, []int{11, 16}),
	models.YouTube:   weekdays([]int{12}, []int{12}, []int{12}),
	models.Pinterest: weekdays([]int{10, 20}, []int{8, 12}, []int{10, 20}),
}

// BestHours returns the sorted union of best hours for the given platforms on
// a weekday.
func BestHours(platforms []models.Platform, day time.Weekday) []int {
	var hours []int
	for _, p := range platforms {
		table, ok := bestHours[p]
		if !ok {
			continue
		}
		for _, h := range table[day] {
			if !slices.Contains(hours, h) {
				hours = append(hours, h)
			}
		}
	}
	slices.Sort(hours)
	return hours
}
