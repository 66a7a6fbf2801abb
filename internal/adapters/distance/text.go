package distance

import (
	"fmt"
	"math"
)

// describeDistance renders meters the way mapping APIs do ("850 m", "12.3 km").
func describeDistance(meters int) string {
	if meters < 1000 {
		return fmt.Sprintf("%d m", meters)
	}
	return fmt.Sprintf("%.1f km", float64(meters)/1000)
}

// describeDuration renders seconds as "1 min", "25 mins", "1 hour 5 mins".
func describeDuration(seconds int) string {
	mins := int(math.Round(float64(seconds) / 60))
	if mins < 1 {
		mins = 1
	}
	if mins < 60 {
		if mins == 1 {
			return "1 min"
		}
		return fmt.Sprintf("%d mins", mins)
	}

	hours := mins / 60
	rest := mins % 60
	h := "hours"
	if hours == 1 {
		h = "hour"
	}
	if rest == 0 {
		return fmt.Sprintf("%d %s", hours, h)
	}
	return fmt.Sprintf("%d %s %d mins", hours, h, rest)
}
