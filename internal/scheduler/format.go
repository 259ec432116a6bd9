package scheduler

import (
	"fmt"
	"math"
)

// FormatInterval renders an interval in days as a short human string. Session
// UIs call it on a dry-run NextReview result to preview the outcome of each
// rating before committing.
func FormatInterval(days float64) string {
	if days < 1 {
		minutes := int(math.Round(days * minutesPerDay))
		if minutes < 60 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dh", int(math.Round(float64(minutes)/60)))
	}
	if days < 30 {
		return fmt.Sprintf("%dd", int(math.Round(days)))
	}
	if days < 365 {
		return fmt.Sprintf("%dmo", int(math.Round(days/30)))
	}
	return fmt.Sprintf("%dy", int(math.Round(days/365)))
}
