package util

import (
	"fmt"
	"time"
)

// BucketBounds returns the [start, end) range covered by bucket for a window.
func BucketBounds(bucket int64, window time.Duration) (time.Time, time.Time) {
	secs := int64(window / time.Second)
	start := time.Unix(bucket*secs, 0).UTC()
	return start, start.Add(window)
}

// WindowLabel renders a lookback in days the way the dashboard shows it.
func WindowLabel(days int) string {
	switch {
	case days == 1:
		return "24h"
	case days%365 == 0:
		return fmt.Sprintf("%dy", days/365)
	default:
		return fmt.Sprintf("%dd", days)
	}
}
