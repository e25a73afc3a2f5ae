package service

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// synthesizeTimeOut picks a uniformly-random exit time between 08:00:00 and
// 18:59:59 on timeIn's day. No exit sensor exists, so the value stands in
// for one; when the draw lands at or before timeIn it is replaced with
// timeIn plus a random 1-6 hour stay so the span is always positive.
func synthesizeTimeOut(timeIn time.Time) time.Time {
	year, month, day := timeIn.Date()
	candidate := time.Date(year, month, day,
		8+rand.IntN(11), rand.IntN(60), rand.IntN(60), 0, timeIn.Location())

	if !candidate.After(timeIn) {
		candidate = timeIn.Add(time.Duration(1+rand.IntN(6)) * time.Hour)
	}
	return candidate
}

// formatDuration renders a span as "<hours>h <minutes>m".
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// randomBlockID generates the cosmetic block tag, "0x" plus four random
// bytes in hex. Collisions are acceptable.
func randomBlockID() string {
	return fmt.Sprintf("0x%08x", rand.Uint32())
}
