package util

import "time"

var pacificLocation *time.Location

func init() {
	var err error
	pacificLocation, err = time.LoadLocation("America/Los_Angeles")
	if err != nil {
		pacificLocation = time.FixedZone("PT", -8*60*60)
	}
}

// NowPacific returns the current time in the YouTube API's quota timezone.
func NowPacific() time.Time {
	return time.Now().In(pacificLocation)
}

// NextMidnightPacific returns the next midnight in Pacific time, which is
// when the YouTube Data API daily quota resets.
func NextMidnightPacific() time.Time {
	now := NowPacific()
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, pacificLocation)
	return next
}
