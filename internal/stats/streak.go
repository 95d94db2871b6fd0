package stats

import "time"

// NextStreak computes the consecutive-day streak after a walk on today.
// A nil last date starts a streak at 1; a same-day repeat walk leaves it
// unchanged; exactly one day since the last walk extends it; any larger
// gap resets to 1.
func NextStreak(last *time.Time, today time.Time, current int) int {
	if last == nil {
		return 1
	}
	switch daysBetween(*last, today) {
	case 0:
		return current
	case 1:
		return current + 1
	default:
		return 1
	}
}

// daysBetween counts whole calendar days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
