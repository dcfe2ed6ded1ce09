package chat

import (
	"fmt"
	"time"
)

// FormatTime renders a unix ms timestamp relative to now: "Today 14:05",
// "Yesterday 09:30", or "3/7 18:00" for older dates.
func FormatTime(ms int64, now time.Time) string {
	if ms <= 0 {
		return ""
	}
	t := time.UnixMilli(ms).In(now.Location())
	clock := t.Format("15:04")

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	switch {
	case !t.Before(today):
		return "Today " + clock
	case !t.Before(today.AddDate(0, 0, -1)):
		return "Yesterday " + clock
	default:
		return fmt.Sprintf("%d/%d %s", int(t.Month()), t.Day(), clock)
	}
}
